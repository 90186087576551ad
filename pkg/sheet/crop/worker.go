package crop

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gangsheet/pkg/observability"
	"github.com/matzehuels/gangsheet/pkg/sheet"
)

// Fetcher resolves an item's image source to raw bytes. The CLI uses a
// file-path fetcher; the HTTP API resolves uploaded blobs.
type Fetcher func(ctx context.Context, url string) ([]byte, error)

// Worker runs crop computations off the interaction loop and applies the
// results back to the store by item id. Completions for items deleted in
// the meantime are dropped silently.
type Worker struct {
	store  *sheet.Store
	fetch  Fetcher
	logger *log.Logger
}

// NewWorker creates a crop worker for the given store.
func NewWorker(store *sheet.Store, fetch Fetcher, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Worker{store: store, fetch: fetch, logger: logger}
}

// Toggle flips the crop state of an item.
//
// Toggling off is instant: the original bytes and physical size captured at
// first crop are restored exactly. Toggling on dispatches the scan as an
// independent unit of work; done (optional) is invoked with the outcome
// once the result has been applied. The scan always runs fresh, never from
// a cache: the item's current source may have changed since the last crop.
func (w *Worker) Toggle(ctx context.Context, id int, done func(error)) bool {
	it, ok := w.store.Get(id)
	if !ok {
		return false
	}

	if it.AutoCrop {
		w.store.Update(id, func(it *sheet.Item) {
			it.AutoCrop = false
			if it.OriginalURL != "" {
				it.URL = it.OriginalURL
			}
			if it.OriginalWidthIn != 0 {
				it.WidthIn = it.OriginalWidthIn
			}
			if it.OriginalHeightIn != 0 {
				it.HeightIn = it.OriginalHeightIn
			}
		})
		if done != nil {
			done(nil)
		}
		return true
	}

	go w.run(ctx, it, done)
	return true
}

// run fetches, scans, and applies one crop. Failures leave the item's crop
// state untouched; the canvas stays interactive regardless.
func (w *Worker) run(ctx context.Context, it sheet.Item, done func(error)) {
	start := time.Now()
	err := w.cropAndApply(ctx, it)
	observability.Crop().OnCropComplete(ctx, it.ID, time.Since(start), err)
	if err != nil {
		w.logger.Warn("auto-crop failed", "item", it.ID, "err", err)
	}
	if done != nil {
		done(err)
	}
}

func (w *Worker) cropAndApply(ctx context.Context, it sheet.Item) error {
	observability.Crop().OnCropStart(ctx, it.ID)

	data, ok := DecodeDataURL(it.URL)
	if !ok {
		var err error
		data, err = w.fetch(ctx, it.URL)
		if err != nil {
			return err
		}
	}

	res, err := Crop(data)
	if err != nil {
		return err
	}

	// The item may have been deleted while we scanned; Update is then a
	// no-op and the result is discarded.
	w.store.Update(it.ID, func(cur *sheet.Item) {
		cur.AutoCrop = true
		if cur.OriginalURL == "" {
			cur.OriginalURL = cur.URL
		}
		if cur.OriginalWidthIn == 0 {
			cur.OriginalWidthIn = cur.WidthIn
		}
		if cur.OriginalHeightIn == 0 {
			cur.OriginalHeightIn = cur.HeightIn
		}
		cur.URL = res.DataURL()
		cur.WidthIn = res.WidthIn
		cur.HeightIn = res.HeightIn
	})
	return nil
}
