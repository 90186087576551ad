// Package ingest turns dropped image files into sheet items.
//
// A drop delivers a batch of files plus a canvas-relative drop point. Each
// file is probed for resolution metadata and decoded for pixel dimensions
// concurrently; the physical size follows from the two. Files that fail to
// decode are skipped individually without aborting the batch.
//
// Images below the print-quality resolution threshold are counted and the
// count surfaced as a transient notice that clears itself after a fixed
// duration.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/gangsheet/pkg/observability"
	"github.com/matzehuels/gangsheet/pkg/sheet"
	"github.com/matzehuels/gangsheet/pkg/units"
)

// NoticeDuration is how long the low-resolution notice stays visible.
const NoticeDuration = 8 * time.Second

// decodeConcurrency bounds the number of images decoded at once.
const decodeConcurrency = 4

// File is one dropped image.
type File struct {
	Name string // source file name, kept on the item
	URL  string // image source reference stored on the item
	Data []byte // raw image bytes
}

// Options configures a drop batch.
type Options struct {
	// DropX, DropY is the drop point in canvas inches. Each created item
	// is centered on it.
	DropX float64
	DropY float64

	// Price is the flat per-tile price assigned to new items.
	Price float64

	Logger *log.Logger
}

// Result reports the outcome of a batch.
type Result struct {
	// Items are the created items in input order, already added to the
	// store with ids assigned.
	Items []sheet.Item

	// Failed maps file names to their decode errors. Failed files create
	// no item.
	Failed map[string]error

	// LowDPI counts images whose resolution fell below the quality
	// threshold.
	LowDPI int
}

// Batch ingests a drop of files into the store.
//
// Decoding runs concurrently but the created items keep input order. Items
// arrive in the Arriving settlement state: the layout engine ignores them
// until the host lands them (after the arrival animation, or immediately
// for headless use).
func Batch(ctx context.Context, store *sheet.Store, files []File, opts Options) Result {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	infos := make([]units.Info, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(decodeConcurrency)
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			infos[i], errs[i] = units.Resolve(files[i].Data)
			return nil
		})
	}
	_ = g.Wait() // per-file errors are collected, never propagated

	res := Result{Failed: make(map[string]error)}
	var created []sheet.Item
	for i, f := range files {
		if errs[i] != nil {
			logger.Warn("skipping undecodable file", "name", f.Name, "err", errs[i])
			res.Failed[f.Name] = errs[i]
			continue
		}
		info := infos[i]
		if info.LowDPI {
			res.LowDPI++
		}
		url := f.URL
		if url == "" {
			url = f.Name
		}
		created = append(created, sheet.Item{
			URL:        url,
			Name:       f.Name,
			WidthIn:    info.WidthIn,
			HeightIn:   info.HeightIn,
			PosX:       opts.DropX - info.WidthIn/2,
			PosY:       opts.DropY - info.HeightIn/2,
			Copies:     1,
			Linked:     true,
			Price:      opts.Price,
			Settlement: sheet.Arriving,
		})
	}

	res.Items = store.AddBatch(created)
	observability.Ingest().OnIngestBatch(ctx, len(files), len(res.Failed), res.LowDPI, time.Since(start))
	return res
}

// Notice is the transient low-resolution warning counter. Setting a count
// arms a timer that clears it after NoticeDuration; a newer batch restarts
// the clock.
type Notice struct {
	mu    sync.Mutex
	count int
	timer *time.Timer
}

// Set publishes a count. Zero clears immediately.
func (n *Notice) Set(count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.count = count
	if count > 0 {
		n.timer = time.AfterFunc(NoticeDuration, n.clear)
	}
}

// Count returns the currently visible count.
func (n *Notice) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

func (n *Notice) clear() {
	n.mu.Lock()
	n.count = 0
	n.timer = nil
	n.mu.Unlock()
}
