// Package crop implements alpha-channel auto-cropping for sheet items.
//
// Cropping tightens an item to the minimal rectangle containing visible
// pixels (alpha above a small noise threshold) and re-derives its physical
// size. The scan is CPU bound and proportional to pixel count, so callers
// dispatch it through the Worker rather than running it on the interaction
// loop.
package crop

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/gangsheet/pkg/errors"
	"github.com/matzehuels/gangsheet/pkg/units"
)

// AlphaThreshold is the alpha value (out of 255) a pixel must exceed to
// count as visible. Filters compression noise around transparent edges.
const AlphaThreshold = 10

// Result is the outcome of a crop computation.
type Result struct {
	PNG      []byte  // re-encoded cropped image
	WidthPx  int     // cropped pixel width
	HeightPx int     // cropped pixel height
	WidthIn  float64 // re-derived physical width
	HeightIn float64 // re-derived physical height
}

// DataURL returns the cropped image as a data URL, the form stored back on
// the item so hosts can display it without a second fetch.
func (r Result) DataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(r.PNG)
}

// Bounds scans every pixel for the minimal rectangle containing any alpha
// above the threshold. A fully transparent image has no such rectangle and
// is reported as an EMPTY_IMAGE error rather than a guessed crop.
func Bounds(img image.Image) (image.Rectangle, error) {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := -1, -1

	for y := 0; y < b.Dy(); y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			if row[x*4+3] > AlphaThreshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, errors.New(errors.ErrCodeEmptyImage, "image has no visible pixels")
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), nil
}

// Crop decodes raw image bytes, computes the visible bounding box, and
// re-renders just that rectangle as PNG.
//
// Physical size is re-derived at the default resolution rather than the
// image's originally embedded DPI. This matches what the product ships
// today; changing it silently would change effective print sizes, so it
// stays until there is a decision to the contrary.
func Crop(data []byte) (Result, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeDecodeFailed, err, "decode image for crop")
	}

	rect, err := Bounds(img)
	if err != nil {
		return Result{}, err
	}

	cropped := imaging.Crop(img, rect)

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeEncodeFailed, err, "encode cropped image")
	}

	w, h := units.PhysicalSize(rect.Dx(), rect.Dy(), units.DefaultDPI)
	return Result{
		PNG:      buf.Bytes(),
		WidthPx:  rect.Dx(),
		HeightPx: rect.Dy(),
		WidthIn:  w,
		HeightIn: h,
	}, nil
}

// DecodeDataURL extracts the raw bytes from a base64 data URL, so a
// previously cropped item can be re-scanned.
func DecodeDataURL(url string) ([]byte, bool) {
	_, b64, ok := strings.Cut(url, ";base64,")
	if !ok {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, false
	}
	return data, true
}
