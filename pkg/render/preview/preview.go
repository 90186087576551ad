// Package preview renders a gang sheet snapshot to a raster preview.
//
// The preview is a diagnostic and sharing artifact, not print output: items
// are drawn as labeled rectangles (tiled per copy group) on the canvas with
// the printable region outlined, so a layout can be inspected without a
// browser. Output is PNG.
package preview

import (
	"bytes"

	"github.com/fogleman/gg"

	"github.com/matzehuels/gangsheet/pkg/config"
	"github.com/matzehuels/gangsheet/pkg/errors"
	"github.com/matzehuels/gangsheet/pkg/sheet"
)

// DefaultScale is the default rendering resolution in pixels per inch.
const DefaultScale = 40.0

// Option configures preview rendering via [Render].
type Option func(*renderer)

type renderer struct {
	scale  float64
	grid   bool
	gridIn float64
	labels bool
}

// WithScale sets the output resolution in pixels per inch.
func WithScale(pxPerIn float64) Option {
	return func(r *renderer) {
		if pxPerIn > 0 {
			r.scale = pxPerIn
		}
	}
}

// WithGrid overlays the snapping grid at the given spacing in inches.
func WithGrid(spacingIn float64) Option {
	return func(r *renderer) {
		if spacingIn > 0 {
			r.grid = true
			r.gridIn = spacingIn
		}
	}
}

// WithLabels draws each item's display name and copy count.
func WithLabels() Option {
	return func(r *renderer) { r.labels = true }
}

// Render draws the items onto the canvas and returns the encoded PNG.
func Render(items []sheet.Item, canvas config.Canvas, opts ...Option) ([]byte, error) {
	r := renderer{scale: DefaultScale}
	for _, opt := range opts {
		opt(&r)
	}
	if canvas.WidthIn <= 0 || canvas.HeightIn <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "canvas is %gx%g in", canvas.WidthIn, canvas.HeightIn)
	}

	w := int(canvas.WidthIn * r.scale)
	h := int(canvas.HeightIn * r.scale)
	dc := gg.NewContext(w, h)

	dc.SetRGB(1, 1, 1)
	dc.Clear()

	if r.grid {
		r.drawGrid(dc, canvas)
	}
	r.drawMargin(dc, canvas)
	for _, it := range items {
		r.drawItem(dc, it)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncodeFailed, err, "encode preview")
	}
	return buf.Bytes(), nil
}

func (r *renderer) drawGrid(dc *gg.Context, canvas config.Canvas) {
	dc.SetRGB(0.93, 0.93, 0.93)
	dc.SetLineWidth(1)
	for x := r.gridIn; x < canvas.WidthIn; x += r.gridIn {
		dc.DrawLine(x*r.scale, 0, x*r.scale, canvas.HeightIn*r.scale)
		dc.Stroke()
	}
	for y := r.gridIn; y < canvas.HeightIn; y += r.gridIn {
		dc.DrawLine(0, y*r.scale, canvas.WidthIn*r.scale, y*r.scale)
		dc.Stroke()
	}
}

func (r *renderer) drawMargin(dc *gg.Context, canvas config.Canvas) {
	m := canvas.MarginIn * r.scale
	dc.SetRGB(0.7, 0.7, 0.7)
	dc.SetLineWidth(1)
	dc.SetDash(4, 4)
	dc.DrawRectangle(m, m, canvas.WidthIn*r.scale-2*m, canvas.HeightIn*r.scale-2*m)
	dc.Stroke()
	dc.SetDash()
}

func (r *renderer) drawItem(dc *gg.Context, it sheet.Item) {
	cols := it.GroupCols()
	for c := 0; c < it.Copies; c++ {
		col := c % cols
		row := c / cols
		x := it.PosX + float64(col)*(it.WidthIn+sheet.GroupGapIn)
		y := it.PosY + float64(row)*(it.HeightIn+sheet.GroupGapIn)
		r.drawTile(dc, it, x, y)
	}
	if r.labels {
		dc.SetRGB(0.1, 0.1, 0.1)
		label := it.Name
		if label == "" {
			label = it.URL
		}
		gw, _ := it.GroupSize()
		dc.DrawStringAnchored(label, (it.PosX+gw/2)*r.scale, (it.PosY+it.HeightIn/2)*r.scale, 0.5, 0.5)
	}
}

func (r *renderer) drawTile(dc *gg.Context, it sheet.Item, x, y float64) {
	switch it.Settlement {
	case sheet.Arriving:
		dc.SetRGBA(0.55, 0.67, 0.94, 0.45)
	case sheet.Displaced:
		dc.SetRGBA(0.94, 0.73, 0.45, 0.75)
	default:
		dc.SetRGBA(0.35, 0.52, 0.86, 0.75)
	}
	dc.DrawRectangle(x*r.scale, y*r.scale, it.WidthIn*r.scale, it.HeightIn*r.scale)
	dc.Fill()

	dc.SetRGB(0.2, 0.32, 0.6)
	dc.SetLineWidth(1.5)
	dc.DrawRectangle(x*r.scale, y*r.scale, it.WidthIn*r.scale, it.HeightIn*r.scale)
	dc.Stroke()
}
