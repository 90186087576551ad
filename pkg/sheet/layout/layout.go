// Package layout computes auto-nest positions for gang sheet items.
//
// The algorithm is a greedy row fill: items are walked in store order and
// packed into rows while they fit the usable width, then each row is
// centered horizontally within the page margins. It is deliberately not an
// optimal packer; determinism and idempotence matter more than density,
// because the layout is recomputed on every store change and must not
// drift.
//
// Items mid-arrival (Settlement == Arriving) are excluded entirely: they
// neither occupy row space nor receive a position until they land.
package layout

import (
	"math"

	"github.com/matzehuels/gangsheet/pkg/sheet"
)

const (
	// SelectionBufferIn reserves room around each item so the selection
	// ring stays inside the page margin.
	SelectionBufferIn = 0.084

	// TopInsetIn nudges the first row just inside the top margin.
	TopInsetIn = 0.02

	// Tolerance is the position delta below which an item is considered
	// already in place. Applying positions within tolerance is a no-op,
	// which is what keeps reflow from looping.
	Tolerance = 0.001
)

// Options configures a layout computation.
type Options struct {
	CanvasWidthIn float64
	SpacingIn     float64
	MarginIn      float64
}

// UsableWidth returns the canvas width minus both margins.
func (o Options) UsableWidth() float64 {
	return o.CanvasWidthIn - o.MarginIn*2
}

// Position is a computed top-left rest position in inches.
type Position struct {
	X float64
	Y float64
}

// Positions computes rest positions for all items in store order.
// The result maps item id to position; Arriving items are absent. Running
// Positions on its own output reproduces it exactly: the computation
// depends only on item order and footprints, never on current positions.
func Positions(items []sheet.Item, opts Options) map[int]Position {
	out := make(map[int]Position, len(items))
	maxWidth := opts.UsableWidth()

	y := opts.MarginIn + TopInsetIn
	for _, row := range packRows(items, opts) {
		rowWidth, rowHeight := rowExtent(row, opts.SpacingIn)
		x := opts.MarginIn + (maxWidth-rowWidth)/2
		for _, it := range row {
			gw, _ := it.GroupSize()
			out[it.ID] = Position{
				X: x + SelectionBufferIn/2,
				Y: y + SelectionBufferIn/2,
			}
			x += gw + SelectionBufferIn + opts.SpacingIn
		}
		y += rowHeight + opts.SpacingIn
	}
	return out
}

// Height returns the vertical extent of the computed layout: the bottom
// edge of the last row plus the bottom margin.
func Height(items []sheet.Item, opts Options) float64 {
	y := opts.MarginIn + TopInsetIn
	for _, row := range packRows(items, opts) {
		_, rowHeight := rowExtent(row, opts.SpacingIn)
		y += rowHeight + opts.SpacingIn
	}
	return y - opts.SpacingIn + opts.MarginIn
}

// DropTarget projects where a newly arriving item will come to rest once it
// joins the layout. The host uses this to aim the arrival animation. The
// new item participates in row packing as if already settled.
func DropTarget(items []sheet.Item, newItem sheet.Item, opts Options) Position {
	all := make([]sheet.Item, 0, len(items)+1)
	for _, it := range items {
		if it.ID != newItem.ID {
			all = append(all, it)
		}
	}
	newItem.Settlement = sheet.Settled
	all = append(all, newItem)

	target := Position{
		X: opts.CanvasWidthIn / 2,
		Y: opts.MarginIn + SelectionBufferIn/2 + TopInsetIn,
	}
	maxWidth := opts.UsableWidth()
	y := target.Y
	for _, row := range packRows(all, opts) {
		rowWidth, rowHeight := rowExtent(row, opts.SpacingIn)
		x := opts.MarginIn + (maxWidth-rowWidth)/2
		for _, it := range row {
			if it.ID == newItem.ID {
				target.X = x + SelectionBufferIn/2
				target.Y = y
				return target
			}
			gw, _ := it.GroupSize()
			x += gw + SelectionBufferIn + opts.SpacingIn
		}
		y += rowHeight + opts.SpacingIn
	}
	return target
}

// Apply computes positions and writes them back to the store, marking the
// affected items Settled. Items in exclude (typically the one being
// dragged) keep their current position. Returns true if anything moved.
func Apply(st *sheet.Store, opts Options, exclude ...int) bool {
	pos := Positions(st.Items(), opts)
	for _, id := range exclude {
		delete(pos, id)
	}
	return st.ApplyPositions(flatten(pos), Tolerance)
}

// packRows walks items in order, accumulating rows greedily. A row closes
// when the next item's footprint would overflow the usable width and the
// row already holds something; a single oversized item still gets its own
// row.
func packRows(items []sheet.Item, opts Options) [][]sheet.Item {
	maxWidth := opts.UsableWidth()
	var rows [][]sheet.Item
	var row []sheet.Item
	var rowWidth float64

	for _, it := range items {
		if it.Settlement == sheet.Arriving {
			continue
		}
		gw, _ := it.GroupSize()
		footprint := gw + SelectionBufferIn + opts.SpacingIn
		if rowWidth+footprint > maxWidth && len(row) > 0 {
			rows = append(rows, row)
			row = []sheet.Item{it}
			rowWidth = footprint
		} else {
			row = append(row, it)
			rowWidth += footprint
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// rowExtent returns the occupied width and the height of a row. Width
// counts inter-item spacing between members but not the trailing gap.
func rowExtent(row []sheet.Item, spacing float64) (width, height float64) {
	for i, it := range row {
		gw, gh := it.GroupSize()
		width += gw + SelectionBufferIn
		if i > 0 {
			width += spacing
		}
		height = math.Max(height, gh+SelectionBufferIn)
	}
	return width, height
}

func flatten(pos map[int]Position) map[int][2]float64 {
	out := make(map[int][2]float64, len(pos))
	for id, p := range pos {
		out[id] = [2]float64{p.X, p.Y}
	}
	return out
}
