// Package sheet holds the canonical item collection for a gang sheet canvas.
//
// A gang sheet is a single printable sheet composing several user images.
// Each placed image is an Item with a physical size in inches derived from
// its pixel dimensions and embedded resolution. The Store owns the ordered
// item list, assigns identities, and enforces the model invariants; layout,
// cropping and interaction are layered on top as separate packages.
package sheet

import "math"

// Dimension and grouping constraints.
const (
	// MinSizeIn is the smallest width or height an item may have, in inches.
	MinSizeIn = 0.5

	// MinCopies is the smallest allowed copy count.
	MinCopies = 1

	// GroupGapIn is the internal gap between tiled copies of a grouped item.
	GroupGapIn = 0.05

	// DuplicateOffsetIn is the position offset applied to duplicated items.
	DuplicateOffsetIn = 0.5
)

// Settlement describes an item's relationship to the layout engine.
// The states are mutually exclusive: an item is either at rest, mid-arrival
// (excluded from reflow entirely), or freshly displaced and due for
// resettlement on the next layout pass.
type Settlement int

const (
	// Settled means the item is at its layout rest position.
	Settled Settlement = iota

	// Arriving means the item is mid-drop and must not participate in
	// layout computation until it lands.
	Arriving

	// Displaced means the item was just moved by a store mutation and the
	// layout engine should visibly resettle it.
	Displaced
)

// String returns the settlement state name.
func (s Settlement) String() string {
	switch s {
	case Settled:
		return "settled"
	case Arriving:
		return "arriving"
	case Displaced:
		return "displaced"
	default:
		return "unknown"
	}
}

// Item is a placed image instance on the gang sheet.
type Item struct {
	ID int `json:"id"`

	// Provenance
	URL   string  `json:"url"`
	Name  string  `json:"name,omitempty"`
	Price float64 `json:"price"`

	// Geometry, all in inches. Positions are the top-left corner and may
	// go negative while an item is being dragged.
	WidthIn  float64 `json:"width_in"`
	HeightIn float64 `json:"height_in"`
	PosX     float64 `json:"pos_x"`
	PosY     float64 `json:"pos_y"`
	Rotation int     `json:"rotation"` // degrees, multiples of 90
	Flipped  bool    `json:"flipped"`

	// Manipulation flags
	Locked   bool `json:"locked"`
	Linked   bool `json:"linked"`
	Expanded bool `json:"expanded"`
	AutoCrop bool `json:"auto_crop"`

	// Copies tiles the item as a near-square grid of identical instances.
	// Layout always works with the group bounding box.
	Copies int `json:"copies"`

	// Pre-crop state, captured the first time auto-crop is applied so the
	// toggle can restore the exact original.
	OriginalURL      string  `json:"original_url,omitempty"`
	OriginalWidthIn  float64 `json:"original_width_in,omitempty"`
	OriginalHeightIn float64 `json:"original_height_in,omitempty"`

	// Settlement is transient layout state; it is persisted so a reloaded
	// sheet resumes exactly where it left off.
	Settlement Settlement `json:"settlement,omitempty"`
}

// GroupCols returns the number of columns used to tile the item's copies.
func (it Item) GroupCols() int {
	if it.Copies <= 1 {
		return 1
	}
	return int(math.Ceil(math.Sqrt(float64(it.Copies))))
}

// GroupSize returns the bounding box of the item's copy group in inches.
// A single-copy item is its own bounding box.
func (it Item) GroupSize() (width, height float64) {
	if it.Copies <= 1 {
		return it.WidthIn, it.HeightIn
	}
	cols := it.GroupCols()
	rows := int(math.Ceil(float64(it.Copies) / float64(cols)))
	width = float64(cols)*it.WidthIn + float64(cols-1)*GroupGapIn
	height = float64(rows)*it.HeightIn + float64(rows-1)*GroupGapIn
	return width, height
}

// CenterX returns the horizontal center of the item's single-tile box.
func (it Item) CenterX() float64 { return it.PosX + it.WidthIn/2 }

// CenterY returns the vertical center of the item's single-tile box.
func (it Item) CenterY() float64 { return it.PosY + it.HeightIn/2 }

// Ratio returns the width:height aspect ratio.
func (it Item) Ratio() float64 {
	if it.WidthIn == 0 {
		return 1
	}
	return it.HeightIn / it.WidthIn
}

// clamp enforces the dimensional floors and rotation steps. Called by the
// store after every mutation so no observer ever sees a degenerate item.
// Linked items scale both axes uniformly to the floor so the aspect ratio
// survives clamping.
func (it *Item) clamp() {
	if it.Linked && it.WidthIn > 0 && it.HeightIn > 0 &&
		(it.WidthIn < MinSizeIn || it.HeightIn < MinSizeIn) {
		ratio := it.HeightIn / it.WidthIn
		if it.WidthIn <= it.HeightIn {
			it.WidthIn = MinSizeIn
			it.HeightIn = MinSizeIn * ratio
		} else {
			it.HeightIn = MinSizeIn
			it.WidthIn = MinSizeIn / ratio
		}
	}
	if it.WidthIn < MinSizeIn {
		it.WidthIn = MinSizeIn
	}
	if it.HeightIn < MinSizeIn {
		it.HeightIn = MinSizeIn
	}
	if it.Copies < MinCopies {
		it.Copies = MinCopies
	}
	it.Rotation = ((it.Rotation % 360) + 360) % 360
	it.Rotation = int(math.Round(float64(it.Rotation)/90)) % 4 * 90
}
