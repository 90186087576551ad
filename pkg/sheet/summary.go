package sheet

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/matzehuels/gangsheet/pkg/config"
)

// DisplayName is the human-readable name reported for every gang sheet.
const DisplayName = "Gang Sheet"

// Summary is the externally consumed projection of a sheet: totals for the
// header display and checkout collaborators. It is a pure function of the
// item list and configuration, recomputed on every change.
type Summary struct {
	HasAnyItem     bool     `json:"has_any_item"`
	TotalAreaSqFt  float64  `json:"total_area_sq_ft"`
	CanvasWidthIn  float64  `json:"canvas_width_in"`
	CanvasHeightIn float64  `json:"canvas_height_in"`
	DisplayName    string   `json:"display_name"`
	TotalPrice     float64  `json:"total_price"`
	ImageNames     []string `json:"image_names"`
}

// Summarize derives the summary for the given items and configuration.
// Print area sums each item's width x height x copies in square feet.
// Price rounds at each step the way the storefront displays it, so the
// total matches the sum of the per-item lines a customer sees.
func Summarize(items []Item, canvas config.Canvas, pricing config.Pricing) Summary {
	var areaSqIn, totalPrice float64
	names := make([]string, 0, len(items))
	for _, it := range items {
		copies := float64(it.Copies)
		areaSqIn += it.WidthIn * it.HeightIn * copies

		w := round2(it.WidthIn)
		h := round2(it.HeightIn)
		itemAreaSf := round2(w * h / config.SquareInchesPerSquareFoot)
		totalPrice += round2(itemAreaSf * pricing.PerSquareFoot * copies)

		names = append(names, itemDisplayName(it))
	}
	return Summary{
		HasAnyItem:     len(items) > 0,
		TotalAreaSqFt:  round2(areaSqIn / config.SquareInchesPerSquareFoot),
		CanvasWidthIn:  canvas.WidthIn,
		CanvasHeightIn: canvas.HeightIn,
		DisplayName:    DisplayName,
		TotalPrice:     round2(totalPrice),
		ImageNames:     names,
	}
}

// SetOnSummary registers a summary observer on the store: after every
// mutation fn receives the freshly projected summary. It occupies the
// store's change callback slot.
func (s *Store) SetOnSummary(canvas config.Canvas, pricing config.Pricing, fn func(Summary)) {
	s.SetOnChange(func() {
		fn(Summarize(s.Items(), canvas, pricing))
	})
}

// itemDisplayName strips the file extension from the source name, falling
// back to the item id for items without one.
func itemDisplayName(it Item) string {
	name := it.Name
	if name == "" {
		name = fmt.Sprintf("Item #%d", it.ID)
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
