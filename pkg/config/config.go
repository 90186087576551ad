// Package config loads and validates artboard configuration.
//
// Configuration comes from an optional TOML file with CLI flags layered on
// top. All dimensions are physical inches; the pixel density used to convert
// pointer deltas is fixed at 96 pixels per inch to match the host surface.
//
// # Example
//
//	[canvas]
//	width = 24.0
//	margin = 0.5
//	spacing = 0.5
//	auto_nest = true
//
//	[pricing]
//	per_square_foot = 5.5
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/gangsheet/pkg/errors"
)

// Fixed conversion constants shared by the whole engine.
const (
	// PixelsPerInch is the screen density used to convert pointer pixels to inches.
	PixelsPerInch = 96.0

	// SquareInchesPerSquareFoot converts item areas to square feet.
	SquareInchesPerSquareFoot = 144.0
)

// Default configuration values.
const (
	DefaultCanvasWidthIn  = 24.0
	DefaultCanvasHeightIn = 19.5
	DefaultMarginIn       = 0.25
	DefaultSpacingIn      = 0.5
	DefaultPricePerSqFt   = 5.5
	DefaultItemPrice      = 12.34
	DefaultGridPx         = 20.0
)

// ValidMargins is the enumerated set of allowed page margins in inches.
var ValidMargins = []float64{0.25, 0.5, 1.0}

// Canvas holds the layout surface configuration.
type Canvas struct {
	WidthIn   float64 `toml:"width"`
	HeightIn  float64 `toml:"height"`
	MarginIn  float64 `toml:"margin"`
	SpacingIn float64 `toml:"spacing"`

	// AutoNest enables algorithmic row packing. When disabled items keep
	// their free-form positions.
	AutoNest bool `toml:"auto_nest"`

	// SnapToGrid snaps free-form positions to the grid unit.
	SnapToGrid bool `toml:"snap_to_grid"`

	// AllowManualNestDrag permits free-form dragging while auto-nest is
	// enabled. When false (the default) a drag under auto-nest reorders
	// items instead of moving them.
	AllowManualNestDrag bool `toml:"allow_manual_nest_drag"`

	// GridPx is the snap grid pitch in screen pixels at zoom 1.
	GridPx float64 `toml:"grid_px"`
}

// Pricing holds price derivation settings.
type Pricing struct {
	PerSquareFoot float64 `toml:"per_square_foot"`
	ItemFlatPrice float64 `toml:"item_flat_price"`
}

// Config is the full engine configuration.
type Config struct {
	Canvas  Canvas  `toml:"canvas"`
	Pricing Pricing `toml:"pricing"`
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Canvas: Canvas{
			WidthIn:   DefaultCanvasWidthIn,
			HeightIn:  DefaultCanvasHeightIn,
			MarginIn:  DefaultMarginIn,
			SpacingIn: DefaultSpacingIn,
			GridPx:    DefaultGridPx,
		},
		Pricing: Pricing{
			PerSquareFoot: DefaultPricePerSqFt,
			ItemFlatPrice: DefaultItemPrice,
		},
	}
}

// Load reads a TOML config file and merges it over the defaults.
// A missing file is not an error; the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	return c.Canvas.Validate()
}

// Validate checks the canvas invariants.
func (c Canvas) Validate() error {
	if c.WidthIn <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "canvas width must be positive, got %v", c.WidthIn)
	}
	if c.SpacingIn < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "spacing must be non-negative, got %v", c.SpacingIn)
	}
	if !validMargin(c.MarginIn) {
		return errors.New(errors.ErrCodeInvalidMargin, "margin must be one of %v, got %v", ValidMargins, c.MarginIn)
	}
	if c.GridPx <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "grid pitch must be positive, got %v", c.GridPx)
	}
	return nil
}

// GridUnitIn returns the snap grid pitch in inches.
func (c Canvas) GridUnitIn() float64 {
	return c.GridPx / PixelsPerInch
}

func validMargin(m float64) bool {
	for _, v := range ValidMargins {
		if m == v {
			return true
		}
	}
	return false
}
