package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gangsheet/pkg/sheet"
	"github.com/matzehuels/gangsheet/pkg/sheet/layout"
)

// nestCommand creates the nest command for auto-nesting a snapshot.
func (c *CLI) nestCommand() *cobra.Command {
	var (
		output string
		width  float64
		margin float64
	)

	cmd := &cobra.Command{
		Use:   "nest [sheet.json]",
		Short: "Auto-nest a sheet snapshot into packed rows",
		Long: `Auto-nest a sheet snapshot into packed rows.

The nest command takes a sheet snapshot (as saved by the editor or the API)
and recomputes every item position with the row-packing layout: items fill
left to right, overflowing rows wrap, and each row is centered on the canvas.
Items mid-arrival are left untouched.

The output is a snapshot with updated positions, written next to the input
unless -o is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runNest(args[0], output, width, margin)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.nested.json)")
	cmd.Flags().Float64Var(&width, "width", 0, "canvas width in inches (default: config)")
	cmd.Flags().Float64Var(&margin, "margin", 0, "page margin in inches (default: config)")

	return cmd
}

func (c *CLI) runNest(input, output string, width, margin float64) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if width > 0 {
		cfg.Canvas.WidthIn = width
	}
	if margin > 0 {
		cfg.Canvas.MarginIn = margin
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	st := sheet.NewStore()
	if err := st.ImportFile(input); err != nil {
		return fmt.Errorf("load sheet %s: %w", input, err)
	}

	opts := layout.Options{
		CanvasWidthIn: cfg.Canvas.WidthIn,
		SpacingIn:     cfg.Canvas.SpacingIn,
		MarginIn:      cfg.Canvas.MarginIn,
	}
	moved := layout.Apply(st, opts)

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + ".nested.json"
	}
	if err := st.ExportFile(outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Nested %d items", st.Len())
	printFile(outputPath)
	printDetail("sheet height %.2f in", layout.Height(st.Items(), opts))
	if !moved {
		printDetail("layout was already settled")
	}
	printNewline()

	return nil
}
