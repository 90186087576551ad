package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gangsheet/pkg/render/preview"
	"github.com/matzehuels/gangsheet/pkg/sheet"
)

// previewCommand creates the preview command for rendering a snapshot to PNG.
func (c *CLI) previewCommand() *cobra.Command {
	var (
		output string
		scale  float64
		grid   bool
		labels bool
	)

	cmd := &cobra.Command{
		Use:   "preview [sheet.json]",
		Short: "Render a sheet snapshot as a PNG preview",
		Long: `Render a sheet snapshot as a PNG preview.

Items are drawn as labeled rectangles on the canvas, with copy groups tiled
the way the layout engine sees them and the printable region outlined.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPreview(args[0], output, scale, grid, labels)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.png)")
	cmd.Flags().Float64Var(&scale, "scale", preview.DefaultScale, "resolution in pixels per inch")
	cmd.Flags().BoolVar(&grid, "grid", false, "overlay the snapping grid")
	cmd.Flags().BoolVar(&labels, "labels", true, "draw item names")

	return cmd
}

func (c *CLI) runPreview(input, output string, scale float64, grid, labels bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	st := sheet.NewStore()
	if err := st.ImportFile(input); err != nil {
		return fmt.Errorf("load sheet %s: %w", input, err)
	}

	opts := []preview.Option{preview.WithScale(scale)}
	if grid {
		opts = append(opts, preview.WithGrid(cfg.Canvas.GridUnitIn()))
	}
	if labels {
		opts = append(opts, preview.WithLabels())
	}

	png, err := preview.Render(st.Items(), cfg.Canvas, opts...)
	if err != nil {
		return fmt.Errorf("render preview: %w", err)
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + ".png"
	}
	if err := os.WriteFile(outputPath, png, 0644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Rendered %d items", st.Len())
	printFile(outputPath)
	printNewline()

	return nil
}
