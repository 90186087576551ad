package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gangsheet/pkg/units"
)

// probeCommand creates the probe command for inspecting image resolution.
func (c *CLI) probeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe [image...]",
		Short: "Resolve the physical print size of image files",
		Long: `Resolve the physical print size of image files.

For each image the embedded resolution metadata (JFIF density, PNG pHYs) is
probed and combined with the pixel dimensions into a physical size in inches.
Images without metadata fall back to 150 DPI. Anything below 300 DPI is
flagged as low quality for transfer printing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runProbe(args)
		},
	}
	return cmd
}

func (c *CLI) runProbe(paths []string) error {
	failed := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			printError("%s: %v", path, err)
			failed++
			continue
		}
		info, err := units.Resolve(data)
		if err != nil {
			printError("%s: %v", path, err)
			failed++
			continue
		}

		quality := StyleSuccess.Render("print quality")
		if info.LowDPI {
			quality = StyleWarning.Render("low resolution")
		}
		fmt.Printf("%s  %dx%d px @ %d dpi  %s  %s\n",
			StyleValue.Render(path),
			info.WidthPx, info.HeightPx, info.DPI,
			StyleDim.Render(fmt.Sprintf("%.2f x %.2f in", info.WidthIn, info.HeightIn)),
			quality,
		)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}
