package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gangsheet/pkg/sheet/crop"
)

// cropCommand creates the crop command for alpha-channel auto-cropping.
func (c *CLI) cropCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "crop [image]",
		Short: "Crop an image to its visible pixels",
		Long: `Crop an image to the minimal rectangle containing visible pixels.

Pixels with alpha at or below the noise threshold count as transparent. The
cropped image is re-encoded as PNG and its physical size re-derived, exactly
as the auto-crop toggle does in the editor.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCrop(args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.cropped.png)")

	return cmd
}

func (c *CLI) runCrop(input, output string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	res, err := crop.Crop(data)
	if err != nil {
		return fmt.Errorf("crop %s: %w", input, err)
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + ".cropped.png"
	}
	if err := os.WriteFile(outputPath, res.PNG, 0644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Cropped to %dx%d px", res.WidthPx, res.HeightPx)
	printFile(outputPath)
	printDetail("%.2f x %.2f in at print resolution", res.WidthIn, res.HeightIn)
	printNewline()

	return nil
}
