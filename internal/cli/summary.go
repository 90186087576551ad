package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gangsheet/pkg/sheet"
)

// summaryCommand creates the summary command for pricing a snapshot.
func (c *CLI) summaryCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summary [sheet.json]",
		Short: "Summarize a sheet: print area, price, image list",
		Long: `Summarize a sheet snapshot the way the storefront header does:
total print area in square feet, the derived price, and the image names.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSummary(args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the summary as JSON")

	return cmd
}

func (c *CLI) runSummary(input string, asJSON bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	st := sheet.NewStore()
	if err := st.ImportFile(input); err != nil {
		return fmt.Errorf("load sheet %s: %w", input, err)
	}

	sum := sheet.Summarize(st.Items(), cfg.Canvas, cfg.Pricing)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	fmt.Println(StyleTitle.Render(sum.DisplayName))
	printKeyValue("canvas", fmt.Sprintf("%g x %g in", sum.CanvasWidthIn, sum.CanvasHeightIn))
	printKeyValue("items", fmt.Sprintf("%d", st.Len()))
	printKeyValue("print area", fmt.Sprintf("%.2f sq ft", sum.TotalAreaSqFt))
	printKeyValue("price", fmt.Sprintf("$%.2f", sum.TotalPrice))
	if len(sum.ImageNames) > 0 {
		printKeyValue("images", strings.Join(sum.ImageNames, ", "))
	}
	return nil
}
