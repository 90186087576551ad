package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gangsheet/pkg/sheet"
	"github.com/matzehuels/gangsheet/pkg/store"
)

// sheetsCommand creates the sheets command group for saved-sheet management.
func (c *CLI) sheetsCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Manage locally saved sheets",
	}
	cmd.PersistentFlags().StringVar(&dir, "sheets-dir", "", "directory for file-based sheet storage")

	cmd.AddCommand(c.sheetsListCommand(&dir))
	cmd.AddCommand(c.sheetsSaveCommand(&dir))
	cmd.AddCommand(c.sheetsExportCommand(&dir))
	cmd.AddCommand(c.sheetsDeleteCommand(&dir))

	return cmd
}

func openSheetStore(dir string) (*store.FileStore, error) {
	if dir == "" {
		dir = sheetsDir()
	}
	return store.NewFileStore(dir)
}

func (c *CLI) sheetsListCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSheetStore(*dir)
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				printDetail("no saved sheets in %s", s.Path())
				return nil
			}
			for _, rec := range recs {
				fmt.Printf("%s  %s  %s\n",
					StyleValue.Render(rec.ID),
					rec.Name,
					StyleDim.Render(fmt.Sprintf("%d items, updated %s", len(rec.Snapshot.Items), rec.UpdatedAt.Format("2006-01-02 15:04"))),
				)
			}
			return nil
		},
	}
}

func (c *CLI) sheetsSaveCommand(dir *string) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save [sheet.json]",
		Short: "Save a snapshot file as a named sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := sheet.NewStore()
			if err := st.ImportFile(args[0]); err != nil {
				return fmt.Errorf("load sheet %s: %w", args[0], err)
			}

			s, err := openSheetStore(*dir)
			if err != nil {
				return err
			}
			defer s.Close()

			rec := store.Record{Name: name, Snapshot: st.Export()}
			if err := s.Save(cmd.Context(), &rec); err != nil {
				return err
			}
			printSuccess("Saved sheet %s", rec.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name for the sheet")

	return cmd
}

func (c *CLI) sheetsExportCommand(dir *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export a saved sheet back to a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSheetStore(*dir)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			st := sheet.NewStore()
			if err := st.Import(rec.Snapshot); err != nil {
				return err
			}
			outputPath := output
			if outputPath == "" {
				outputPath = rec.ID + ".json"
			}
			if err := st.ExportFile(outputPath); err != nil {
				return err
			}
			printSuccess("Exported %q", rec.Name)
			printFile(outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <id>.json)")

	return cmd
}

func (c *CLI) sheetsDeleteCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a saved sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSheetStore(*dir)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Deleted %s", args[0])
			return nil
		},
	}
}
