package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zatekoja/feediq/internal/analytics"
	"github.com/zatekoja/feediq/internal/app"
)

var exportOut string

// exportCmd writes every record as CSV
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all feedback as CSV",
	Long: `Writes every stored record, in store order, with the columns
Name, Email, Rating, Comment, Date and Time. Use --out - to write to stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			if exportOut == "-" {
				return a.Service.ExportCSV(cmd.Context(), cmd.OutOrStdout())
			}

			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOut, err)
			}
			if err := a.Service.ExportCSV(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", exportOut)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", analytics.ExportFilename, "output file")
}
