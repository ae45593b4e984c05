package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/zatekoja/feediq/internal/app"
)

// dashboardCmd prints the metrics bundle
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print the dashboard metrics as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			bundle, err := a.Service.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(bundle)
		})
	},
}
