package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newDashboardCmd(appOf func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Workload overview",
	}
	cmd.AddCommand(newDashboardStatsCmd(appOf), newDashboardActivityCmd(appOf))
	return cmd
}

func newDashboardStatsCmd(appOf func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate case and task counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			stats, err := app.Dash.Stats(cmd.Context())
			if err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
	return cmd
}

func newDashboardActivityCmd(appOf func() *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent activity across cases and tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			items, err := app.Dash.RecentActivity(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no recent activity")
				return nil
			}
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s %s (%s)\n",
					item.Timestamp.Format(time.RFC3339), item.Type, item.Title, item.User)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries")
	return cmd
}
