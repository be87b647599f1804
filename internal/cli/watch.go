package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/casescope/casescope/internal/events"
	"github.com/casescope/casescope/internal/watch"
	"github.com/casescope/casescope/pkg/telemetry"
)

func newWatchCmd(appOf func() *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the watch agent: live approval queue, overdue tasks and stats",
		Long: "Watch keeps the approval queue, overdue task pool and dashboard\n" +
			"statistics warm, serves them over HTTP and exposes cache metrics.\n" +
			"With events configured it also applies backend invalidation pushes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			cfg := app.Config.Watch
			if addr != "" {
				cfg.Address = addr
			}

			if endpoint := app.Config.Telemetry.OtlpEndpoint; endpoint != "" {
				shutdown, err := telemetry.Init(cmd.Context(), "casescope-watch", endpoint)
				if err != nil {
					return err
				}
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := shutdown(ctx); err != nil {
						app.Logger.Warn("telemetry shutdown", "error", err)
					}
				}()
			}

			if app.Config.Events.NatsURL != "" {
				inv, err := events.New(app.Config.Events.NatsURL, app.Config.Events.SubjectPrefix, app.Store, app.Logger)
				if err != nil {
					return err
				}
				if err := inv.Start(); err != nil {
					return err
				}
				defer inv.Close()
				app.Logger.Info("event invalidation enabled", "url", app.Config.Events.NatsURL)
			}

			agent := watch.New(cfg, app.Cases, app.Tasks, app.Dash, app.Store, app.Registry, app.Logger)
			return agent.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "listen", "", "override the listen address")
	return cmd
}
