// Package cli wires the transport, services and query layer into the
// casescope command tree. Commands subscribe through the query layer
// and render results; they hold no business logic.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/casescope/casescope/internal/cases"
	"github.com/casescope/casescope/internal/config"
	"github.com/casescope/casescope/internal/dashboard"
	"github.com/casescope/casescope/internal/query"
	"github.com/casescope/casescope/internal/session"
	"github.com/casescope/casescope/internal/tasks"
	"github.com/casescope/casescope/internal/transport"
	logpkg "github.com/casescope/casescope/pkg/log"
)

// App is the composition root shared by every command.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Session  *session.Store
	Store    *query.Store
	Registry *prometheus.Registry
	Cases    *cases.Queries
	Tasks    *tasks.Queries
	Dash     *dashboard.Queries
}

// NewRoot builds the command tree. The app is assembled once in the
// persistent pre-run so every subcommand shares one cache.
func NewRoot() *cobra.Command {
	var (
		configPath string
		app        *App
	)

	root := &cobra.Command{
		Use:           "casescope",
		Short:         "Terminal client for the case-management backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			built, err := NewApp(configPath)
			if err != nil {
				return err
			}
			app = built
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	appOf := func() *App { return app }
	root.AddCommand(
		newLoginCmd(appOf),
		newLogoutCmd(appOf),
		newWhoamiCmd(appOf),
		newCasesCmd(appOf),
		newTasksCmd(appOf),
		newDashboardCmd(appOf),
		newWatchCmd(appOf),
	)
	return root
}

// NewApp assembles the shared dependencies from configuration.
func NewApp(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := logpkg.New("casescope", cfg.Telemetry.OtlpEndpoint != "")

	sess, err := session.Open(cfg.Session.Path)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	client, err := transport.New(transport.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
	}, sess, func() {
		if err := sess.Clear(); err != nil {
			logger.Warn("clear session", "error", err)
		}
		logger.Warn("session expired, please log in again")
	}, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	store := query.NewStore(query.Options{
		Retries:   cfg.Cache.Retries,
		GCTimeout: cfg.Cache.GCTimeout,
		Logger:    logger,
		Metrics:   query.NewMetrics(reg),
	})

	caseSvc := cases.NewService(client)
	taskSvc := tasks.NewService(client)
	dashSvc := dashboard.NewService(client)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Session:  sess,
		Store:    store,
		Registry: reg,
		Cases:    cases.NewQueries(caseSvc, store),
		Tasks:    tasks.NewQueries(taskSvc, store),
		Dash:     dashboard.NewQueries(dashSvc, store),
	}, nil
}
