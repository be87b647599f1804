// Package watch is the long-running agent mode. It keeps live
// subscriptions on the approval queue, overdue tasks and dashboard
// aggregates, and serves their latest snapshot plus prometheus metrics
// over HTTP.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/casescope/casescope/internal/cases"
	"github.com/casescope/casescope/internal/config"
	"github.com/casescope/casescope/internal/dashboard"
	"github.com/casescope/casescope/internal/model"
	"github.com/casescope/casescope/internal/query"
	"github.com/casescope/casescope/internal/tasks"
)

// Snapshot is the agent's latest converged view.
type Snapshot struct {
	ApprovalQueue []model.Case         `json:"approvalQueue"`
	Overdue       []model.Task         `json:"overdue"`
	Stats         model.DashboardStats `json:"stats"`
	RefreshedAt   time.Time            `json:"refreshedAt"`
	Degraded      bool                 `json:"degraded"`
	LastError     string               `json:"lastError,omitempty"`
}

// Agent wires the query layer to an HTTP status surface.
type Agent struct {
	cfg    config.WatchConfig
	caseQ  *cases.Queries
	taskQ  *tasks.Queries
	dashQ  *dashboard.Queries
	store  *query.Store
	reg    *prometheus.Registry
	logger *slog.Logger
	router *gin.Engine

	mu   sync.RWMutex
	snap Snapshot
}

// New creates the watch agent. reg carries the query-cache counters and
// is served on /metrics.
func New(cfg config.WatchConfig, caseQ *cases.Queries, taskQ *tasks.Queries, dashQ *dashboard.Queries, store *query.Store, reg *prometheus.Registry, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(otelgin.Middleware("casescope-watch"))

	a := &Agent{
		cfg:    cfg,
		caseQ:  caseQ,
		taskQ:  taskQ,
		dashQ:  dashQ,
		store:  store,
		reg:    reg,
		logger: logger,
		router: r,
	}
	a.routes()
	return a
}

func (a *Agent) routes() {
	a.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	a.router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, a.Snapshot())
	})
	if a.reg != nil {
		a.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{})))
	}
}

// Snapshot returns the latest converged view.
func (a *Agent) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

// Run starts the subscription consumers, the poll loop, the cache GC
// and the HTTP server, and blocks until the context ends.
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	approvals := a.caseQ.SubscribeApprovalQueue(ctx, model.Page{Size: 50})
	defer approvals.Close()
	overdue := a.taskQ.SubscribeOverdue(ctx, model.Page{Size: 50})
	defer overdue.Close()
	stats := a.dashQ.SubscribeStats(ctx)
	defer stats.Close()

	go a.consumeApprovals(ctx, approvals)
	go a.consumeOverdue(ctx, overdue)
	go a.consumeStats(ctx, stats)
	go a.poll(ctx)
	go a.store.Run(ctx)

	srv := &http.Server{Addr: a.cfg.Address, Handler: a.router}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	a.logger.Info("watch agent listening", "address", a.cfg.Address)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *Agent) consumeApprovals(ctx context.Context, sub *query.Subscription[model.PageOf[model.Case]]) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-sub.Updates():
			if r.Status != query.StatusSuccess {
				a.recordError(r.Err)
				continue
			}
			a.mu.Lock()
			prev := len(a.snap.ApprovalQueue)
			a.snap.ApprovalQueue = r.Data.Items
			a.snap.RefreshedAt = time.Now().UTC()
			a.setErrLocked(r.Err)
			a.mu.Unlock()
			if len(r.Data.Items) != prev {
				a.logger.Info("approval queue changed", "pending", len(r.Data.Items))
			}
		}
	}
}

func (a *Agent) consumeOverdue(ctx context.Context, sub *query.Subscription[model.PageOf[model.Task]]) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-sub.Updates():
			if r.Status != query.StatusSuccess {
				a.recordError(r.Err)
				continue
			}
			a.mu.Lock()
			prev := len(a.snap.Overdue)
			a.snap.Overdue = r.Data.Items
			a.snap.RefreshedAt = time.Now().UTC()
			a.setErrLocked(r.Err)
			a.mu.Unlock()
			if len(r.Data.Items) > prev {
				a.logger.Warn("overdue tasks increased", "overdue", len(r.Data.Items))
			}
		}
	}
}

func (a *Agent) consumeStats(ctx context.Context, sub *query.Subscription[model.DashboardStats]) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-sub.Updates():
			if r.Status != query.StatusSuccess {
				a.recordError(r.Err)
				continue
			}
			a.mu.Lock()
			a.snap.Stats = r.Data
			a.snap.RefreshedAt = time.Now().UTC()
			a.setErrLocked(r.Err)
			a.mu.Unlock()
		}
	}
}

// poll re-reads the watched queries on the configured interval. Stale
// entries serve immediately and refetch in the background, which feeds
// the subscriptions above.
func (a *Agent) poll(ctx context.Context) {
	interval := a.cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := a.caseQ.ApprovalQueue(ctx, model.Page{Size: 50}); err != nil {
				a.recordError(err)
			}
			if _, err := a.taskQ.Overdue(ctx, model.Page{Size: 50}); err != nil {
				a.recordError(err)
			}
			if _, err := a.dashQ.Stats(ctx); err != nil {
				a.recordError(err)
			}
		}
	}
}

func (a *Agent) recordError(err error) {
	if err == nil {
		return
	}
	a.logger.Warn("watch refresh failed", "error", err)
	a.mu.Lock()
	a.setErrLocked(err)
	a.mu.Unlock()
}

func (a *Agent) setErrLocked(err error) {
	if err != nil {
		a.snap.Degraded = true
		a.snap.LastError = err.Error()
	} else {
		a.snap.Degraded = false
		a.snap.LastError = ""
	}
}
