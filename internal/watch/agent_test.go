package watch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/casescope/casescope/internal/cases"
	"github.com/casescope/casescope/internal/config"
	"github.com/casescope/casescope/internal/dashboard"
	"github.com/casescope/casescope/internal/model"
	"github.com/casescope/casescope/internal/query"
	"github.com/casescope/casescope/internal/tasks"
	"github.com/casescope/casescope/internal/transport"
)

func newTestAgent(t *testing.T, handler http.Handler) (*Agent, *query.Store) {
	t.Helper()
	backend := httptest.NewServer(handler)
	t.Cleanup(backend.Close)

	client, err := transport.New(transport.Config{BaseURL: backend.URL + "/api"}, nil, nil, nil)
	if err != nil {
		t.Fatalf("transport: %v", err)
	}
	reg := prometheus.NewRegistry()
	store := query.NewStore(query.Options{GCTimeout: time.Minute, Metrics: query.NewMetrics(reg)})

	agent := New(
		config.WatchConfig{Address: "127.0.0.1:0", PollInterval: time.Hour},
		cases.NewQueries(cases.NewService(client), store),
		tasks.NewQueries(tasks.NewService(client), store),
		dashboard.NewQueries(dashboard.NewService(client), store),
		store,
		reg,
		nil,
	)
	return agent, store
}

func backendHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var data any
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/cases/by-status/"):
			data = []model.Case{{ID: "C1", Status: model.CasePendingApproval}}
		case r.URL.Path == "/api/tasks/overdue":
			data = []model.Task{{ID: "T1"}, {ID: "T2"}}
		case r.URL.Path == "/api/dashboard/stats":
			data = model.DashboardStats{TotalCases: 7}
		default:
			data = map[string]any{}
		}
		raw, err := json.Marshal(data)
		if err != nil {
			t.Errorf("marshal: %v", err)
		}
		_ = json.NewEncoder(w).Encode(model.Envelope{Data: raw, Success: true, Timestamp: time.Now().UTC()})
	})
}

func TestHealthz(t *testing.T) {
	agent, _ := newTestAgent(t, backendHandler(t))
	rec := httptest.NewRecorder()
	agent.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
}

func TestStatusReflectsSubscriptions(t *testing.T) {
	agent, _ := newTestAgent(t, backendHandler(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	approvals := agent.caseQ.SubscribeApprovalQueue(ctx, model.Page{Size: 50})
	defer approvals.Close()
	overdue := agent.taskQ.SubscribeOverdue(ctx, model.Page{Size: 50})
	defer overdue.Close()
	stats := agent.dashQ.SubscribeStats(ctx)
	defer stats.Close()

	go agent.consumeApprovals(ctx, approvals)
	go agent.consumeOverdue(ctx, overdue)
	go agent.consumeStats(ctx, stats)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s := agent.Snapshot()
		if len(s.ApprovalQueue) == 1 && len(s.Overdue) == 2 && s.Stats.TotalCases == 7 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec := httptest.NewRecorder()
	agent.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.ApprovalQueue) != 1 || snap.ApprovalQueue[0].ID != "C1" {
		t.Fatalf("approval queue = %+v", snap.ApprovalQueue)
	}
	if len(snap.Overdue) != 2 {
		t.Fatalf("overdue = %+v", snap.Overdue)
	}
	if snap.Stats.TotalCases != 7 {
		t.Fatalf("stats = %+v", snap.Stats)
	}
	if snap.Degraded {
		t.Fatalf("unexpected degraded flag: %s", snap.LastError)
	}
}

func TestMetricsExported(t *testing.T) {
	agent, store := newTestAgent(t, backendHandler(t))

	// Exercise the cache so the counters exist with samples.
	if _, err := agent.dashQ.Stats(context.Background()); err != nil {
		t.Fatalf("stats: %v", err)
	}
	store.Invalidate(query.Prefix("dashboard"))

	rec := httptest.NewRecorder()
	agent.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "casescope_query_cache_misses_total") {
		t.Fatalf("missing cache counter in exposition:\n%s", body)
	}
	if !strings.Contains(body, "casescope_query_invalidations_total") {
		t.Fatal("missing invalidation counter in exposition")
	}
}
