package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casescope/casescope/internal/model"
	"github.com/casescope/casescope/internal/query"
	"github.com/casescope/casescope/internal/transport"
)

func newTestQueries(t *testing.T, handler http.Handler) (*Queries, *query.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := transport.New(transport.Config{BaseURL: srv.URL + "/api"}, nil, nil, nil)
	if err != nil {
		t.Fatalf("transport: %v", err)
	}
	store := query.NewStore(query.Options{GCTimeout: time.Minute})
	return NewQueries(NewService(client), store), store
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_ = json.NewEncoder(w).Encode(model.Envelope{Data: raw, Success: true, Timestamp: time.Now().UTC()})
}

func TestStatsCachedUnderDashboardPrefix(t *testing.T) {
	var calls atomic.Int64
	q, store := newTestQueries(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(t, w, model.DashboardStats{TotalCases: 12})
	}))
	ctx := context.Background()

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalCases != 12 {
		t.Fatalf("total = %d", stats.TotalCases)
	}
	if _, err := q.Stats(ctx); err != nil {
		t.Fatalf("cached stats: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("fresh stats refetched, %d calls", n)
	}

	// A case mutation invalidates the whole dashboard domain.
	store.Invalidate(query.Prefix(Domain))
	if _, err := q.Stats(ctx); err != nil {
		t.Fatalf("stale stats: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() != 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("invalidated stats not refetched, %d calls", n)
	}
}

func TestRecentActivityLimit(t *testing.T) {
	var gotLimit string
	q, _ := newTestQueries(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		writeEnvelope(t, w, []model.RecentActivity{{ID: "a1"}})
	}))

	feed, err := q.RecentActivity(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent activity: %v", err)
	}
	if gotLimit != "5" {
		t.Fatalf("limit = %q", gotLimit)
	}
	if len(feed) != 1 || feed[0].ID != "a1" {
		t.Fatalf("feed = %+v", feed)
	}
}
