package events

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casescope/casescope/internal/cases"
	"github.com/casescope/casescope/internal/query"
	"github.com/casescope/casescope/internal/tasks"
)

func prime(t *testing.T, s *query.Store, key query.Key) *atomic.Int64 {
	t.Helper()
	calls := &atomic.Int64{}
	fetch := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "v", nil
	}
	if _, err := query.Get(context.Background(), s, key, time.Hour, fetch); err != nil {
		t.Fatalf("prime %s: %v", key, err)
	}
	return calls
}

func refetched(t *testing.T, s *query.Store, key query.Key, calls *atomic.Int64) bool {
	t.Helper()
	fetch := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "v", nil
	}
	if _, err := query.Get(context.Background(), s, key, time.Hour, fetch); err != nil {
		t.Fatalf("reread %s: %v", key, err)
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if calls.Load() == 2 {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return calls.Load() == 2
}

func TestCaseTransitionEventMatchesMutationFanOut(t *testing.T) {
	s := query.NewStore(query.Options{GCTimeout: time.Minute})
	inv := &Invalidator{store: s, logger: slog.Default()}

	detail := cases.DetailKey("C1")
	byStatus := query.NewKey(cases.Domain, "by-status", "PENDING_APPROVAL", "{}")
	stats := cases.StatisticsKey()
	audit := cases.AuditKey("C1")
	comments := cases.CommentsKey("C1")
	otherDetail := cases.DetailKey("C2")

	counters := map[string]*atomic.Int64{}
	keys := map[string]query.Key{
		"detail": detail, "byStatus": byStatus, "stats": stats,
		"audit": audit, "comments": comments, "otherDetail": otherDetail,
	}
	for name, k := range keys {
		counters[name] = prime(t, s, k)
	}

	inv.onCaseTransition(Event{EntityID: "C1", Status: "PENDING_APPROVAL"})

	for _, name := range []string{"detail", "byStatus", "stats", "audit"} {
		if !refetched(t, s, keys[name], counters[name]) {
			t.Errorf("%s: not invalidated by the event", name)
		}
	}
	for _, name := range []string{"comments", "otherDetail"} {
		if refetched(t, s, keys[name], counters[name]) {
			t.Errorf("%s: invalidated without cause", name)
		}
	}
}

func TestTaskTransitionEvent(t *testing.T) {
	s := query.NewStore(query.Options{GCTimeout: time.Minute})
	inv := &Invalidator{store: s, logger: slog.Default()}

	detail := tasks.DetailKey("T1")
	stats := tasks.StatisticsKey()
	comments := tasks.CommentsKey("T1")

	cDetail := prime(t, s, detail)
	cStats := prime(t, s, stats)
	cComments := prime(t, s, comments)

	inv.onTaskTransition(Event{EntityID: "T1", Status: "COMPLETED"})

	if !refetched(t, s, detail, cDetail) {
		t.Error("detail: not invalidated")
	}
	if !refetched(t, s, stats, cStats) {
		t.Error("statistics: not invalidated")
	}
	if refetched(t, s, comments, cComments) {
		t.Error("comments: invalidated without cause")
	}
}

func TestEventWithoutEntityIgnored(t *testing.T) {
	s := query.NewStore(query.Options{GCTimeout: time.Minute})
	inv := &Invalidator{store: s, logger: slog.Default()}

	detail := cases.DetailKey("C1")
	calls := prime(t, s, detail)

	inv.onCaseTransition(Event{})

	if refetched(t, s, detail, calls) {
		t.Error("empty event invalidated the cache")
	}
}
