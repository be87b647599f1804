// Package dashboard serves the aggregate stats and activity feed shown
// on the landing view. Case mutations invalidate this domain as a whole.
package dashboard

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/casescope/casescope/internal/model"
	"github.com/casescope/casescope/internal/query"
	"github.com/casescope/casescope/internal/transport"
)

// Domain is the first key segment for every dashboard cache entry.
const Domain = "dashboard"

const (
	ttlStats    = 5 * time.Minute
	ttlActivity = time.Minute
)

// StatsKey derives the cache key for the dashboard aggregates.
func StatsKey() query.Key { return query.NewKey(Domain, "stats") }

// ActivityKey derives the cache key for the recent-activity feed.
func ActivityKey(limit int) query.Key {
	return query.NewKey(Domain, "recent-activity", strconv.Itoa(limit))
}

// Service performs the dashboard HTTP calls.
type Service struct {
	client *transport.Client
}

// NewService creates a dashboard service over the shared transport.
func NewService(client *transport.Client) *Service {
	return &Service{client: client}
}

// Stats fetches the dashboard aggregates.
func (s *Service) Stats(ctx context.Context) (model.DashboardStats, error) {
	env, err := s.client.Get(ctx, "dashboard/stats", nil)
	if err != nil {
		return model.DashboardStats{}, err
	}
	return model.Decode[model.DashboardStats](env)
}

// RecentActivity fetches the newest activity entries.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]model.RecentActivity, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	env, err := s.client.Get(ctx, "dashboard/recent-activity", params)
	if err != nil {
		return nil, err
	}
	return model.Decode[[]model.RecentActivity](env)
}

// Queries binds the dashboard service to the query store.
type Queries struct {
	svc   *Service
	store *query.Store
}

// NewQueries creates the cached view over a dashboard service.
func NewQueries(svc *Service, store *query.Store) *Queries {
	return &Queries{svc: svc, store: store}
}

func (q *Queries) Stats(ctx context.Context) (model.DashboardStats, error) {
	return query.Get(ctx, q.store, StatsKey(), ttlStats, func(ctx context.Context) (model.DashboardStats, error) {
		return q.svc.Stats(ctx)
	})
}

// SubscribeStats gives long-running callers a live view of the
// aggregates.
func (q *Queries) SubscribeStats(ctx context.Context) *query.Subscription[model.DashboardStats] {
	return query.Subscribe(ctx, q.store, StatsKey(), ttlStats, func(ctx context.Context) (model.DashboardStats, error) {
		return q.svc.Stats(ctx)
	})
}

func (q *Queries) RecentActivity(ctx context.Context, limit int) ([]model.RecentActivity, error) {
	return query.Get(ctx, q.store, ActivityKey(limit), ttlActivity, func(ctx context.Context) ([]model.RecentActivity, error) {
		return q.svc.RecentActivity(ctx, limit)
	})
}
