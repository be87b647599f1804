package tasks

import (
	"context"
	"time"

	"github.com/casescope/casescope/internal/model"
	"github.com/casescope/casescope/internal/query"
)

// Domain is the first key segment for every task cache entry.
const Domain = "tasks"

// Staleness windows per operation kind. Available and overdue views are
// near real time, aggregates tolerate ten minutes.
const (
	ttlList        = 2 * time.Minute
	ttlDetail      = time.Minute
	ttlMy          = time.Minute
	ttlByCase      = 2 * time.Minute
	ttlAvailable   = 30 * time.Second
	ttlOverdue     = time.Minute
	ttlComments    = 30 * time.Second
	ttlHistory     = 5 * time.Minute
	ttlVariables   = time.Minute
	ttlStats       = 10 * time.Minute
	ttlWorkload    = 5 * time.Minute
	ttlPerformance = 10 * time.Minute
	ttlSearch      = time.Minute
)

type listParams struct {
	Filters *model.TaskFilters `json:"filters,omitempty"`
	Sort    *model.Sort        `json:"sort,omitempty"`
	Page    model.Page         `json:"page"`
}

// ListKey derives the cache key for a filtered task list.
func ListKey(filters *model.TaskFilters, sort *model.Sort, page model.Page) query.Key {
	return query.NewKey(Domain, "list", query.EncodeParams(listParams{Filters: filters, Sort: sort, Page: page}))
}

// DetailKey derives the cache key for one task.
func DetailKey(id string) query.Key { return query.NewKey(Domain, "detail", id) }

// MyKey derives the cache key for one assignee's tasks.
func MyKey(assignee string, page model.Page) query.Key {
	return query.NewKey(Domain, "my", assignee, query.EncodeParams(page))
}

// GroupKey derives the cache key for a candidate group's tasks.
func GroupKey(groupID string, page model.Page) query.Key {
	return query.NewKey(Domain, "group", groupID, query.EncodeParams(page))
}

// ByCaseKey derives the cache key for a case's tasks.
func ByCaseKey(caseID string) query.Key { return query.NewKey(Domain, "by-case", caseID) }

// AvailableKey derives the cache key for the unclaimed pool.
func AvailableKey(page model.Page) query.Key {
	return query.NewKey(Domain, "available", query.EncodeParams(page))
}

// OverdueKey derives the cache key for the overdue view.
func OverdueKey(page model.Page) query.Key {
	return query.NewKey(Domain, "overdue", query.EncodeParams(page))
}

// CommentsKey derives the cache key for a task's comment thread.
func CommentsKey(id string) query.Key { return query.NewKey(Domain, "comments", id) }

// HistoryKey derives the cache key for a task's audit history.
func HistoryKey(id string) query.Key { return query.NewKey(Domain, "history", id) }

// VariablesKey derives the cache key for a task's variable map.
func VariablesKey(id string) query.Key { return query.NewKey(Domain, "variables", id) }

// StatisticsKey derives the cache key for the task aggregates.
func StatisticsKey() query.Key { return query.NewKey(Domain, "statistics") }

// WorkloadKey derives the cache key for the workload summary.
func WorkloadKey() query.Key { return query.NewKey(Domain, "workload") }

// PerformanceKey derives the cache key for the performance summary.
func PerformanceKey() query.Key { return query.NewKey(Domain, "performance") }

// SearchKey derives the cache key for a free-text search.
func SearchKey(q string, page model.Page) query.Key {
	return query.NewKey(Domain, "search", q, query.EncodeParams(page))
}

// Queries binds the task service to the query store.
type Queries struct {
	svc   *Service
	store *query.Store
}

// NewQueries creates the cached view over a task service.
func NewQueries(svc *Service, store *query.Store) *Queries {
	return &Queries{svc: svc, store: store}
}

func (q *Queries) List(ctx context.Context, filters *model.TaskFilters, sort *model.Sort, page model.Page) (model.PageOf[model.Task], error) {
	return query.Get(ctx, q.store, ListKey(filters, sort, page), ttlList, func(ctx context.Context) (model.PageOf[model.Task], error) {
		return q.svc.List(ctx, filters, sort, page)
	})
}

func (q *Queries) Get(ctx context.Context, id string) (model.Task, error) {
	return query.Get(ctx, q.store, DetailKey(id), ttlDetail, func(ctx context.Context) (model.Task, error) {
		return q.svc.Get(ctx, id)
	})
}

func (q *Queries) My(ctx context.Context, assignee string, page model.Page) (model.PageOf[model.Task], error) {
	return query.Get(ctx, q.store, MyKey(assignee, page), ttlMy, func(ctx context.Context) (model.PageOf[model.Task], error) {
		return q.svc.My(ctx, assignee, page)
	})
}

func (q *Queries) Group(ctx context.Context, groupID string, page model.Page) (model.PageOf[model.Task], error) {
	return query.Get(ctx, q.store, GroupKey(groupID, page), ttlList, func(ctx context.Context) (model.PageOf[model.Task], error) {
		return q.svc.Group(ctx, groupID, page)
	})
}

func (q *Queries) ByCase(ctx context.Context, caseID string) ([]model.Task, error) {
	return query.Get(ctx, q.store, ByCaseKey(caseID), ttlByCase, func(ctx context.Context) ([]model.Task, error) {
		return q.svc.ByCase(ctx, caseID)
	})
}

func (q *Queries) Available(ctx context.Context, page model.Page) (model.PageOf[model.Task], error) {
	return query.Get(ctx, q.store, AvailableKey(page), ttlAvailable, func(ctx context.Context) (model.PageOf[model.Task], error) {
		return q.svc.Available(ctx, page)
	})
}

func (q *Queries) Overdue(ctx context.Context, page model.Page) (model.PageOf[model.Task], error) {
	return query.Get(ctx, q.store, OverdueKey(page), ttlOverdue, func(ctx context.Context) (model.PageOf[model.Task], error) {
		return q.svc.Overdue(ctx, page)
	})
}

// SubscribeOverdue gives long-running callers a live view of overdue
// tasks.
func (q *Queries) SubscribeOverdue(ctx context.Context, page model.Page) *query.Subscription[model.PageOf[model.Task]] {
	return query.Subscribe(ctx, q.store, OverdueKey(page), ttlOverdue, func(ctx context.Context) (model.PageOf[model.Task], error) {
		return q.svc.Overdue(ctx, page)
	})
}

func (q *Queries) Comments(ctx context.Context, id string) ([]model.Comment, error) {
	return query.Get(ctx, q.store, CommentsKey(id), ttlComments, func(ctx context.Context) ([]model.Comment, error) {
		return q.svc.Comments(ctx, id)
	})
}

func (q *Queries) History(ctx context.Context, id string) ([]model.AuditEntry, error) {
	return query.Get(ctx, q.store, HistoryKey(id), ttlHistory, func(ctx context.Context) ([]model.AuditEntry, error) {
		return q.svc.History(ctx, id)
	})
}

func (q *Queries) Variables(ctx context.Context, id string) (map[string]any, error) {
	return query.Get(ctx, q.store, VariablesKey(id), ttlVariables, func(ctx context.Context) (map[string]any, error) {
		return q.svc.Variables(ctx, id)
	})
}

func (q *Queries) Statistics(ctx context.Context) (model.TaskStatistics, error) {
	return query.Get(ctx, q.store, StatisticsKey(), ttlStats, func(ctx context.Context) (model.TaskStatistics, error) {
		return q.svc.Statistics(ctx)
	})
}

func (q *Queries) Workload(ctx context.Context) ([]model.TaskWorkload, error) {
	return query.Get(ctx, q.store, WorkloadKey(), ttlWorkload, func(ctx context.Context) ([]model.TaskWorkload, error) {
		return q.svc.Workload(ctx)
	})
}

func (q *Queries) Performance(ctx context.Context) ([]model.TaskPerformance, error) {
	return query.Get(ctx, q.store, PerformanceKey(), ttlPerformance, func(ctx context.Context) ([]model.TaskPerformance, error) {
		return q.svc.Performance(ctx)
	})
}

func (q *Queries) Search(ctx context.Context, text string, page model.Page) (model.PageOf[model.Task], error) {
	return query.Get(ctx, q.store, SearchKey(text, page), ttlSearch, func(ctx context.Context) (model.PageOf[model.Task], error) {
		return q.svc.Search(ctx, text, page)
	})
}

// Create posts a new task and invalidates the lists, the owning case's
// tasks and the aggregates.
func (q *Queries) Create(ctx context.Context, payload model.CreateTask) (model.Task, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Task]{
		Run: func(ctx context.Context) (model.Task, error) { return q.svc.Create(ctx, payload) },
		Invalidates: []query.Key{
			query.Prefix(Domain, "list"),
			query.Prefix(Domain, "by-case", payload.CaseID),
			query.Prefix(Domain, "available"),
			query.Prefix(Domain, "statistics"),
		},
	})
}

// Update rewrites task fields and invalidates its detail plus the lists.
func (q *Queries) Update(ctx context.Context, id string, payload model.UpdateTask) (model.Task, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Task]{
		Run: func(ctx context.Context) (model.Task, error) { return q.svc.Update(ctx, id, payload) },
		Invalidates: []query.Key{
			query.Prefix(Domain, "detail", id),
			query.Prefix(Domain, "list"),
		},
	})
}

// Delete removes a task and invalidates lists and aggregates.
func (q *Queries) Delete(ctx context.Context, id string) error {
	return query.Do(ctx, q.store, func(ctx context.Context) error { return q.svc.Delete(ctx, id) },
		query.Prefix(Domain, "detail", id),
		query.Prefix(Domain, "list"),
		query.Prefix(Domain, "statistics"),
	)
}

// Claim takes a task and invalidates the detail, lists, the unclaimed
// pool and the my views.
func (q *Queries) Claim(ctx context.Context, id string) (model.Task, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Task]{
		Run:         func(ctx context.Context) (model.Task, error) { return q.svc.Claim(ctx, id) },
		Invalidates: q.poolInvalidation(id),
	})
}

// Release mirrors Claim's invalidation set.
func (q *Queries) Release(ctx context.Context, id string) (model.Task, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Task]{
		Run:         func(ctx context.Context) (model.Task, error) { return q.svc.Release(ctx, id) },
		Invalidates: q.poolInvalidation(id),
	})
}

func (q *Queries) poolInvalidation(id string) []query.Key {
	return []query.Key{
		query.Prefix(Domain, "detail", id),
		query.Prefix(Domain, "list"),
		query.Prefix(Domain, "available"),
		query.Prefix(Domain, "my"),
	}
}

// Assign hands a task over and invalidates the detail, lists and my
// views.
func (q *Queries) Assign(ctx context.Context, id, assignee string) (model.Task, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Task]{
		Run: func(ctx context.Context) (model.Task, error) { return q.svc.Assign(ctx, id, assignee) },
		Invalidates: []query.Key{
			query.Prefix(Domain, "detail", id),
			query.Prefix(Domain, "list"),
			query.Prefix(Domain, "my"),
		},
	})
}

// Start moves a task to IN_PROGRESS and invalidates the detail and
// lists.
func (q *Queries) Start(ctx context.Context, id string) (model.Task, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Task]{
		Run: func(ctx context.Context) (model.Task, error) { return q.svc.Start(ctx, id) },
		Invalidates: []query.Key{
			query.Prefix(Domain, "detail", id),
			query.Prefix(Domain, "list"),
		},
	})
}

// Complete finishes a task. The invalidation set covers the detail, the
// lists, the my views, the aggregates and the task's history.
func (q *Queries) Complete(ctx context.Context, id string, variables map[string]any) (model.Task, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Task]{
		Run: func(ctx context.Context) (model.Task, error) { return q.svc.Complete(ctx, id, variables) },
		Invalidates: []query.Key{
			query.Prefix(Domain, "detail", id),
			query.Prefix(Domain, "list"),
			query.Prefix(Domain, "my"),
			query.Prefix(Domain, "statistics"),
			query.Prefix(Domain, "history", id),
		},
	})
}

// Pause suspends a task and invalidates the detail, lists and my views.
func (q *Queries) Pause(ctx context.Context, id, reason string) (model.Task, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Task]{
		Run:         func(ctx context.Context) (model.Task, error) { return q.svc.Pause(ctx, id, reason) },
		Invalidates: q.suspendInvalidation(id),
	})
}

// Resume mirrors Pause's invalidation set.
func (q *Queries) Resume(ctx context.Context, id string) (model.Task, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Task]{
		Run:         func(ctx context.Context) (model.Task, error) { return q.svc.Resume(ctx, id) },
		Invalidates: q.suspendInvalidation(id),
	})
}

func (q *Queries) suspendInvalidation(id string) []query.Key {
	return []query.Key{
		query.Prefix(Domain, "detail", id),
		query.Prefix(Domain, "list"),
		query.Prefix(Domain, "my"),
	}
}

// Cancel abandons a task and invalidates the detail, lists, my views
// and aggregates.
func (q *Queries) Cancel(ctx context.Context, id, reason string) (model.Task, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Task]{
		Run: func(ctx context.Context) (model.Task, error) { return q.svc.Cancel(ctx, id, reason) },
		Invalidates: []query.Key{
			query.Prefix(Domain, "detail", id),
			query.Prefix(Domain, "list"),
			query.Prefix(Domain, "my"),
			query.Prefix(Domain, "statistics"),
		},
	})
}

// AddComment invalidates only the task's comment thread.
func (q *Queries) AddComment(ctx context.Context, id, content string) (model.Comment, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Comment]{
		Run:         func(ctx context.Context) (model.Comment, error) { return q.svc.AddComment(ctx, id, content) },
		Invalidates: []query.Key{query.Prefix(Domain, "comments", id)},
	})
}

// SetVariables invalidates the task's detail and variable map.
func (q *Queries) SetVariables(ctx context.Context, id string, variables map[string]any) (model.Task, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Task]{
		Run: func(ctx context.Context) (model.Task, error) { return q.svc.SetVariables(ctx, id, variables) },
		Invalidates: []query.Key{
			query.Prefix(Domain, "detail", id),
			query.Prefix(Domain, "variables", id),
		},
	})
}

// BulkAssign assigns several tasks and invalidates lists, my views and
// each affected detail.
func (q *Queries) BulkAssign(ctx context.Context, ids []string, assignee string) error {
	keys := []query.Key{
		query.Prefix(Domain, "list"),
		query.Prefix(Domain, "my"),
		query.Prefix(Domain, "available"),
	}
	for _, id := range ids {
		keys = append(keys, query.Prefix(Domain, "detail", id))
	}
	return query.Do(ctx, q.store, func(ctx context.Context) error { return q.svc.BulkAssign(ctx, ids, assignee) }, keys...)
}

// BulkComplete completes several tasks and invalidates lists, aggregates
// and each affected detail.
func (q *Queries) BulkComplete(ctx context.Context, ids []string) error {
	return q.bulkFinish(ctx, ids, q.svc.BulkComplete)
}

// BulkCancel mirrors BulkComplete's invalidation set.
func (q *Queries) BulkCancel(ctx context.Context, ids []string) error {
	return q.bulkFinish(ctx, ids, q.svc.BulkCancel)
}

func (q *Queries) bulkFinish(ctx context.Context, ids []string, op func(context.Context, []string) error) error {
	keys := []query.Key{
		query.Prefix(Domain, "list"),
		query.Prefix(Domain, "my"),
		query.Prefix(Domain, "statistics"),
	}
	for _, id := range ids {
		keys = append(keys, query.Prefix(Domain, "detail", id))
	}
	return query.Do(ctx, q.store, func(ctx context.Context) error { return op(ctx, ids) }, keys...)
}
