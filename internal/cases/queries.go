package cases

import (
	"context"
	"time"

	"github.com/casescope/casescope/internal/model"
	"github.com/casescope/casescope/internal/query"
)

// Domain is the first key segment for every case cache entry.
const Domain = "cases"

// Staleness windows per operation kind. Lists tolerate minutes of lag,
// the approval queue and comment threads much less.
const (
	ttlList     = 5 * time.Minute
	ttlDetail   = 2 * time.Minute
	ttlMy       = 2 * time.Minute
	ttlApproval = time.Minute
	ttlComments = 30 * time.Second
	ttlAudit    = 2 * time.Minute
	ttlRelated  = 5 * time.Minute
	ttlStats    = 10 * time.Minute
	ttlSearch   = time.Minute
)

type listParams struct {
	Filters *model.CaseFilters `json:"filters,omitempty"`
	Sort    *model.Sort        `json:"sort,omitempty"`
	Page    model.Page         `json:"page"`
}

// ListKey derives the cache key for a filtered list. Deep-equal
// filter/sort/page triples always produce the same key.
func ListKey(filters *model.CaseFilters, sort *model.Sort, page model.Page) query.Key {
	return query.NewKey(Domain, "list", query.EncodeParams(listParams{Filters: filters, Sort: sort, Page: page}))
}

// DetailKey derives the cache key for one case.
func DetailKey(id string) query.Key { return query.NewKey(Domain, "detail", id) }

// ByStatusKey derives the cache key for a single-status list.
func ByStatusKey(status model.CaseStatus, page model.Page) query.Key {
	return query.NewKey(Domain, "by-status", string(status), query.EncodeParams(page))
}

// CommentsKey derives the cache key for a case's comment thread.
func CommentsKey(id string) query.Key { return query.NewKey(Domain, "comments", id) }

// AuditKey derives the cache key for a case's audit trail.
func AuditKey(id string) query.Key { return query.NewKey(Domain, "audit", id) }

// RelatedKey derives the cache key for a case's linked cases.
func RelatedKey(id string) query.Key { return query.NewKey(Domain, "related", id) }

// StatisticsKey derives the cache key for the case aggregates.
func StatisticsKey() query.Key { return query.NewKey(Domain, "statistics") }

// MyKey derives the cache key for the current user's cases.
func MyKey(page model.Page) query.Key {
	return query.NewKey(Domain, "my", query.EncodeParams(page))
}

// ApprovalQueueKey derives the cache key for the approval queue.
func ApprovalQueueKey(page model.Page) query.Key {
	return query.NewKey(Domain, "approval-queue", query.EncodeParams(page))
}

// SearchKey derives the cache key for a free-text search.
func SearchKey(q string, page model.Page) query.Key {
	return query.NewKey(Domain, "search", q, query.EncodeParams(page))
}

// Queries binds the case service to the query store: reads go through
// the cache, writes declare their invalidation prefixes.
type Queries struct {
	svc   *Service
	store *query.Store
}

// NewQueries creates the cached view over a case service.
func NewQueries(svc *Service, store *query.Store) *Queries {
	return &Queries{svc: svc, store: store}
}

func (q *Queries) List(ctx context.Context, filters *model.CaseFilters, sort *model.Sort, page model.Page) (model.PageOf[model.Case], error) {
	return query.Get(ctx, q.store, ListKey(filters, sort, page), ttlList, func(ctx context.Context) (model.PageOf[model.Case], error) {
		return q.svc.List(ctx, filters, sort, page)
	})
}

func (q *Queries) Get(ctx context.Context, id string) (model.Case, error) {
	return query.Get(ctx, q.store, DetailKey(id), ttlDetail, func(ctx context.Context) (model.Case, error) {
		return q.svc.Get(ctx, id)
	})
}

func (q *Queries) ByStatus(ctx context.Context, status model.CaseStatus, page model.Page) (model.PageOf[model.Case], error) {
	return query.Get(ctx, q.store, ByStatusKey(status, page), ttlList, func(ctx context.Context) (model.PageOf[model.Case], error) {
		return q.svc.ByStatus(ctx, status, page)
	})
}

func (q *Queries) My(ctx context.Context, page model.Page) (model.PageOf[model.Case], error) {
	return query.Get(ctx, q.store, MyKey(page), ttlMy, func(ctx context.Context) (model.PageOf[model.Case], error) {
		return q.svc.My(ctx, page)
	})
}

func (q *Queries) ApprovalQueue(ctx context.Context, page model.Page) (model.PageOf[model.Case], error) {
	return query.Get(ctx, q.store, ApprovalQueueKey(page), ttlApproval, func(ctx context.Context) (model.PageOf[model.Case], error) {
		return q.svc.ApprovalQueue(ctx, page)
	})
}

// SubscribeApprovalQueue gives long-running callers a live view of the
// approval queue.
func (q *Queries) SubscribeApprovalQueue(ctx context.Context, page model.Page) *query.Subscription[model.PageOf[model.Case]] {
	return query.Subscribe(ctx, q.store, ApprovalQueueKey(page), ttlApproval, func(ctx context.Context) (model.PageOf[model.Case], error) {
		return q.svc.ApprovalQueue(ctx, page)
	})
}

func (q *Queries) Comments(ctx context.Context, id string) ([]model.Comment, error) {
	return query.Get(ctx, q.store, CommentsKey(id), ttlComments, func(ctx context.Context) ([]model.Comment, error) {
		return q.svc.Comments(ctx, id)
	})
}

func (q *Queries) Audit(ctx context.Context, id string) ([]model.AuditEntry, error) {
	return query.Get(ctx, q.store, AuditKey(id), ttlAudit, func(ctx context.Context) ([]model.AuditEntry, error) {
		return q.svc.Audit(ctx, id)
	})
}

func (q *Queries) Related(ctx context.Context, id string) ([]model.Case, error) {
	return query.Get(ctx, q.store, RelatedKey(id), ttlRelated, func(ctx context.Context) ([]model.Case, error) {
		return q.svc.Related(ctx, id)
	})
}

func (q *Queries) Statistics(ctx context.Context) (model.CaseStatistics, error) {
	return query.Get(ctx, q.store, StatisticsKey(), ttlStats, func(ctx context.Context) (model.CaseStatistics, error) {
		return q.svc.Statistics(ctx)
	})
}

func (q *Queries) Search(ctx context.Context, text string, page model.Page) (model.PageOf[model.Case], error) {
	return query.Get(ctx, q.store, SearchKey(text, page), ttlSearch, func(ctx context.Context) (model.PageOf[model.Case], error) {
		return q.svc.Search(ctx, text, page)
	})
}

// Create posts a new case and invalidates the lists, the aggregates and
// the dashboard.
func (q *Queries) Create(ctx context.Context, payload model.CreateCase) (model.Case, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Case]{
		Run: func(ctx context.Context) (model.Case, error) { return q.svc.Create(ctx, payload) },
		Invalidates: []query.Key{
			query.Prefix(Domain, "list"),
			query.Prefix(Domain, "by-status"),
			query.Prefix(Domain, "my"),
			query.Prefix(Domain, "statistics"),
			query.Prefix("dashboard"),
		},
	})
}

// Update rewrites case fields and invalidates its detail plus the lists.
func (q *Queries) Update(ctx context.Context, id string, payload model.UpdateCase) (model.Case, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Case]{
		Run: func(ctx context.Context) (model.Case, error) { return q.svc.Update(ctx, id, payload) },
		Invalidates: []query.Key{
			query.Prefix(Domain, "detail", id),
			query.Prefix(Domain, "list"),
			query.Prefix(Domain, "by-status"),
		},
	})
}

// Delete removes a case and invalidates the lists and aggregates.
func (q *Queries) Delete(ctx context.Context, id string) error {
	return query.Do(ctx, q.store, func(ctx context.Context) error { return q.svc.Delete(ctx, id) },
		query.Prefix(Domain, "detail", id),
		query.Prefix(Domain, "list"),
		query.Prefix(Domain, "by-status"),
		query.Prefix(Domain, "my"),
		query.Prefix(Domain, "statistics"),
	)
}

// UpdateStatus transitions a case. The invalidation set covers the
// detail, every list, the list for the new status, the aggregates, the
// audit trail and the dashboard.
func (q *Queries) UpdateStatus(ctx context.Context, id string, status model.CaseStatus, comment string) (model.Case, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Case]{
		Run: func(ctx context.Context) (model.Case, error) { return q.svc.UpdateStatus(ctx, id, status, comment) },
		Invalidates: []query.Key{
			query.Prefix(Domain, "detail", id),
			query.Prefix(Domain, "list"),
			query.Prefix(Domain, "by-status", string(status)),
			query.Prefix(Domain, "my"),
			query.Prefix(Domain, "statistics"),
			query.Prefix(Domain, "audit", id),
			query.Prefix("dashboard"),
		},
	})
}

// Assign sets the assignee and invalidates the detail, lists and audit
// trail.
func (q *Queries) Assign(ctx context.Context, id, assignee string) (model.Case, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Case]{
		Run: func(ctx context.Context) (model.Case, error) { return q.svc.Assign(ctx, id, assignee) },
		Invalidates: []query.Key{
			query.Prefix(Domain, "detail", id),
			query.Prefix(Domain, "list"),
			query.Prefix(Domain, "my"),
			query.Prefix(Domain, "audit", id),
		},
	})
}

// Approve closes a case out of the approval queue.
func (q *Queries) Approve(ctx context.Context, id, comment string) (model.Case, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Case]{
		Run:         func(ctx context.Context) (model.Case, error) { return q.svc.Approve(ctx, id, comment) },
		Invalidates: q.reviewInvalidation(id),
	})
}

// Reject sends a case back out of the approval queue.
func (q *Queries) Reject(ctx context.Context, id, reason string) (model.Case, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Case]{
		Run:         func(ctx context.Context) (model.Case, error) { return q.svc.Reject(ctx, id, reason) },
		Invalidates: q.reviewInvalidation(id),
	})
}

func (q *Queries) reviewInvalidation(id string) []query.Key {
	return []query.Key{
		query.Prefix(Domain, "detail", id),
		query.Prefix(Domain, "list"),
		query.Prefix(Domain, "by-status"),
		query.Prefix(Domain, "approval-queue"),
		query.Prefix(Domain, "audit", id),
	}
}

// AddComment invalidates only the case's comment thread.
func (q *Queries) AddComment(ctx context.Context, id, content string, internal bool, mentions []string) (model.Comment, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Comment]{
		Run: func(ctx context.Context) (model.Comment, error) {
			return q.svc.AddComment(ctx, id, content, internal, mentions)
		},
		Invalidates: []query.Key{query.Prefix(Domain, "comments", id)},
	})
}

// UpdateComment invalidates only the case's comment thread.
func (q *Queries) UpdateComment(ctx context.Context, id, commentID, content string) (model.Comment, error) {
	return query.Mutate(ctx, q.store, query.Mutation[model.Comment]{
		Run: func(ctx context.Context) (model.Comment, error) {
			return q.svc.UpdateComment(ctx, id, commentID, content)
		},
		Invalidates: []query.Key{query.Prefix(Domain, "comments", id)},
	})
}

// DeleteComment invalidates only the case's comment thread.
func (q *Queries) DeleteComment(ctx context.Context, id, commentID string) error {
	return query.Do(ctx, q.store, func(ctx context.Context) error { return q.svc.DeleteComment(ctx, id, commentID) },
		query.Prefix(Domain, "comments", id),
	)
}

// Link invalidates the related lists on both ends plus their details.
func (q *Queries) Link(ctx context.Context, id, relatedID string) error {
	return query.Do(ctx, q.store, func(ctx context.Context) error { return q.svc.Link(ctx, id, relatedID) },
		q.linkInvalidation(id, relatedID)...,
	)
}

// Unlink mirrors Link's invalidation set.
func (q *Queries) Unlink(ctx context.Context, id, relatedID string) error {
	return query.Do(ctx, q.store, func(ctx context.Context) error { return q.svc.Unlink(ctx, id, relatedID) },
		q.linkInvalidation(id, relatedID)...,
	)
}

func (q *Queries) linkInvalidation(id, relatedID string) []query.Key {
	return []query.Key{
		query.Prefix(Domain, "related", id),
		query.Prefix(Domain, "related", relatedID),
		query.Prefix(Domain, "detail", id),
		query.Prefix(Domain, "detail", relatedID),
	}
}

// BulkStatus transitions several cases and invalidates lists,
// aggregates and each affected detail.
func (q *Queries) BulkStatus(ctx context.Context, ids []string, status model.CaseStatus) error {
	keys := []query.Key{
		query.Prefix(Domain, "list"),
		query.Prefix(Domain, "by-status"),
		query.Prefix(Domain, "my"),
		query.Prefix(Domain, "statistics"),
	}
	for _, id := range ids {
		keys = append(keys, query.Prefix(Domain, "detail", id))
	}
	return query.Do(ctx, q.store, func(ctx context.Context) error { return q.svc.BulkStatus(ctx, ids, status) }, keys...)
}

// BulkAssign assigns several cases and invalidates lists and details.
func (q *Queries) BulkAssign(ctx context.Context, ids []string, assignee string) error {
	keys := []query.Key{
		query.Prefix(Domain, "list"),
		query.Prefix(Domain, "by-status"),
		query.Prefix(Domain, "my"),
	}
	for _, id := range ids {
		keys = append(keys, query.Prefix(Domain, "detail", id))
	}
	return query.Do(ctx, q.store, func(ctx context.Context) error { return q.svc.BulkAssign(ctx, ids, assignee) }, keys...)
}

// BulkDelete removes several cases and invalidates lists and aggregates.
func (q *Queries) BulkDelete(ctx context.Context, ids []string) error {
	keys := []query.Key{
		query.Prefix(Domain, "list"),
		query.Prefix(Domain, "by-status"),
		query.Prefix(Domain, "my"),
		query.Prefix(Domain, "statistics"),
	}
	for _, id := range ids {
		keys = append(keys, query.Prefix(Domain, "detail", id))
	}
	return query.Do(ctx, q.store, func(ctx context.Context) error { return q.svc.BulkDelete(ctx, ids) }, keys...)
}
