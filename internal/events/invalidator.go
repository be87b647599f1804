// Package events maps backend transition events, delivered over NATS,
// onto the same cache invalidation prefixes the local mutations use.
// Long-running processes converge on fresh data without polling.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/casescope/casescope/internal/cases"
	"github.com/casescope/casescope/internal/query"
	"github.com/casescope/casescope/internal/tasks"
)

// Event is the payload published on the backend's transition subjects.
type Event struct {
	EntityID string `json:"entityId"`
	Status   string `json:"status,omitempty"`
	Actor    string `json:"actor,omitempty"`
}

// Invalidator subscribes to the transition subjects and forwards each
// event to the query store as an invalidation.
type Invalidator struct {
	nc     *nats.Conn
	store  *query.Store
	prefix string
	logger *slog.Logger
	subs   []*nats.Subscription
}

// New connects to the NATS server. prefix is the subject namespace,
// "evt" by default.
func New(url, prefix string, store *query.Store, logger *slog.Logger) (*Invalidator, error) {
	if prefix == "" {
		prefix = "evt"
	}
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url, nats.Name("casescope-invalidator"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Invalidator{nc: nc, store: store, prefix: prefix, logger: logger}, nil
}

// Start subscribes to the case and task transition subjects.
func (i *Invalidator) Start() error {
	handlers := map[string]func(Event){
		i.prefix + ".case.created.v1":    i.onCaseCreated,
		i.prefix + ".case.transition.v1": i.onCaseTransition,
		i.prefix + ".case.comment.v1":    i.onCaseComment,
		i.prefix + ".task.transition.v1": i.onTaskTransition,
	}
	for subject, handle := range handlers {
		sub, err := i.nc.Subscribe(subject, func(m *nats.Msg) {
			var evt Event
			if err := json.Unmarshal(m.Data, &evt); err != nil {
				i.logger.Warn("drop malformed event", "subject", m.Subject, "error", err)
				return
			}
			handle(evt)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		i.subs = append(i.subs, sub)
	}
	return nil
}

// Close drains the subscriptions and the connection.
func (i *Invalidator) Close() {
	for _, sub := range i.subs {
		_ = sub.Unsubscribe()
	}
	i.nc.Close()
}

func (i *Invalidator) onCaseCreated(evt Event) {
	i.store.Invalidate(query.Prefix(cases.Domain, "list"))
	i.store.Invalidate(query.Prefix(cases.Domain, "by-status"))
	i.store.Invalidate(query.Prefix(cases.Domain, "my"))
	i.store.Invalidate(query.Prefix(cases.Domain, "statistics"))
	i.store.Invalidate(query.Prefix("dashboard"))
}

// onCaseTransition mirrors the invalidation set of the local status
// mutation, so a transition performed elsewhere lands the same way.
func (i *Invalidator) onCaseTransition(evt Event) {
	if evt.EntityID == "" {
		return
	}
	i.store.Invalidate(query.Prefix(cases.Domain, "detail", evt.EntityID))
	i.store.Invalidate(query.Prefix(cases.Domain, "list"))
	if evt.Status != "" {
		i.store.Invalidate(query.Prefix(cases.Domain, "by-status", evt.Status))
	} else {
		i.store.Invalidate(query.Prefix(cases.Domain, "by-status"))
	}
	i.store.Invalidate(query.Prefix(cases.Domain, "my"))
	i.store.Invalidate(query.Prefix(cases.Domain, "approval-queue"))
	i.store.Invalidate(query.Prefix(cases.Domain, "statistics"))
	i.store.Invalidate(query.Prefix(cases.Domain, "audit", evt.EntityID))
	i.store.Invalidate(query.Prefix("dashboard"))
}

func (i *Invalidator) onCaseComment(evt Event) {
	if evt.EntityID == "" {
		return
	}
	i.store.Invalidate(query.Prefix(cases.Domain, "comments", evt.EntityID))
}

func (i *Invalidator) onTaskTransition(evt Event) {
	if evt.EntityID == "" {
		return
	}
	i.store.Invalidate(query.Prefix(tasks.Domain, "detail", evt.EntityID))
	i.store.Invalidate(query.Prefix(tasks.Domain, "list"))
	i.store.Invalidate(query.Prefix(tasks.Domain, "my"))
	i.store.Invalidate(query.Prefix(tasks.Domain, "available"))
	i.store.Invalidate(query.Prefix(tasks.Domain, "overdue"))
	i.store.Invalidate(query.Prefix(tasks.Domain, "statistics"))
	i.store.Invalidate(query.Prefix(tasks.Domain, "history", evt.EntityID))
}
