// Package tasks maps task operations onto the backend's /api/tasks
// surface and declares their cache keys and invalidation contracts.
package tasks

import (
	"context"
	"strings"

	"github.com/casescope/casescope/internal/apierr"
	"github.com/casescope/casescope/internal/model"
	"github.com/casescope/casescope/internal/transport"
)

// Service performs one HTTP call per task operation.
type Service struct {
	client *transport.Client
}

// NewService creates a task service over the shared transport.
func NewService(client *transport.Client) *Service {
	return &Service{client: client}
}

// List fetches a filtered, sorted page of tasks.
func (s *Service) List(ctx context.Context, filters *model.TaskFilters, sort *model.Sort, page model.Page) (model.PageOf[model.Task], error) {
	env, err := s.client.GetPaginated(ctx, "tasks", filters.Encode(sort, page))
	if err != nil {
		return model.PageOf[model.Task]{}, err
	}
	return model.DecodePage[model.Task](env)
}

// Get fetches one task by id.
func (s *Service) Get(ctx context.Context, id string) (model.Task, error) {
	env, err := s.client.Get(ctx, "tasks/"+id, nil)
	if err != nil {
		return model.Task{}, err
	}
	return model.Decode[model.Task](env)
}

// Create validates the payload client-side and posts it.
func (s *Service) Create(ctx context.Context, payload model.CreateTask) (model.Task, error) {
	if err := payload.Validate(); err != nil {
		return model.Task{}, err
	}
	env, err := s.client.Post(ctx, "tasks/create", payload)
	if err != nil {
		return model.Task{}, err
	}
	return model.Decode[model.Task](env)
}

// Update applies a partial update to a task.
func (s *Service) Update(ctx context.Context, id string, payload model.UpdateTask) (model.Task, error) {
	env, err := s.client.Put(ctx, "tasks/"+id, payload)
	if err != nil {
		return model.Task{}, err
	}
	return model.Decode[model.Task](env)
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, "tasks/"+id)
	return err
}

// transition posts to one of the lifecycle endpoints and decodes the
// updated task. The server owns transition legality.
func (s *Service) transition(ctx context.Context, id, action string, payload any) (model.Task, error) {
	env, err := s.client.Post(ctx, "tasks/"+id+"/"+action, payload)
	if err != nil {
		return model.Task{}, err
	}
	return model.Decode[model.Task](env)
}

// Claim takes an unassigned task for the current user.
func (s *Service) Claim(ctx context.Context, id string) (model.Task, error) {
	return s.transition(ctx, id, "claim", nil)
}

// Release returns a claimed task to the pool.
func (s *Service) Release(ctx context.Context, id string) (model.Task, error) {
	return s.transition(ctx, id, "release", nil)
}

// Assign hands a task to a named assignee.
func (s *Service) Assign(ctx context.Context, id, assignee string) (model.Task, error) {
	return s.transition(ctx, id, "assign", map[string]string{"assignedTo": assignee})
}

// Start moves a task to IN_PROGRESS.
func (s *Service) Start(ctx context.Context, id string) (model.Task, error) {
	return s.transition(ctx, id, "start", nil)
}

// Complete finishes a task, optionally recording output variables.
func (s *Service) Complete(ctx context.Context, id string, variables map[string]any) (model.Task, error) {
	var payload any
	if len(variables) > 0 {
		payload = map[string]any{"variables": variables}
	}
	return s.transition(ctx, id, "complete", payload)
}

// Pause suspends an in-progress task.
func (s *Service) Pause(ctx context.Context, id, reason string) (model.Task, error) {
	var payload any
	if reason != "" {
		payload = map[string]string{"reason": reason}
	}
	return s.transition(ctx, id, "pause", payload)
}

// Resume continues a paused task.
func (s *Service) Resume(ctx context.Context, id string) (model.Task, error) {
	return s.transition(ctx, id, "resume", nil)
}

// Cancel abandons a task.
func (s *Service) Cancel(ctx context.Context, id, reason string) (model.Task, error) {
	var payload any
	if reason != "" {
		payload = map[string]string{"reason": reason}
	}
	return s.transition(ctx, id, "cancel", payload)
}

// My fetches the tasks assigned to one user.
func (s *Service) My(ctx context.Context, assignee string, page model.Page) (model.PageOf[model.Task], error) {
	env, err := s.client.GetPaginated(ctx, "tasks/my/"+assignee, (*model.TaskFilters)(nil).Encode(nil, page))
	if err != nil {
		return model.PageOf[model.Task]{}, err
	}
	return model.DecodePage[model.Task](env)
}

// Group fetches the tasks assigned to a candidate group.
func (s *Service) Group(ctx context.Context, groupID string, page model.Page) (model.PageOf[model.Task], error) {
	env, err := s.client.GetPaginated(ctx, "tasks/group/"+groupID, (*model.TaskFilters)(nil).Encode(nil, page))
	if err != nil {
		return model.PageOf[model.Task]{}, err
	}
	return model.DecodePage[model.Task](env)
}

// ByCase fetches every task attached to a case.
func (s *Service) ByCase(ctx context.Context, caseID string) ([]model.Task, error) {
	env, err := s.client.Get(ctx, "tasks/by-case/"+caseID, nil)
	if err != nil {
		return nil, err
	}
	return model.Decode[[]model.Task](env)
}

// Available fetches unclaimed tasks.
func (s *Service) Available(ctx context.Context, page model.Page) (model.PageOf[model.Task], error) {
	env, err := s.client.GetPaginated(ctx, "tasks/available", (*model.TaskFilters)(nil).Encode(nil, page))
	if err != nil {
		return model.PageOf[model.Task]{}, err
	}
	return model.DecodePage[model.Task](env)
}

// Overdue fetches tasks past their due date.
func (s *Service) Overdue(ctx context.Context, page model.Page) (model.PageOf[model.Task], error) {
	env, err := s.client.GetPaginated(ctx, "tasks/overdue", (*model.TaskFilters)(nil).Encode(nil, page))
	if err != nil {
		return model.PageOf[model.Task]{}, err
	}
	return model.DecodePage[model.Task](env)
}

// Comments fetches a task's comment thread.
func (s *Service) Comments(ctx context.Context, id string) ([]model.Comment, error) {
	env, err := s.client.Get(ctx, "tasks/"+id+"/comments", nil)
	if err != nil {
		return nil, err
	}
	return model.Decode[[]model.Comment](env)
}

// AddComment appends a comment to a task.
func (s *Service) AddComment(ctx context.Context, id, content string) (model.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return model.Comment{}, errEmptyComment
	}
	env, err := s.client.Post(ctx, "tasks/"+id+"/comments", map[string]string{"content": content})
	if err != nil {
		return model.Comment{}, err
	}
	return model.Decode[model.Comment](env)
}

// History fetches a task's audit history.
func (s *Service) History(ctx context.Context, id string) ([]model.AuditEntry, error) {
	env, err := s.client.Get(ctx, "tasks/"+id+"/history", nil)
	if err != nil {
		return nil, err
	}
	return model.Decode[[]model.AuditEntry](env)
}

// Variables fetches a task's free-form variable map.
func (s *Service) Variables(ctx context.Context, id string) (map[string]any, error) {
	env, err := s.client.Get(ctx, "tasks/"+id+"/variables", nil)
	if err != nil {
		return nil, err
	}
	return model.Decode[map[string]any](env)
}

// SetVariables replaces entries in a task's variable map.
func (s *Service) SetVariables(ctx context.Context, id string, variables map[string]any) (model.Task, error) {
	env, err := s.client.Put(ctx, "tasks/"+id+"/variables", map[string]any{"variables": variables})
	if err != nil {
		return model.Task{}, err
	}
	return model.Decode[model.Task](env)
}

// Statistics fetches the task aggregates.
func (s *Service) Statistics(ctx context.Context) (model.TaskStatistics, error) {
	env, err := s.client.Get(ctx, "tasks/statistics", nil)
	if err != nil {
		return model.TaskStatistics{}, err
	}
	return model.Decode[model.TaskStatistics](env)
}

// Workload fetches per-assignee open-work summaries.
func (s *Service) Workload(ctx context.Context) ([]model.TaskWorkload, error) {
	env, err := s.client.Get(ctx, "tasks/workload", nil)
	if err != nil {
		return nil, err
	}
	return model.Decode[[]model.TaskWorkload](env)
}

// Performance fetches per-assignee completion summaries.
func (s *Service) Performance(ctx context.Context) ([]model.TaskPerformance, error) {
	env, err := s.client.Get(ctx, "tasks/performance", nil)
	if err != nil {
		return nil, err
	}
	return model.Decode[[]model.TaskPerformance](env)
}

// BulkAssign assigns several tasks at once.
func (s *Service) BulkAssign(ctx context.Context, ids []string, assignee string) error {
	_, err := s.client.Post(ctx, "tasks/bulk/assign", map[string]any{"taskIds": ids, "assignedTo": assignee})
	return err
}

// BulkComplete completes several tasks at once.
func (s *Service) BulkComplete(ctx context.Context, ids []string) error {
	_, err := s.client.Post(ctx, "tasks/bulk/complete", map[string]any{"taskIds": ids})
	return err
}

// BulkCancel cancels several tasks at once.
func (s *Service) BulkCancel(ctx context.Context, ids []string) error {
	_, err := s.client.Post(ctx, "tasks/bulk/cancel", map[string]any{"taskIds": ids})
	return err
}

// Search runs a free-text search over tasks.
func (s *Service) Search(ctx context.Context, query string, page model.Page) (model.PageOf[model.Task], error) {
	params := (*model.TaskFilters)(nil).Encode(nil, page)
	params.Set("q", query)
	env, err := s.client.GetPaginated(ctx, "tasks/search", params)
	if err != nil {
		return model.PageOf[model.Task]{}, err
	}
	return model.DecodePage[model.Task](env)
}

var errEmptyComment = apierr.Validation("comment content is required")
