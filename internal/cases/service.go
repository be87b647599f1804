// Package cases maps case operations onto the backend's /api/cases
// surface and declares the cache keys and invalidation contracts for
// each of them.
package cases

import (
	"context"
	"strings"

	"github.com/casescope/casescope/internal/apierr"
	"github.com/casescope/casescope/internal/model"
	"github.com/casescope/casescope/internal/transport"
)

// Service performs one HTTP call per case operation. It owns no cache
// and no retry policy; both live in the query layer.
type Service struct {
	client *transport.Client
}

// NewService creates a case service over the shared transport.
func NewService(client *transport.Client) *Service {
	return &Service{client: client}
}

// List fetches a filtered, sorted page of cases.
func (s *Service) List(ctx context.Context, filters *model.CaseFilters, sort *model.Sort, page model.Page) (model.PageOf[model.Case], error) {
	env, err := s.client.GetPaginated(ctx, "cases", filters.Encode(sort, page))
	if err != nil {
		return model.PageOf[model.Case]{}, err
	}
	return model.DecodePage[model.Case](env)
}

// Get fetches one case by id.
func (s *Service) Get(ctx context.Context, id string) (model.Case, error) {
	env, err := s.client.Get(ctx, "cases/"+id, nil)
	if err != nil {
		return model.Case{}, err
	}
	return model.Decode[model.Case](env)
}

// Create validates the payload client-side and posts it. A validation
// failure never reaches the network.
func (s *Service) Create(ctx context.Context, payload model.CreateCase) (model.Case, error) {
	if err := payload.Validate(); err != nil {
		return model.Case{}, err
	}
	env, err := s.client.Post(ctx, "cases/create", payload)
	if err != nil {
		return model.Case{}, err
	}
	return model.Decode[model.Case](env)
}

// Update applies a partial update to a case.
func (s *Service) Update(ctx context.Context, id string, payload model.UpdateCase) (model.Case, error) {
	env, err := s.client.Put(ctx, "cases/"+id, payload)
	if err != nil {
		return model.Case{}, err
	}
	return model.Decode[model.Case](env)
}

// Delete removes a case.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, "cases/"+id)
	return err
}

type statusChange struct {
	Status  model.CaseStatus `json:"status"`
	Comment string           `json:"comment,omitempty"`
}

// UpdateStatus requests a status transition. Legality is the server's
// call; the client sends any requested transition as is.
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.CaseStatus, comment string) (model.Case, error) {
	if comment == "" {
		comment = status.QuickComment()
	}
	env, err := s.client.Put(ctx, "cases/"+id+"/status", statusChange{Status: status, Comment: comment})
	if err != nil {
		return model.Case{}, err
	}
	return model.Decode[model.Case](env)
}

// Assign sets the case assignee.
func (s *Service) Assign(ctx context.Context, id, assignee string) (model.Case, error) {
	env, err := s.client.Patch(ctx, "cases/"+id+"/assign", map[string]string{"assignedTo": assignee})
	if err != nil {
		return model.Case{}, err
	}
	return model.Decode[model.Case](env)
}

// ByStatus fetches a page of cases in one status.
func (s *Service) ByStatus(ctx context.Context, status model.CaseStatus, page model.Page) (model.PageOf[model.Case], error) {
	env, err := s.client.GetPaginated(ctx, "cases/by-status/"+string(status), (*model.CaseFilters)(nil).Encode(nil, page))
	if err != nil {
		return model.PageOf[model.Case]{}, err
	}
	return model.DecodePage[model.Case](env)
}

// My fetches the cases assigned to the current user.
func (s *Service) My(ctx context.Context, page model.Page) (model.PageOf[model.Case], error) {
	env, err := s.client.GetPaginated(ctx, "cases/my", (*model.CaseFilters)(nil).Encode(nil, page))
	if err != nil {
		return model.PageOf[model.Case]{}, err
	}
	return model.DecodePage[model.Case](env)
}

// ApprovalQueue fetches the cases waiting for supervisor approval.
func (s *Service) ApprovalQueue(ctx context.Context, page model.Page) (model.PageOf[model.Case], error) {
	return s.ByStatus(ctx, model.CasePendingApproval, page)
}

// Comments fetches a case's comment thread.
func (s *Service) Comments(ctx context.Context, id string) ([]model.Comment, error) {
	env, err := s.client.Get(ctx, "cases/"+id+"/comments", nil)
	if err != nil {
		return nil, err
	}
	return model.Decode[[]model.Comment](env)
}

type commentPayload struct {
	Content        string   `json:"content"`
	IsInternal     bool     `json:"isInternal,omitempty"`
	MentionedUsers []string `json:"mentionedUsers,omitempty"`
}

// AddComment appends a comment to a case.
func (s *Service) AddComment(ctx context.Context, id, content string, internal bool, mentions []string) (model.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return model.Comment{}, errEmptyComment
	}
	env, err := s.client.Post(ctx, "cases/"+id+"/comments", commentPayload{Content: content, IsInternal: internal, MentionedUsers: mentions})
	if err != nil {
		return model.Comment{}, err
	}
	return model.Decode[model.Comment](env)
}

// UpdateComment rewrites an existing comment.
func (s *Service) UpdateComment(ctx context.Context, id, commentID, content string) (model.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return model.Comment{}, errEmptyComment
	}
	env, err := s.client.Put(ctx, "cases/"+id+"/comments/"+commentID, commentPayload{Content: content})
	if err != nil {
		return model.Comment{}, err
	}
	return model.Decode[model.Comment](env)
}

// DeleteComment removes a comment from a case.
func (s *Service) DeleteComment(ctx context.Context, id, commentID string) error {
	_, err := s.client.Delete(ctx, "cases/"+id+"/comments/"+commentID)
	return err
}

// Audit fetches a case's audit trail.
func (s *Service) Audit(ctx context.Context, id string) ([]model.AuditEntry, error) {
	env, err := s.client.Get(ctx, "cases/"+id+"/audit", nil)
	if err != nil {
		return nil, err
	}
	return model.Decode[[]model.AuditEntry](env)
}

// Approve closes a case from PENDING_APPROVAL.
func (s *Service) Approve(ctx context.Context, id, comment string) (model.Case, error) {
	env, err := s.client.Post(ctx, "cases/"+id+"/approve", map[string]string{"comment": comment})
	if err != nil {
		return model.Case{}, err
	}
	return model.Decode[model.Case](env)
}

// Reject sends a case back with a reason.
func (s *Service) Reject(ctx context.Context, id, reason string) (model.Case, error) {
	env, err := s.client.Post(ctx, "cases/"+id+"/reject", map[string]string{"reason": reason})
	if err != nil {
		return model.Case{}, err
	}
	return model.Decode[model.Case](env)
}

// Related fetches the cases linked to this one.
func (s *Service) Related(ctx context.Context, id string) ([]model.Case, error) {
	env, err := s.client.Get(ctx, "cases/"+id+"/related", nil)
	if err != nil {
		return nil, err
	}
	return model.Decode[[]model.Case](env)
}

// Link records a relation between two cases.
func (s *Service) Link(ctx context.Context, id, relatedID string) error {
	_, err := s.client.Post(ctx, "cases/"+id+"/link", map[string]string{"relatedCaseId": relatedID})
	return err
}

// Unlink removes a relation between two cases.
func (s *Service) Unlink(ctx context.Context, id, relatedID string) error {
	_, err := s.client.Post(ctx, "cases/"+id+"/unlink", map[string]string{"relatedCaseId": relatedID})
	return err
}

// BulkStatus transitions several cases at once.
func (s *Service) BulkStatus(ctx context.Context, ids []string, status model.CaseStatus) error {
	_, err := s.client.Post(ctx, "cases/bulk/status", map[string]any{"caseIds": ids, "status": status})
	return err
}

// BulkAssign assigns several cases at once.
func (s *Service) BulkAssign(ctx context.Context, ids []string, assignee string) error {
	_, err := s.client.Post(ctx, "cases/bulk/assign", map[string]any{"caseIds": ids, "assignedTo": assignee})
	return err
}

// BulkDelete removes several cases at once.
func (s *Service) BulkDelete(ctx context.Context, ids []string) error {
	_, err := s.client.Post(ctx, "cases/bulk/delete", map[string]any{"caseIds": ids})
	return err
}

// Statistics fetches the case aggregates.
func (s *Service) Statistics(ctx context.Context) (model.CaseStatistics, error) {
	env, err := s.client.Get(ctx, "cases/statistics", nil)
	if err != nil {
		return model.CaseStatistics{}, err
	}
	return model.Decode[model.CaseStatistics](env)
}

// Search runs a free-text search over cases.
func (s *Service) Search(ctx context.Context, query string, page model.Page) (model.PageOf[model.Case], error) {
	params := (*model.CaseFilters)(nil).Encode(nil, page)
	params.Set("q", query)
	env, err := s.client.GetPaginated(ctx, "cases/search", params)
	if err != nil {
		return model.PageOf[model.Case]{}, err
	}
	return model.DecodePage[model.Case](env)
}

var errEmptyComment = apierr.Validation("comment content is required")
