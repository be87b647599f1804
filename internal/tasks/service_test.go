package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/casescope/casescope/internal/model"
	"github.com/casescope/casescope/internal/transport"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(model.Envelope{Data: raw, Success: true, Timestamp: time.Now().UTC()}); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func newTestService(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := transport.New(transport.Config{BaseURL: srv.URL + "/api"}, nil, nil, nil)
	if err != nil {
		t.Fatalf("transport: %v", err)
	}
	return NewService(client)
}

func TestLifecycleEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		call     func(s *Service) error
		wantPath string
	}{
		{"claim", func(s *Service) error { _, err := s.Claim(context.Background(), "T1"); return err }, "/api/tasks/T1/claim"},
		{"release", func(s *Service) error { _, err := s.Release(context.Background(), "T1"); return err }, "/api/tasks/T1/release"},
		{"start", func(s *Service) error { _, err := s.Start(context.Background(), "T1"); return err }, "/api/tasks/T1/start"},
		{"complete", func(s *Service) error { _, err := s.Complete(context.Background(), "T1", nil); return err }, "/api/tasks/T1/complete"},
		{"pause", func(s *Service) error { _, err := s.Pause(context.Background(), "T1", "waiting on docs"); return err }, "/api/tasks/T1/pause"},
		{"resume", func(s *Service) error { _, err := s.Resume(context.Background(), "T1"); return err }, "/api/tasks/T1/resume"},
		{"cancel", func(s *Service) error { _, err := s.Cancel(context.Background(), "T1", ""); return err }, "/api/tasks/T1/cancel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMethod, gotPath string
			svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotPath = r.URL.Path
				writeEnvelope(t, w, model.Task{ID: "T1"})
			}))
			if err := tt.call(svc); err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if gotMethod != http.MethodPost || gotPath != tt.wantPath {
				t.Fatalf("got %s %s, want POST %s", gotMethod, gotPath, tt.wantPath)
			}
		})
	}
}

func TestListEncodesDueDateRange(t *testing.T) {
	var gotQuery url.Values
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeEnvelope(t, w, []model.Task{})
	}))

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	filters := &model.TaskFilters{
		Status:  []model.TaskStatus{model.TaskPending, model.TaskInProgress},
		CaseID:  "C7",
		DueDate: &model.DateRange{Start: start, End: end},
	}
	if _, err := svc.List(context.Background(), filters, nil, model.Page{}); err != nil {
		t.Fatalf("list: %v", err)
	}

	if got := gotQuery.Get("status"); got != "PENDING,IN_PROGRESS" {
		t.Fatalf("status = %q", got)
	}
	if got := gotQuery.Get("caseId"); got != "C7" {
		t.Fatalf("caseId = %q", got)
	}
	if got := gotQuery.Get("dueDateStart"); got != "2025-05-01T00:00:00Z" {
		t.Fatalf("dueDateStart = %q", got)
	}
	if got := gotQuery.Get("dueDateEnd"); got != "2025-05-31T00:00:00Z" {
		t.Fatalf("dueDateEnd = %q", got)
	}
	if got := gotQuery.Get("page"); got != "0" {
		t.Fatalf("page = %q, want 0-based default", got)
	}
}

func TestCreateRequiresCaseReference(t *testing.T) {
	var calls int
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeEnvelope(t, w, model.Task{})
	}))

	if _, err := svc.Create(context.Background(), model.CreateTask{TaskName: "review"}); err == nil {
		t.Fatal("expected validation error")
	}
	if calls != 0 {
		t.Fatalf("invalid payload hit the network %d times", calls)
	}
}

func TestCompleteSendsVariables(t *testing.T) {
	var body map[string]any
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		writeEnvelope(t, w, model.Task{ID: "T1", Status: model.TaskCompleted})
	}))

	task, err := svc.Complete(context.Background(), "T1", map[string]any{"outcome": "escalated"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if task.Status != model.TaskCompleted {
		t.Fatalf("status = %q", task.Status)
	}
	vars, ok := body["variables"].(map[string]any)
	if !ok || vars["outcome"] != "escalated" {
		t.Fatalf("body = %v", body)
	}
}
