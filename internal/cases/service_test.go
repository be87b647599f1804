package cases

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/casescope/casescope/internal/apierr"
	"github.com/casescope/casescope/internal/model"
	"github.com/casescope/casescope/internal/transport"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp := model.Envelope{Data: raw, Success: true, Timestamp: time.Now().UTC()}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func newTestService(t *testing.T, handler http.Handler) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := transport.New(transport.Config{BaseURL: srv.URL + "/api"}, nil, nil, nil)
	if err != nil {
		t.Fatalf("transport: %v", err)
	}
	return NewService(client), srv
}

func TestListSendsEncodedFilters(t *testing.T) {
	var gotQuery string
	var gotPath string
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		writeEnvelope(t, w, []model.Case{})
	}))

	filters := &model.CaseFilters{Status: []model.CaseStatus{model.CaseDraft, model.CaseUnderInvestigation}}
	sort := &model.Sort{Field: "createdAt", Direction: model.SortDesc}
	if _, err := svc.List(context.Background(), filters, sort, model.Page{Number: 2, Size: 10}); err != nil {
		t.Fatalf("list: %v", err)
	}

	if gotPath != "/api/cases" {
		t.Fatalf("path = %q", gotPath)
	}
	want := map[string]string{
		"page":   "1",
		"size":   "10",
		"sort":   "createdAt,desc",
		"status": "DRAFT,UNDER_INVESTIGATION",
	}
	parsed, err := url.ParseQuery(gotQuery)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	for k, v := range want {
		if parsed.Get(k) != v {
			t.Fatalf("param %s = %q, want %q", k, parsed.Get(k), v)
		}
	}
}

func TestCreateValidationNeverReachesNetwork(t *testing.T) {
	var calls int
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeEnvelope(t, w, model.Case{})
	}))

	_, err := svc.Create(context.Background(), model.CreateCase{Description: ""})
	if err == nil {
		t.Fatal("expected validation error")
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Kind != apierr.KindValidation {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("validation failure hit the network %d times", calls)
	}
}

func TestUpdateStatusFillsQuickComment(t *testing.T) {
	var got statusChange
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/cases/C1/status" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeEnvelope(t, w, model.Case{ID: "C1", Status: model.CasePendingApproval})
	}))

	c, err := svc.UpdateStatus(context.Background(), "C1", model.CasePendingApproval, "")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if c.Status != model.CasePendingApproval {
		t.Fatalf("status = %q", c.Status)
	}
	if got.Comment != "Case submitted for approval" {
		t.Fatalf("quick comment = %q", got.Comment)
	}
}

func TestUpdateStatusKeepsExplicitComment(t *testing.T) {
	var got statusChange
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeEnvelope(t, w, model.Case{})
	}))

	if _, err := svc.UpdateStatus(context.Background(), "C1", model.CaseClosed, "confirmed duplicate"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if got.Comment != "confirmed duplicate" {
		t.Fatalf("comment = %q", got.Comment)
	}
}

func TestApprovalQueueReadsPendingApproval(t *testing.T) {
	var gotPath string
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		writeEnvelope(t, w, []model.Case{{ID: "C9", Status: model.CasePendingApproval}})
	}))

	page, err := svc.ApprovalQueue(context.Background(), model.Page{})
	if err != nil {
		t.Fatalf("approval queue: %v", err)
	}
	if gotPath != "/api/cases/by-status/PENDING_APPROVAL" {
		t.Fatalf("path = %q", gotPath)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "C9" {
		t.Fatalf("items = %+v", page.Items)
	}
}

func TestAddCommentRejectsBlank(t *testing.T) {
	var calls int
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeEnvelope(t, w, model.Comment{})
	}))

	if _, err := svc.AddComment(context.Background(), "C1", "   ", false, nil); err == nil {
		t.Fatal("expected validation error")
	}
	if calls != 0 {
		t.Fatalf("blank comment hit the network %d times", calls)
	}
}

func TestErrorsPropagateUnchanged(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(model.Envelope{Success: false, Message: "supervisors only"})
	}))

	_, err := svc.Approve(context.Background(), "C1", "")
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("unexpected error: %v", err)
	}
	if ae.Kind != apierr.KindPermission || ae.Message != "supervisors only" {
		t.Fatalf("got %v", ae)
	}
}
