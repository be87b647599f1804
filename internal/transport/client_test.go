package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/casescope/casescope/internal/apierr"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newClient(t *testing.T, baseURL string, tokens TokenSource, onUnauthorized func()) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := New(Config{BaseURL: baseURL, Timeout: 2 * time.Second}, tokens, onUnauthorized, logger)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func envelopeBody(data any) string {
	raw, _ := json.Marshal(data)
	body, _ := json.Marshal(map[string]any{
		"data":      json.RawMessage(raw),
		"success":   true,
		"timestamp": time.Now().UTC(),
	})
	return string(body)
}

func TestBearerTokenInjection(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		io.WriteString(w, envelopeBody(map[string]string{"ok": "yes"}))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, staticToken("tok-1"), nil)
	if _, err := c.Get(context.Background(), "/cases", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("authorization = %q", gotAuth)
	}
}

func TestNoTokenNoHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		io.WriteString(w, envelopeBody(nil))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, staticToken(""), nil)
	if _, err := c.Get(context.Background(), "/cases", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("authorization = %q want empty", gotAuth)
	}
}

func TestUnauthorizedTearsDownSessionOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"success":false,"message":"token expired"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	var teardowns int
	c := newClient(t, srv.URL, staticToken("stale"), func() { teardowns++ })

	_, err := c.Get(context.Background(), "/cases", nil)
	if apierr.KindOf(err) != apierr.KindAuth {
		t.Fatalf("kind = %s want AUTH_ERROR", apierr.KindOf(err))
	}
	if teardowns != 1 {
		t.Errorf("teardowns = %d want 1", teardowns)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   apierr.Kind
	}{
		{"forbidden", 403, apierr.KindPermission},
		{"server_error", 500, apierr.KindServer},
		{"unavailable", 503, apierr.KindServer},
		{"not_found", 404, apierr.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"success":false,"message":"nope"}`, tc.status)
			}))
			defer srv.Close()

			c := newClient(t, srv.URL, nil, nil)
			_, err := c.Get(context.Background(), "/cases", nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if apierr.KindOf(err) != tc.want {
				t.Errorf("kind = %s want %s", apierr.KindOf(err), tc.want)
			}
		})
	}
}

func TestServerMessageSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"success":false,"message":"case is terminal"}`, http.StatusConflict)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil, nil)
	_, err := c.Post(context.Background(), "/cases/C1/status", map[string]string{"status": "CLOSED"})
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("error type = %T", err)
	}
	if ae.Message != "case is terminal" {
		t.Errorf("message = %q", ae.Message)
	}
	if ae.Status != http.StatusConflict {
		t.Errorf("status = %d", ae.Status)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := newClient(t, srv.URL, nil, nil)
	_, err := c.Get(context.Background(), "/cases", nil)
	if apierr.KindOf(err) != apierr.KindNetwork {
		t.Errorf("kind = %s want NETWORK_ERROR", apierr.KindOf(err))
	}
	if !apierr.Retryable(err) {
		t.Error("network failure must be retryable")
	}
}

func TestTimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		io.WriteString(w, envelopeBody(nil))
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := New(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, nil, nil, logger)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Get(context.Background(), "/cases", nil)
	if apierr.KindOf(err) != apierr.KindNetwork {
		t.Errorf("kind = %s want NETWORK_ERROR for timeout", apierr.KindOf(err))
	}
}

func TestMalformedEnvelopeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>definitely not json</html>`)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil, nil)
	_, err := c.Get(context.Background(), "/cases", nil)
	if apierr.KindOf(err) != apierr.KindUnknown {
		t.Errorf("kind = %s want UNKNOWN_ERROR", apierr.KindOf(err))
	}
}

func TestUnsuccessfulEnvelopeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":null,"success":false,"message":"downstream degraded","timestamp":"2026-01-01T00:00:00Z"}`)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil, nil)
	_, err := c.Get(context.Background(), "/cases", nil)
	if err == nil {
		t.Fatal("expected error for success=false")
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Message != "downstream degraded" {
		t.Errorf("error = %v", err)
	}
}

func TestPaginatedDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[{"id":"C1"}],"success":true,"timestamp":"2026-01-01T00:00:00Z","pagination":{"page":0,"size":20,"total":1,"totalPages":1}}`)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil, nil)
	env, err := c.GetPaginated(context.Background(), "/cases", nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if env.Pagination.Total != 1 || env.Pagination.Size != 20 {
		t.Errorf("pagination = %+v", env.Pagination)
	}
}

func TestQueryParamsForwarded(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, envelopeBody(nil))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, nil, nil)
	params := map[string][]string{"status": {"DRAFT"}, "page": {"0"}}
	if _, err := c.Get(context.Background(), "/cases", params); err != nil {
		t.Fatal(err)
	}
	if gotQuery != "page=0&status=DRAFT" {
		t.Errorf("query = %q", gotQuery)
	}
}

