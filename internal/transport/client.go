// Package transport is the single point of outbound HTTP communication.
// It injects the bearer token, enforces the request timeout, validates the
// response envelope at the wire boundary and maps failures onto the error
// taxonomy. It is the only component allowed to tear down the persisted
// session when the backend answers 401.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"golang.org/x/time/rate"

	"github.com/casescope/casescope/internal/apierr"
	"github.com/casescope/casescope/internal/model"
)

// TokenSource supplies the bearer token attached to every request. An empty
// token means the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// Config captures client construction parameters.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client wraps one configured HTTP client for the whole process.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	logger  *slog.Logger

	// onUnauthorized runs once per 401 response. It owns session teardown;
	// no other layer may touch persisted auth state.
	onUnauthorized func()
}

// New creates a transport client. tokens and onUnauthorized may be nil.
func New(cfg Config, tokens TokenSource, onUnauthorized func(), logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api base_url required")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base_url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:        parsed,
		http:           &http.Client{Timeout: timeout},
		tokens:         tokens,
		limiter:        rate.NewLimiter(limit, burst),
		logger:         logger,
		onUnauthorized: onUnauthorized,
	}, nil
}

// Get issues a GET and decodes the standard envelope.
func (c *Client) Get(ctx context.Context, rel string, params url.Values) (model.Envelope, error) {
	body, err := c.do(ctx, http.MethodGet, rel, params, nil)
	if err != nil {
		return model.Envelope{}, err
	}
	return decodeEnvelope(body)
}

// GetPaginated issues a GET and decodes the paginated envelope.
func (c *Client) GetPaginated(ctx context.Context, rel string, params url.Values) (model.PaginatedEnvelope, error) {
	body, err := c.do(ctx, http.MethodGet, rel, params, nil)
	if err != nil {
		return model.PaginatedEnvelope{}, err
	}
	return decodePaginated(body)
}

// Post issues a POST with an optional JSON body.
func (c *Client) Post(ctx context.Context, rel string, payload any) (model.Envelope, error) {
	return c.withBody(ctx, http.MethodPost, rel, payload)
}

// Put issues a PUT with an optional JSON body.
func (c *Client) Put(ctx context.Context, rel string, payload any) (model.Envelope, error) {
	return c.withBody(ctx, http.MethodPut, rel, payload)
}

// Patch issues a PATCH with an optional JSON body.
func (c *Client) Patch(ctx context.Context, rel string, payload any) (model.Envelope, error) {
	return c.withBody(ctx, http.MethodPatch, rel, payload)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, rel string) (model.Envelope, error) {
	body, err := c.do(ctx, http.MethodDelete, rel, nil, nil)
	if err != nil {
		return model.Envelope{}, err
	}
	return decodeEnvelope(body)
}

func (c *Client) withBody(ctx context.Context, method, rel string, payload any) (model.Envelope, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return model.Envelope{}, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	body, err := c.do(ctx, method, rel, nil, reader)
	if err != nil {
		return model.Envelope{}, err
	}
	return decodeEnvelope(body)
}

func (c *Client) do(ctx context.Context, method, rel string, params url.Values, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apierr.Network(err)
	}

	u := c.resolve(rel)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts are indistinguishable from other transport failures for
		// retry and error purposes.
		return nil, apierr.Network(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Network(err)
	}

	if resp.StatusCode >= 400 {
		return nil, c.intercept(resp.StatusCode, method, rel, data)
	}
	return data, nil
}

// intercept applies the response-interceptor side effects and maps the
// status onto the taxonomy. The error always propagates to the caller.
func (c *Client) intercept(status int, method, rel string, body []byte) error {
	msg := serverMessage(body)
	err := apierr.FromStatus(status, msg)

	switch {
	case status == http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	case status == http.StatusForbidden:
		c.logger.Warn("access forbidden, insufficient permissions",
			slog.String("method", method), slog.String("path", rel))
	case status >= 500:
		c.logger.Error("server error",
			slog.String("method", method), slog.String("path", rel),
			slog.Int("status", status), slog.String("message", msg))
	}
	return err
}

func (c *Client) resolve(rel string) string {
	u := *c.baseURL
	u.Path = path.Join(c.baseURL.Path, rel)
	return u.String()
}

// serverMessage extracts the envelope message from an error body, if the
// body carries one.
func serverMessage(body []byte) string {
	var env model.Envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return ""
}

func decodeEnvelope(body []byte) (model.Envelope, error) {
	var env model.Envelope
	if err := validateEnvelope(body, &env); err != nil {
		return model.Envelope{}, err
	}
	return env, nil
}

func decodePaginated(body []byte) (model.PaginatedEnvelope, error) {
	var env model.PaginatedEnvelope
	if err := validateEnvelope(body, &env); err != nil {
		return model.PaginatedEnvelope{}, err
	}
	return env, nil
}

// validateEnvelope parses the wire body and rejects shape mismatches instead
// of trusting the format implicitly.
func validateEnvelope(body []byte, into any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(into); err != nil {
		return apierr.Unknown("malformed response envelope", err)
	}
	success, ok := envelopeOf(into)
	if !ok {
		return errors.New("transport: decode target must embed an envelope")
	}
	if !success.Success {
		msg := success.Message
		if msg == "" {
			msg = "request failed"
		}
		return apierr.Unknown(msg, nil)
	}
	return nil
}

func envelopeOf(v any) (*model.Envelope, bool) {
	switch e := v.(type) {
	case *model.Envelope:
		return e, true
	case *model.PaginatedEnvelope:
		return &e.Envelope, true
	default:
		return nil, false
	}
}
