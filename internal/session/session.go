// Package session persists the auth token and current user between
// invocations. Presence of a token is the only client-side authentication
// check; the token is never validated locally, though its claims are read
// for display and expiry warnings.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/casescope/casescope/internal/model"
)

// ErrNotAuthenticated is returned when an operation needs a session and none
// is stored.
var ErrNotAuthenticated = errors.New("not authenticated: run login first")

type state struct {
	Token string      `json:"token"`
	User  *model.User `json:"user,omitempty"`
}

// Store is a file-backed session store. The zero value is unusable; use Open.
type Store struct {
	path string

	mu sync.Mutex
	st state
}

// Open loads the session file at path, tolerating its absence.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(data, &s.st); err != nil {
		// A corrupt session file behaves like a logged-out state.
		s.st = state{}
	}
	return s, nil
}

// Token returns the persisted bearer token, or "".
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Token
}

// User returns the persisted current user, or nil.
func (s *Store) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.User
}

// Authenticated reports whether a token is present.
func (s *Store) Authenticated() bool { return s.Token() != "" }

// Save persists a new token and user, replacing any existing session.
func (s *Store) Save(token string, user *model.User) error {
	s.mu.Lock()
	s.st = state{Token: token, User: user}
	data, err := json.Marshal(s.st)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the persisted session. It is the teardown invoked by the
// transport on a 401 and by explicit logout.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.st = state{}
	s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Claims are read from the token without signature verification; the server
// remains the authority.
type Claims struct {
	Subject string
	Expiry  time.Time
}

// Claims parses the stored token's claims. An opaque (non-JWT) token yields
// an error; callers treat that as "no claims available".
func (s *Store) Claims() (Claims, error) {
	token := s.Token()
	if token == "" {
		return Claims{}, ErrNotAuthenticated
	}
	tok, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	return Claims{Subject: tok.Subject(), Expiry: tok.Expiration()}, nil
}

// ExpiringWithin reports whether the token carries an expiry inside d.
// Opaque tokens and tokens without exp report false.
func (s *Store) ExpiringWithin(d time.Duration) bool {
	c, err := s.Claims()
	if err != nil || c.Expiry.IsZero() {
		return false
	}
	return time.Until(c.Expiry) < d
}
