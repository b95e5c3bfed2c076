// Package session keeps the credentials the CLI uses to reach a remote
// kitchenboard server.
//
// A [Session] pairs an API endpoint with the bearer token issued for it.
// `kitchenboard login` writes one through [CLIStore]; commands that open
// the remote Graph Store read it back. Sessions carry an expiry so stale
// tokens are dropped instead of producing UNAUTHORIZED on every request.
//
// Sessions are stored as JSON files under ~/.config/kitchenboard/sessions/
// with mode 0600:
//
//	store, err := session.NewCLIStore()
//	sess, err := session.New("https://board.example.com", token, session.DefaultTTL)
//	err = store.SaveSession(ctx, sess)
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"
)

// Session stores the credentials for one kitchenboard server.
type Session struct {
	ID        string    `json:"id"`
	Endpoint  string    `json:"endpoint"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired. A zero expiry never
// expires.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error
}

// DefaultTTL is how long a saved login stays valid.
const DefaultTTL = 30 * 24 * time.Hour

// GenerateID creates a cryptographically secure random identifier. It also
// serves as an API token generator for `kitchenboard serve`.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// New creates a session for endpoint. A ttl of zero never expires.
func New(endpoint, token string, ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	sess := &Session{
		ID:        id,
		Endpoint:  endpoint,
		Token:     token,
		CreatedAt: now,
	}
	if ttl > 0 {
		sess.ExpiresAt = now.Add(ttl)
	}
	return sess, nil
}
