// Package session holds server-side session records and the recovery
// cookies that let a browser get its session back after the session cookie
// is lost.
package session

import (
	"context"
	"time"
)

// Session is an authenticated browser session. Only ID ever leaves the
// server, inside the signed session cookie.
type Session struct {
	ID         string    `json:"id"`
	LoggedIn   bool      `json:"loggedin"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Live reports whether s is a logged-in session that has not expired at now.
func (s *Session) Live(now time.Time) bool {
	return s != nil && s.LoggedIn && now.Before(s.ExpiresAt)
}

// Touch slides the expiry window forward from now.
func (s *Session) Touch(now time.Time, ttl time.Duration) {
	s.LastSeenAt = now
	s.ExpiresAt = now.Add(ttl)
}

// Store defines how sessions are stored and retrieved.
// Get returns common.ErrorNotFound for unknown or expired ids.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}
