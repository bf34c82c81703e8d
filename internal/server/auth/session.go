package auth

import (
	"context"
	"time"
)

// Session is the authenticated caller of one request. It is built per
// request from the access token and the stored user.
type Session struct {
	UserID    string
	Username  string
	Email     string
	IsAdmin   bool
	IsRoot    bool
	TokenID   string
	ExpiresAt time.Time
}

type sessionKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by WithSession, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}
