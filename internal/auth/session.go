package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoSession        = errors.New("no active session")
	ErrInvalidToken     = errors.New("invalid bearer token")
	ErrWrongCredentials = errors.New("wrong username or password")
)

type Session struct {
	ID        string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type StateChangeKind string

const (
	SignedIn  StateChangeKind = "SIGNED_IN"
	SignedOut StateChangeKind = "SIGNED_OUT"
	Expired   StateChangeKind = "EXPIRED"
)

// StateChange is published on every session transition.
type StateChange struct {
	Kind      StateChangeKind
	UserID    string
	SessionID string
	At        time.Time
}

type sessionCtxKey struct{}

func ContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, session)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionCtxKey{}).(*Session)
	return session, ok && session != nil
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	session, ok := SessionFromContext(ctx)
	if !ok || session.UserID == "" {
		return "", false
	}
	return session.UserID, true
}
