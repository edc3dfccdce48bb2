package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/2beens/runlog/internal/auth"
	"github.com/2beens/runlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=middleware_mocks_test.go -package=middleware_test

type sessionChecker interface {
	GetSession(ctx context.Context, token string) (*auth.Session, error)
}

type AuthMiddlewareHandler struct {
	sessions             sessionChecker
	allowedPaths         map[string]bool
	allowedPathsPrefixes []string
}

func NewAuthMiddlewareHandler(sessions sessionChecker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		sessions: sessions,
		allowedPaths: map[string]bool{
			"/health":  true,
			"/a/login": true,
			// checks the bearer token on its own, with its own error contract
			"/functions/v1/generate-workout": true,
		},
		allowedPathsPrefixes: []string{
			"/storage/v1/object/public/",
		},
	}
}

func (h *AuthMiddlewareHandler) pathIsAlwaysAllowed(path string) bool {
	if h.allowedPaths[path] {
		return true
	}
	for _, prefix := range h.allowedPathsPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// AuthCheck resolves the bearer token into a session and puts it into the request context.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if h.pathIsAlwaysAllowed(r.URL.Path) {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			session, err := h.sessions.GetSession(ctx, token)
			if err != nil {
				if errors.Is(err, auth.ErrNoSession) || errors.Is(err, auth.ErrInvalidToken) {
					log.Tracef("[invalid token] [auth middleware] unauthorized => %s: %s", r.URL.Path, err)
					span.SetStatus(codes.Error, "not-logged")
				} else {
					log.Errorf("[failed session check] => %s: %s", r.URL.Path, err)
					span.SetStatus(codes.Error, "check-session-err")
					span.RecordError(err)
				}
				http.Error(w, "no can do", http.StatusUnauthorized)
				return
			}

			span.SetAttributes(attribute.String("user.id", session.UserID))
			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.ContextWithSession(r.Context(), session)))
		})
	}
}
