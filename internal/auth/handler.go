package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/runlog/internal/telemetry/tracing"
	"github.com/2beens/runlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=auth_test

type sessionManager interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	SignOut(ctx context.Context, session *Session) error
}

type Handler struct {
	sessions sessionManager
}

func NewHandler(sessions sessionManager) *Handler {
	return &Handler{
		sessions: sessions,
	}
}

// SetupRoutes registers the handlers on the given /a subrouter.
func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/login", handler.HandleLogin).Methods("POST", "OPTIONS").Name("login")
	router.HandleFunc("/logout", handler.HandleLogout).Methods("POST", "OPTIONS").Name("logout")
	router.HandleFunc("/session", handler.HandleSession).Methods("GET").Name("session")
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.login")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var loginReq loginRequest
	if pkg.HasMediaType(r, pkg.ContentType.JSON) {
		if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
			log.Tracef("login, unmarshal json params: %s", err)
			http.Error(w, "login failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Tracef("login failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusBadRequest)
			return
		}
		loginReq = loginRequest{
			Username: r.Form.Get("username"),
			Password: r.Form.Get("password"),
		}
	}

	if loginReq.Username == "" {
		http.Error(w, "error, username empty", http.StatusBadRequest)
		return
	}
	if loginReq.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	result, err := handler.sessions.Login(ctx, loginReq.Username, loginReq.Password)
	if err != nil {
		if errors.Is(err, ErrWrongCredentials) {
			log.Tracef("failed login attempt for user: %s", loginReq.Username)
			http.Error(w, "error, wrong credentials", http.StatusBadRequest)
			return
		}
		log.Errorf("login failed for [%s]: %s", loginReq.Username, err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("new login success for user [%s]", result.Session.UserID)
	pkg.WriteJSON(w, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.Session.ExpiresAt,
	}, http.StatusOK)
}

func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.logout")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	session, ok := SessionFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if err := handler.sessions.SignOut(ctx, session); err != nil {
		if errors.Is(err, ErrNoSession) {
			http.Error(w, "no can do", http.StatusUnauthorized)
			return
		}
		log.Errorf("logout for session [%s] failed: %s", session.ID, err)
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("logout for user [%s] success", session.UserID)
	pkg.WriteTextResponseOK(w, "logged-out")
}

func (handler *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.session")
	defer span.End()

	session, ok := SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pkg.WriteJSON(w, session, http.StatusOK)
}
