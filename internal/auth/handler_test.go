package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/2beens/runlog/internal/auth"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthRouter(t *testing.T) (*mux.Router, *MocksessionManager) {
	t.Helper()
	sessionsMock := NewMocksessionManager(gomock.NewController(t))
	router := mux.NewRouter()
	auth.NewHandler(sessionsMock).SetupRoutes(router.PathPrefix("/a").Subrouter())
	return router, sessionsMock
}

func TestHandler_Login(t *testing.T) {
	router, sessionsMock := setupAuthRouter(t)

	expiresAt := time.Date(2024, 5, 24, 10, 0, 0, 0, time.UTC)
	sessionsMock.EXPECT().
		Login(gomock.Any(), testUsername, testPassword).
		Return(&auth.LoginResult{
			Token: "jwt-token",
			Session: &auth.Session{
				ID:        testSessionID,
				UserID:    testUserID,
				ExpiresAt: expiresAt,
			},
		}, nil)

	req := httptest.NewRequest("POST", "/a/login", strings.NewReader(`{"username":"testuser","password":"testpass"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "jwt-token", resp.Token)
	assert.True(t, expiresAt.Equal(resp.ExpiresAt))
}

func TestHandler_Login_Form(t *testing.T) {
	router, sessionsMock := setupAuthRouter(t)

	sessionsMock.EXPECT().
		Login(gomock.Any(), testUsername, "bad").
		Return(nil, auth.ErrWrongCredentials)

	form := url.Values{}
	form.Add("username", testUsername)
	form.Add("password", "bad")
	req := httptest.NewRequest("POST", "/a/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "wrong credentials")
}

func TestHandler_Login_BadRequests(t *testing.T) {
	router, sessionsMock := setupAuthRouter(t)

	for name, body := range map[string]string{
		"no username": `{"password":"x"}`,
		"no password": `{"username":"x"}`,
		"bad json":    `{"username":`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/a/login", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	sessionsMock.EXPECT().
		Login(gomock.Any(), testUsername, testPassword).
		Return(nil, errors.New("redis down"))
	req := httptest.NewRequest("POST", "/a/login", strings.NewReader(`{"username":"testuser","password":"testpass"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	req = httptest.NewRequest("OPTIONS", "/a/login", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "POST, OPTIONS", rr.Header().Get("Allow"))
}

func TestHandler_Logout(t *testing.T) {
	router, sessionsMock := setupAuthRouter(t)
	session := &auth.Session{ID: testSessionID, UserID: testUserID}

	// no session in context
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/a/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	sessionsMock.EXPECT().SignOut(gomock.Any(), session).Return(nil)
	req := httptest.NewRequest("POST", "/a/logout", nil)
	req = req.WithContext(auth.ContextWithSession(context.Background(), session))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "logged-out", rr.Body.String())

	sessionsMock.EXPECT().SignOut(gomock.Any(), session).Return(auth.ErrNoSession)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_Session(t *testing.T) {
	router, _ := setupAuthRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/a/session", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	session := &auth.Session{
		ID:        testSessionID,
		UserID:    testUserID,
		CreatedAt: time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC),
		ExpiresAt: time.Date(2024, 5, 24, 10, 0, 0, 0, time.UTC),
	}
	req := httptest.NewRequest("GET", "/a/session", nil)
	req = req.WithContext(auth.ContextWithSession(context.Background(), session))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var got auth.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, testUserID, got.UserID)
	assert.Equal(t, testSessionID, got.ID)
}
