package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/runlog/internal/pubsub"
	"github.com/2beens/runlog/internal/telemetry/tracing"
	"github.com/2beens/runlog/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	sessionKeyPrefix = "runlog-session||"
	sessionsKey      = "runlog-sessions"
	sessionIDLength  = 35
)

//go:generate mockgen -source=$GOFILE -destination=auth_mocks_test.go -package=auth_test

type usersStore interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
}

type LoginResult struct {
	Token   string
	Session *Session
}

type Service struct {
	redisClient *redis.Client
	users       usersStore
	tokens      *TokenIssuer
	ttl         time.Duration
	stateBroker *pubsub.Broker[StateChange]

	// ability to inject random string generator func for session ids (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
	Now            func() time.Time
}

func NewAuthService(
	ttl time.Duration,
	redisClient *redis.Client,
	users usersStore,
	tokens *TokenIssuer,
) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		ttl:            ttl,
		redisClient:    redisClient,
		users:          users,
		tokens:         tokens,
		stateBroker:    pubsub.NewBroker[StateChange](),
		RandStringFunc: pkg.GenerateRandomString,
		Now:            time.Now,
	}
}

func (as *Service) TTL() time.Duration {
	return as.ttl
}

func (as *Service) Login(ctx context.Context, username, password string) (_ *LoginResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.login")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user, err := as.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrWrongCredentials
		}
		return nil, err
	}
	if !pkg.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrWrongCredentials
	}

	sessionID, err := as.RandStringFunc(sessionIDLength)
	if err != nil {
		return nil, err
	}

	createdAt := as.Now().Truncate(time.Second)
	session := &Session{
		ID:        sessionID,
		UserID:    user.ID,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(as.ttl),
	}

	sessionValue := fmt.Sprintf("%s|%d", user.ID, createdAt.Unix())
	if err := as.redisClient.Set(ctx, sessionKeyPrefix+sessionID, sessionValue, as.ttl).Err(); err != nil {
		return nil, err
	}
	if err := as.redisClient.HSet(ctx, sessionsKey, sessionID, user.ID).Err(); err != nil {
		return nil, err
	}

	token, err := as.tokens.Issue(user.ID, sessionID, createdAt, as.ttl)
	if err != nil {
		return nil, err
	}

	as.stateBroker.Publish(StateChange{
		Kind:      SignedIn,
		UserID:    user.ID,
		SessionID: sessionID,
		At:        createdAt,
	})

	return &LoginResult{
		Token:   token,
		Session: session,
	}, nil
}

// GetSession validates the bearer token and resolves the live session it points to.
func (as *Service) GetSession(ctx context.Context, token string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.getSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	claims, err := as.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	value, err := as.redisClient.Get(ctx, sessionKeyPrefix+claims.SessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, err
	}

	userID, createdAt, err := parseSessionValue(value)
	if err != nil {
		return nil, err
	}
	if userID != claims.UserID {
		return nil, ErrInvalidToken
	}

	return &Session{
		ID:        claims.SessionID,
		UserID:    userID,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(as.ttl),
	}, nil
}

// SignOut revokes the session. Signing out of a session that is already gone returns ErrNoSession.
func (as *Service) SignOut(ctx context.Context, session *Session) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.signOut")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if session == nil || session.ID == "" {
		return ErrNoSession
	}

	deleted, err := as.redisClient.Del(ctx, sessionKeyPrefix+session.ID).Result()
	if err != nil {
		return err
	}
	if err := as.redisClient.HDel(ctx, sessionsKey, session.ID).Err(); err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNoSession
	}

	as.stateBroker.Publish(StateChange{
		Kind:      SignedOut,
		UserID:    session.UserID,
		SessionID: session.ID,
		At:        as.Now(),
	})
	return nil
}

// OnAuthStateChange registers fn for sign-in, sign-out and expiry events.
// The returned cancel func releases the subscription.
func (as *Service) OnAuthStateChange(fn func(StateChange)) (cancel func()) {
	return as.stateBroker.Subscribe(fn)
}

// ScanAndClean will run through all known sessions and drop the ones whose redis key has expired.
func (as *Service) ScanAndClean(ctx context.Context) {
	sessions, err := as.redisClient.HGetAll(ctx, sessionsKey).Result()
	if err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return
	}

	if len(sessions) == 0 {
		log.Debugln("=> auth service, scan and clean abort, no sessions")
		return
	}

	log.Debugf("=> auth service, scan and clean [%d sessions] start ...", len(sessions))
	for sessionID, userID := range sessions {
		exists, err := as.redisClient.Exists(ctx, sessionKeyPrefix+sessionID).Result()
		if err != nil {
			log.Errorf("=> auth service, scan and clean session %s: %s", sessionID, err)
			continue
		}
		if exists > 0 {
			continue
		}

		log.Debugf("=>\twill clean the expired session: %s", sessionID)
		if err := as.redisClient.HDel(ctx, sessionsKey, sessionID).Err(); err != nil {
			log.Errorf("=> auth service, clean session %s: %s", sessionID, err)
			continue
		}

		as.stateBroker.Publish(StateChange{
			Kind:      Expired,
			UserID:    userID,
			SessionID: sessionID,
			At:        as.Now(),
		})
	}
}

func (as *Service) Close() {
	as.stateBroker.Close()
}

func parseSessionValue(value string) (string, time.Time, error) {
	userID, createdAtStr, found := strings.Cut(value, "|")
	if !found || userID == "" {
		return "", time.Time{}, fmt.Errorf("malformed session value: %q", value)
	}
	createdAtUnix, err := strconv.ParseInt(createdAtStr, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed session created at: %w", err)
	}
	return userID, time.Unix(createdAtUnix, 0), nil
}
