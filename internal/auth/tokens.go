package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs and verifies the bearer tokens handed out on login.
// A token only identifies a session; the session itself lives in redis and can be revoked.
type TokenIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type TokenClaims struct {
	UserID    string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func NewTokenIssuer(secret, issuer string) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret cannot be empty")
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}, nil
}

func (ti *TokenIssuer) Issue(userID, sessionID string, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    ti.issuer,
		Subject:   userID,
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (ti *TokenIssuer) Parse(token string) (*TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	},
		jwt.WithIssuer(ti.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	tc := &TokenClaims{
		UserID:    claims.Subject,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		tc.IssuedAt = claims.IssuedAt.Time
	}
	return tc, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(headerValue string) (string, bool) {
	const prefix = "bearer "
	if len(headerValue) < len(prefix) || !strings.EqualFold(headerValue[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(headerValue[len(prefix):])
	return token, token != ""
}
