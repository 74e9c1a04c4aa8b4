// Package auth is the boundary to the authentication collaborator.
//
// Registration, login, password hashing, and OTP delivery all live outside this
// process. The only thing the realtime core needs from auth is: given an opaque
// credential presented at connection time, return the verified UserID.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed, expired, or forged credentials.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrMissingSubject is returned when a valid token carries no user identity.
	ErrMissingSubject = errors.New("auth: token has no subject")
)

// JWTVerifier validates HS256 tokens issued by the auth collaborator.
// The "sub" claim is the UserID handed to the presence core.
type JWTVerifier struct {
	key []byte
}

// NewJWTVerifier constructs a verifier for the given HMAC key.
// A minimum of 32 bytes is enforced for HMAC-SHA256.
func NewJWTVerifier(key []byte) (*JWTVerifier, error) {
	if len(key) < 32 {
		return nil, errors.New("auth: HMAC key too short (min 32 bytes)")
	}
	return &JWTVerifier{key: key}, nil
}

// Verify parses and validates the token and returns the subject as UserID.
func (v *JWTVerifier) Verify(_ context.Context, token string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", ErrMissingSubject
	}
	return sub, nil
}

// DevVerifier accepts "user:<id>" tokens. It exists for local development and
// smoke tests when no HMAC key is configured; never use it in production.
type DevVerifier struct{}

// Verify extracts the user id from a "user:<id>" token.
func (DevVerifier) Verify(_ context.Context, token string) (string, error) {
	const prefix = "user:"
	if !strings.HasPrefix(token, prefix) {
		return "", ErrInvalidToken
	}
	id := strings.TrimSpace(strings.TrimPrefix(token, prefix))
	if id == "" {
		return "", ErrMissingSubject
	}
	return id, nil
}
