package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func signHS256(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestNewJWTVerifierKeyLength(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTVerifier([]byte("short")); err == nil {
		t.Fatalf("expected error for short key")
	}
	if _, err := NewJWTVerifier(testKey); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJWTVerifierRoundTrip(t *testing.T) {
	t.Parallel()

	v, err := NewJWTVerifier(testKey)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	token := signHS256(t, testKey, jwt.MapClaims{
		"sub": "u-alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	userID, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "u-alice" {
		t.Fatalf("userID=%q want=u-alice", userID)
	}
}

func TestJWTVerifierRejects(t *testing.T) {
	t.Parallel()

	v, err := NewJWTVerifier(testKey)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	wrongKey := []byte("ffffffffffffffffffffffffffffffff")

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{name: "garbage", token: "not-a-jwt", want: ErrInvalidToken},
		{
			name:  "wrong key",
			token: signHS256(t, wrongKey, jwt.MapClaims{"sub": "u-a", "exp": time.Now().Add(time.Hour).Unix()}),
			want:  ErrInvalidToken,
		},
		{
			name:  "expired",
			token: signHS256(t, testKey, jwt.MapClaims{"sub": "u-a", "exp": time.Now().Add(-time.Hour).Unix()}),
			want:  ErrInvalidToken,
		},
		{
			name:  "no subject",
			token: signHS256(t, testKey, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
			want:  ErrMissingSubject,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := v.Verify(context.Background(), tc.token)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want=%v", err, tc.want)
			}
		})
	}
}

func TestDevVerifier(t *testing.T) {
	t.Parallel()

	v := DevVerifier{}

	userID, err := v.Verify(context.Background(), "user:u-bob")
	if err != nil || userID != "u-bob" {
		t.Fatalf("Verify=%q err=%v; want u-bob nil", userID, err)
	}

	if _, err := v.Verify(context.Background(), "u-bob"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("missing prefix: err=%v want=ErrInvalidToken", err)
	}
	if _, err := v.Verify(context.Background(), "user: "); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("empty id: err=%v want=ErrMissingSubject", err)
	}
}
