package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/samirrijal/parkit/internal/pkg/auth"
)

var secret = []byte("backend-secret")

func sign(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestSubject(t *testing.T) {
	sub, err := auth.NewVerifier(secret).Subject(sign(t, secret, jwt.MapClaims{"sub": "user-42"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub != "user-42" {
		t.Errorf("expected user-42, got %s", sub)
	}
}

func TestSubject_FallsBackToID(t *testing.T) {
	sub, err := auth.NewVerifier(secret).Subject(sign(t, secret, jwt.MapClaims{"id": "u-7"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub != "u-7" {
		t.Errorf("expected u-7, got %s", sub)
	}
}

func TestSubject_NoSubject(t *testing.T) {
	_, err := auth.NewVerifier(secret).Subject(sign(t, secret, jwt.MapClaims{"role": "driver"}))
	if !errors.Is(err, auth.ErrNoSubject) {
		t.Errorf("expected ErrNoSubject, got %v", err)
	}
}

func TestSubject_Rejected(t *testing.T) {
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "victim"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "victim"}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong key", sign(t, []byte("other-secret"), jwt.MapClaims{"sub": "victim"})},
		{"alg none", none},
		{"other method", hs512},
		{"expired", sign(t, secret, jwt.MapClaims{"sub": "victim", "exp": time.Now().Add(-time.Hour).Unix()})},
	}
	v := auth.NewVerifier(secret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Subject(tt.token); !errors.Is(err, auth.ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestFromHeader(t *testing.T) {
	if got := auth.FromHeader("Bearer abc.def"); got != "abc.def" {
		t.Errorf("expected abc.def, got %q", got)
	}
	if got := auth.FromHeader("Basic zzz"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
	ctx := auth.WithToken(context.Background(), "tok")
	if auth.Token(ctx) != "tok" {
		t.Error("token not stored in context")
	}
}
