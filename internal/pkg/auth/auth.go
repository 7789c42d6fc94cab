// Package auth carries the caller's bearer token from the gateway edge to the
// backend client and verifies it before the gateway acts on its subject.
// Tokens are issued by the Parkit backend with a shared HS256 key.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type tokenKey struct{}

var (
	ErrNoSubject    = errors.New("token has no subject")
	ErrInvalidToken = errors.New("invalid token")
)

// WithToken stores a raw bearer token in ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Token returns the bearer token stored by WithToken.
func Token(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}

// FromHeader strips the Bearer scheme from an Authorization header value.
func FromHeader(h string) string {
	const prefix = "bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// claims accepts the backend's "id" claim as a fallback for "sub".
type claims struct {
	ID string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks token signatures against the key shared with the backend.
type Verifier struct {
	key    []byte
	parser *jwt.Parser
}

// NewVerifier returns a Verifier for HS256 tokens signed with secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{
		key:    secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Subject verifies token and returns its user id.
func (v *Verifier) Subject(token string) (string, error) {
	var c claims
	parsed, err := v.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return "", ErrInvalidToken
	}
	if c.Subject != "" {
		return c.Subject, nil
	}
	if c.ID != "" {
		return c.ID, nil
	}
	return "", ErrNoSubject
}
