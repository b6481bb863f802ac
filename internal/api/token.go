package api

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource supplies the bearer token for outbound requests. The auth
// layer owning login/refresh lives outside this module; this is its
// interface boundary.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource holding a fixed token. Used in tests and by
// the CLI.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// TokenExpired inspects a JWT's exp claim without verifying the signature.
// Signature verification is the server's job; the client only uses this to
// short-circuit calls that are guaranteed to come back 401-expired.
// Tokens that do not parse or carry no exp claim are not considered expired.
func TokenExpired(token string, now time.Time) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
