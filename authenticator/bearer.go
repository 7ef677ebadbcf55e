package authenticator

import (
	"net/http"
	"strings"

	"github.com/alfreddev/ratelimit"
	"github.com/golang-jwt/jwt/v5"
)

// BearerClaims is the subset of JWT claims the Bearer authenticator
// requires: a "user" identity claim and a "group" rule-group claim.
type BearerClaims struct {
	User  string `json:"user"`
	Group string `json:"group"`
	jwt.RegisteredClaims
}

// Bearer builds a ratelimit.Authenticator that extracts a "Bearer
// <jwt>" token from the Authorization header and validates it with
// keyFunc against the given signing methods, the Go counterpart of the
// original project's create_jwt_auth.
//
// A missing or malformed Authorization header yields
// ratelimit.ErrEmptyInformation. A present-but-invalid token (bad
// signature, expired, wrong claims) yields the underlying jwt error
// unwrapped, since that is a genuine authentication failure rather than
// an absence of information.
func Bearer(keyFunc jwt.Keyfunc, methods ...string) ratelimit.Authenticator {
	parser := jwt.NewParser(jwt.WithValidMethods(methods))

	return func(r *http.Request) (user, group string, err error) {
		header := r.Header.Get("Authorization")
		if header == "" {
			return "", "", ratelimit.NewAuthError("authenticator.Bearer", ratelimit.ErrEmptyInformation)
		}

		tokenType, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(tokenType, "Bearer") || raw == "" {
			return "", "", ratelimit.NewAuthError("authenticator.Bearer", ratelimit.ErrEmptyInformation)
		}

		claims := &BearerClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
			return "", "", err
		}
		if claims.User == "" {
			return "", "", ratelimit.NewAuthError("authenticator.Bearer", ratelimit.ErrEmptyInformation)
		}

		return claims.User, claims.Group, nil
	}
}
