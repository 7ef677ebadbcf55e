package ratelimit

import "errors"

// ErrEmptyInformation indicates an Authenticator could not extract any
// identifying information from the request (no IP, no token, no header) —
// distinct from a malformed or invalid credential, which is a regular
// error.
var ErrEmptyInformation = errors.New("ratelimit: no identifying information in request")

// AuthError wraps a failure from an Authenticator, preserving whether it
// was the empty-information case so callers (and the middleware's
// OnAuthError hook) can branch on it with errors.Is without string
// matching.
type AuthError struct {
	Authenticator string
	Err           error
}

func (e *AuthError) Error() string {
	return "ratelimit: " + e.Authenticator + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool {
	return target == ErrEmptyInformation && errors.Is(e.Err, ErrEmptyInformation)
}

// NewAuthError wraps err as having originated from the named
// authenticator. If err is nil, NewAuthError returns nil.
func NewAuthError(authenticator string, err error) error {
	if err == nil {
		return nil
	}
	return &AuthError{Authenticator: authenticator, Err: err}
}
