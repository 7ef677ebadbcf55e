package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Authenticator resolves the identity and group of an inbound request.
// It returns ErrEmptyInformation (wrapped in *AuthError by implementations
// in the authenticator package) when no identifying information is
// present, and any other error for a malformed or invalid credential.
type Authenticator func(r *http.Request) (user, group string, err error)

// RetryAfterStyle selects how the Retry-After response header is
// rendered once a request is denied.
type RetryAfterStyle int

const (
	// RetryAfterDisabled omits the Retry-After header entirely.
	RetryAfterDisabled RetryAfterStyle = iota
	// RetryAfterSeconds renders Retry-After as a plain integer count of
	// seconds, e.g. "Retry-After: 12".
	RetryAfterSeconds
	// RetryAfterHTTPDate renders Retry-After as an HTTP-date, e.g.
	// "Retry-After: Fri, 31 Jul 2026 10:00:00 UTC".
	RetryAfterHTTPDate
)

// PatternRule pairs a path matcher with the Rule applied when it
// matches. Patterns are tried in slice order; the first one whose path
// matches AND whose group is compatible with the caller's authenticated
// group wins. Several PatternRules may share the same path with
// different groups — a pattern that matches the path but not the group
// is skipped rather than ending the search, so a later pattern still
// gets a chance. The ordering guarantee is deliberate; a Go map would
// make this nondeterministic.
type PatternRule struct {
	// Match reports whether this rule applies to the given request path.
	Match func(path string) bool
	Rule  Rule
}

// Config configures a Middleware. Backend and Authenticate are required;
// everything else has a safe zero value.
type Config struct {
	Backend      Backend
	Authenticate Authenticator

	// Rules is consulted in order; the first PatternRule whose Match
	// returns true AND whose group applies to the caller is applied to
	// the request. A request matching no rule at all passes through
	// unthrottled.
	Rules []PatternRule

	RetryAfter RetryAfterStyle

	// OnAuthError, if set, is invoked when Authenticate fails instead of
	// panicking. It must write a response. Receiving ErrEmptyInformation
	// via errors.Is is the common case (no credential present);
	// anything else is a genuine authentication failure.
	OnAuthError func(w http.ResponseWriter, r *http.Request, err error)

	// OnError, if set, is invoked when the Backend returns an error
	// instead of panicking. It must write a response.
	OnError func(w http.ResponseWriter, r *http.Request, err error)

	// OnBlocked, if set, replaces the default 429 response. It receives
	// the number of seconds until the caller may retry.
	OnBlocked func(w http.ResponseWriter, r *http.Request, retryAfter int)

	Logger zerolog.Logger
}

// Middleware is a constructed rate limiter ready to wrap http.Handlers.
// Build one with New.
type Middleware struct {
	backend      Backend
	authenticate Authenticator
	rules        []PatternRule
	retryAfter   RetryAfterStyle
	onAuthError  func(w http.ResponseWriter, r *http.Request, err error)
	onError      func(w http.ResponseWriter, r *http.Request, err error)
	onBlocked    func(w http.ResponseWriter, r *http.Request, retryAfter int)
	log          zerolog.Logger
}

// New validates cfg and builds a Middleware. It panics on a
// configuration error (missing Backend or Authenticate) because these
// are construction-time programmer errors, not runtime conditions — the
// gateway's own middleware constructors (NewRateLimiter, AuthMiddleware)
// follow the same convention of failing fast at startup rather than on
// the first request.
func New(cfg Config) *Middleware {
	if cfg.Backend == nil {
		panic("ratelimit: Config.Backend is required")
	}
	if cfg.Authenticate == nil {
		panic("ratelimit: Config.Authenticate is required")
	}
	return &Middleware{
		backend:      cfg.Backend,
		authenticate: cfg.Authenticate,
		rules:        cfg.Rules,
		retryAfter:   cfg.RetryAfter,
		onAuthError:  cfg.OnAuthError,
		onError:      cfg.OnError,
		onBlocked:    cfg.OnBlocked,
		log:          cfg.Logger,
	}
}

// Handler wraps next with the rate limit check.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.anyMatch(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		user, group, err := m.authenticate(r)
		if err != nil {
			m.handleAuthError(w, r, err)
			return
		}
		r = r.WithContext(WithUser(r.Context(), user))

		rule, ok := m.matchRule(r.URL.Path, group)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		pathOrZone := r.URL.Path
		if zone := rule.ZoneOverride(); zone != "" {
			pathOrZone = zone
		}

		retryAfter, err := m.backend.RetryAfter(r.Context(), pathOrZone, user, rule)
		if err != nil {
			m.handleBackendError(w, r, err)
			return
		}
		if retryAfter > 0 {
			m.deny(w, r, retryAfter)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// anyMatch reports whether any configured pattern applies to path at
// all, regardless of group — used to skip authentication entirely for
// requests no rule could ever throttle.
func (m *Middleware) anyMatch(path string) bool {
	for _, pr := range m.rules {
		if pr.Match(path) {
			return true
		}
	}
	return false
}

// matchRule finds the first pattern matching both path and group. A
// rule with an empty GroupName applies to every group; an empty
// authenticated group matches any rule. Patterns that match the path
// but not the group are skipped rather than stopping the search, so one
// path can carry different rules per group.
func (m *Middleware) matchRule(path, group string) (Rule, bool) {
	for _, pr := range m.rules {
		if !pr.Match(path) {
			continue
		}
		if group == "" || pr.Rule.GroupName() == "" || pr.Rule.GroupName() == group {
			return pr.Rule, true
		}
	}
	return nil, false
}

func (m *Middleware) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if m.onAuthError != nil {
		m.onAuthError(w, r, err)
		return
	}
	m.log.Warn().Err(err).Str("path", r.URL.Path).Msg("ratelimit: authentication failed")
	panic(err)
}

func (m *Middleware) handleBackendError(w http.ResponseWriter, r *http.Request, err error) {
	if m.onError != nil {
		m.onError(w, r, err)
		return
	}
	m.log.Error().Err(err).Str("path", r.URL.Path).Msg("ratelimit: backend error")
	panic(err)
}

func (m *Middleware) deny(w http.ResponseWriter, r *http.Request, retryAfter int) {
	m.log.Warn().
		Str("path", r.URL.Path).
		Int("retry_after", retryAfter).
		Msg("ratelimit: request denied")

	if m.onBlocked != nil {
		m.onBlocked(w, r, retryAfter)
		return
	}

	if header, value := m.retryAfterHeader(retryAfter); header != "" {
		w.Header().Set(header, value)
	}
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w, `{"error":"too many requests","retry_after":%d}`, retryAfter)
}

func (m *Middleware) retryAfterHeader(retryAfter int) (header, value string) {
	switch m.retryAfter {
	case RetryAfterSeconds:
		return "Retry-After", strconv.Itoa(retryAfter)
	case RetryAfterHTTPDate:
		at := time.Now().Add(time.Duration(retryAfter) * time.Second).UTC()
		return "Retry-After", at.Format("Mon, 02 Jan 2006 15:04:05 UTC")
	default:
		return "", ""
	}
}

// contextKey is an unexported type so values set by this package never
// collide with keys set by other packages sharing the same
// context.Context.
type contextKey int

const userContextKey contextKey = iota

// WithUser returns a context carrying user as the resolved rate-limit
// identity, for handlers downstream of the middleware that want to read
// it back without re-running the Authenticator.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the identity stored by WithUser, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(userContextKey).(string)
	return user, ok
}
