// Package router assembles the example server's middleware chain and
// demo routes.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/alfreddev/ratelimit"
	"github.com/alfreddev/ratelimit/authenticator"
	"github.com/alfreddev/ratelimit/config"
	"github.com/alfreddev/ratelimit/httpmw"
)

// NewRouter returns a configured chi Router: CORS, security headers,
// request ID, panic recovery and request logging ahead of everything,
// then health endpoints and three demo routes, each behind its own
// ratelimit.Middleware instance: a tight per-second budget on
// /second_limit, a budget that trips a penalty block on /block, and a
// per-minute budget shared across /message and /message/{id}.
func NewRouter(cfg *config.Config, appLogger zerolog.Logger, backend ratelimit.Backend) http.Handler {
	r := chi.NewRouter()

	r.Use(httpmw.CORS([]string{"*"}))
	r.Use(httpmw.SecurityHeaders)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(appLogger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	retryAfterStyle := ratelimit.RetryAfterDisabled
	if cfg.RetryAfterEnabled {
		retryAfterStyle = ratelimit.RetryAfterSeconds
		if cfg.RetryAfterStyle == "http-date" {
			retryAfterStyle = ratelimit.RetryAfterHTTPDate
		}
	}

	secondLimiter := ratelimit.New(ratelimit.Config{
		Backend:      backend,
		Authenticate: authenticator.IP,
		RetryAfter:   retryAfterStyle,
		Logger:       appLogger,
		Rules: []ratelimit.PatternRule{
			{
				Match: exact("/second_limit"),
				Rule:  ratelimit.FixedRule{Group: "default", Second: cfg.LimitPerSecond},
			},
		},
	})

	blockLimiter := ratelimit.New(ratelimit.Config{
		Backend:      backend,
		Authenticate: authenticator.IP,
		RetryAfter:   retryAfterStyle,
		Logger:       appLogger,
		Rules: []ratelimit.PatternRule{
			{
				Match: exact("/block"),
				Rule: ratelimit.FixedRule{
					Group:     "default",
					Second:    1,
					BlockTime: time.Duration(cfg.BlockSeconds) * time.Second,
				},
			},
		},
	})

	messageLimiter := ratelimit.New(ratelimit.Config{
		Backend:      backend,
		Authenticate: authenticator.IP,
		RetryAfter:   retryAfterStyle,
		Logger:       appLogger,
		Rules: []ratelimit.PatternRule{
			{
				Match: prefix("/message"),
				Rule:  ratelimit.FixedRule{Group: "default", Zone: "message", Minute: cfg.LimitPerMinute},
			},
		},
	})

	r.With(secondLimiter.Handler).Get("/second_limit", echo)
	r.With(blockLimiter.Handler).Get("/block", echo)
	r.Route("/message", func(r chi.Router) {
		r.Use(messageLimiter.Handler)
		r.Get("/", echo)
		r.Get("/{id}", echo)
	})

	return r
}

func echo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func exact(path string) func(string) bool {
	return func(p string) bool { return p == path }
}

func prefix(p string) func(string) bool {
	return func(path string) bool {
		return len(path) >= len(p) && path[:len(p)] == p
	}
}

func requestLogger(appLogger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			appLogger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", chimw.GetReqID(r.Context())).
				Int("status", rw.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}
