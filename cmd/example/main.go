// Command example runs a small HTTP server demonstrating the rate
// limit middleware: /second_limit (a tight per-second budget),
// /block (exhausting it trips a penalty block), and /message/{id} (a
// per-minute budget shared across the whole zone).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfreddev/ratelimit"
	"github.com/alfreddev/ratelimit/backend/fixedwindow"
	"github.com/alfreddev/ratelimit/backend/memory"
	"github.com/alfreddev/ratelimit/config"
	"github.com/alfreddev/ratelimit/logger"
	"github.com/alfreddev/ratelimit/redisclient"
	"github.com/alfreddev/ratelimit/router"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("ratelimit example server starting")

	backend := newBackend(cfg, log)

	r := router.NewRouter(cfg, log, backend)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("stopped gracefully")
	}
}

// newBackend wires a Redis-backed fixed-window backend when
// REDIS_URL is reachable at startup, falling back to the in-process
// memory backend otherwise — the demo should still run for a reader
// with no Redis handy.
func newBackend(cfg *config.Config, log zerolog.Logger) ratelimit.Backend {
	rc, err := redisclient.New(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis init failed — continuing without Redis")
		return memory.New()
	}
	if err := rc.Ping(); err != nil {
		log.Warn().Err(err).Msg("redis ping failed — continuing without Redis")
		return memory.New()
	}
	log.Info().Msg("redis connected")
	return fixedwindow.New(rc.UniversalClient())
}
