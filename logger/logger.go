// Package logger builds the zerolog.Logger used across the example
// server and its middleware chain.
package logger

import (
	"os"

	"github.com/alfreddev/ratelimit/config"
	"github.com/rs/zerolog"
)

// New returns a configured zerolog.Logger: pretty console output, level
// driven by cfg.LogLevel (falling back to Debug in development and Info
// otherwise).
func New(cfg *config.Config) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
		if cfg.IsDevelopment() {
			lvl = zerolog.DebugLevel
		}
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(out).With().Timestamp().Logger()
}
