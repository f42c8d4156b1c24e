package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/devlake-bot/internal/config"
)

// NewLogger creates a structured zerolog.Logger with service context fields
// from the config. Log records must never contain request or response bodies;
// failure logging goes through the allow-listed fields (step, status code,
// sanitized message) only.
func NewLogger(cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(os.Stdout).With().Timestamp().Str("service", "devlake-bot")

	if cfg.InstanceID != "" {
		ctx = ctx.Str("instance", cfg.InstanceID)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
