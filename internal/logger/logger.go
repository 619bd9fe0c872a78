package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/perec-verify/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	logger := New(cfg, os.Stdout)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w: JSON in production, text otherwise.
// It does not touch the global logger.
func New(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// WithRun tags every record with the run and scenario it belongs to
func WithRun(logger *slog.Logger, runID, scenario string) *slog.Logger {
	return logger.With("run_id", runID, "scenario", scenario)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
