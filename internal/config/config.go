package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Environment string
	LogLevel    slog.Level

	// BaseURL is the locally served narrative client.
	BaseURL string
	// ChromeURL is a remote DevTools endpoint; empty launches a local browser.
	ChromeURL string
	Headless  bool

	NavTimeout    time.Duration
	AssertTimeout time.Duration
	LocateTimeout time.Duration
	PollInterval  time.Duration
	AbsenceWindow time.Duration

	ArtifactDir string

	// RedisURL enables the run ledger when set.
	RedisURL      string
	LedgerHistory int
}

func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		BaseURL:     strings.TrimSuffix(getEnv("BASE_URL", "http://localhost:3001"), "/"),
		ChromeURL:   getEnv("CHROME_URL", ""),
		ArtifactDir: getEnv("ARTIFACT_DIR", "verification"),
		RedisURL:    getEnv("REDIS_URL", ""),
	}

	var err error
	if cfg.Headless, err = getBool("HEADLESS", true); err != nil {
		return nil, err
	}
	if cfg.NavTimeout, err = getDuration("NAV_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.AssertTimeout, err = getDuration("ASSERT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.LocateTimeout, err = getDuration("LOCATE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.AbsenceWindow, err = getDuration("ABSENCE_WINDOW", 750*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.LedgerHistory, err = getInt("LEDGER_HISTORY", 20); err != nil {
		return nil, err
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %v", cfg.PollInterval)
	}
	if cfg.LedgerHistory < 1 {
		return nil, fmt.Errorf("LEDGER_HISTORY must be >= 1, got %d", cfg.LedgerHistory)
	}
	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, str, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(str)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, str, err)
	}
	return b, nil
}

func getInt(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, str, err)
	}
	return n, nil
}
