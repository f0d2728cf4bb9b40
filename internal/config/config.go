package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string     `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level `env:"-"`

	// RedisURL is the draft cache address. Empty keeps drafts on disk.
	RedisURL string `env:"REDIS_URL"`
	DataDir  string `env:"DATA_DIR" envDefault:"./data"`
	// ExportDir holds downloaded survey files; defaults to DataDir/exports.
	ExportDir string `env:"EXPORT_DIR"`

	DraftTTL        time.Duration `env:"DRAFT_TTL" envDefault:"720h"`
	AutosaveDelay   time.Duration `env:"AUTOSAVE_DELAY" envDefault:"500ms"`
	DefaultScenario string        `env:"DEFAULT_SCENARIO" envDefault:"settingsExist"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	if cfg.ExportDir == "" {
		cfg.ExportDir = strings.TrimRight(cfg.DataDir, "/") + "/exports"
	}
	if cfg.AutosaveDelay <= 0 {
		return nil, fmt.Errorf("AUTOSAVE_DELAY must be positive, got %s", cfg.AutosaveDelay)
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
