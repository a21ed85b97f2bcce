// Package config loads server settings from RN_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr        string        `env:"RN_HTTP_ADDR" envDefault:"127.0.0.1:8080"`
	RelayURL        string        `env:"RN_RELAY_URL" envDefault:"wss://relay.damus.io"`
	KeyFile         string        `env:"RN_KEY_FILE" envDefault:".nsec"`
	PersistKey      bool          `env:"RN_PERSIST_KEY" envDefault:"true"`     // write a generated key back to KeyFile
	DBPath          string        `env:"RN_DB_PATH" envDefault:"events.db"`    // SQLite file, used when DatabaseURL is empty
	DatabaseURL     string        `env:"RN_DATABASE_URL"`                      // PostgreSQL DSN (optional)
	NATSURL         string        `env:"RN_NATS_URL"`                          // optional, empty = no bus events
	AuthToken       string        `env:"RN_AUTH_TOKEN"`                        // optional, empty = auth disabled
	WaitForAck      bool          `env:"RN_WAIT_FOR_ACK" envDefault:"false"`   // wait for relay OK on publish
	PublishTimeout  time.Duration `env:"RN_PUBLISH_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"RN_SHUTDOWN_TIMEOUT" envDefault:"10s"` // HTTP drain on shutdown
	LogLevel        string        `env:"RN_LOG_LEVEL" envDefault:"info"`

	Sync SyncConfig `envPrefix:"RN_SYNC_"`
}

// SyncConfig controls the periodic JSONL export of stored events.
type SyncConfig struct {
	Interval   time.Duration `env:"INTERVAL" envDefault:"3m"` // 0 = disabled
	S3Bucket   string        `env:"S3_BUCKET"`                // enables S3 when set
	S3Endpoint string        `env:"S3_ENDPOINT"`              // custom endpoint for MinIO
	S3Region   string        `env:"S3_REGION" envDefault:"us-east-1"`
	S3Key      string        `env:"S3_KEY" envDefault:"relaynotes/events.jsonl"`
	GitRepo    string        `env:"GIT_REPO"` // enables git when set; path to clone
	GitFile    string        `env:"GIT_FILE" envDefault:"events.jsonl"`
	GitBranch  string        `env:"GIT_BRANCH" envDefault:"main"`
}

// Enabled reports whether any export destination is configured.
func (s SyncConfig) Enabled() bool {
	return s.Interval > 0 && (s.S3Bucket != "" || s.GitRepo != "")
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if !strings.HasPrefix(c.RelayURL, "ws://") && !strings.HasPrefix(c.RelayURL, "wss://") {
		return nil, fmt.Errorf("RN_RELAY_URL: must be a ws:// or wss:// URL, got %q", c.RelayURL)
	}
	if strings.TrimSpace(c.KeyFile) == "" {
		return nil, fmt.Errorf("RN_KEY_FILE: must not be empty")
	}
	if c.DatabaseURL == "" && strings.TrimSpace(c.DBPath) == "" {
		return nil, fmt.Errorf("one of RN_DB_PATH or RN_DATABASE_URL is required")
	}
	if c.PublishTimeout <= 0 {
		return nil, fmt.Errorf("RN_PUBLISH_TIMEOUT: must be positive")
	}
	if _, err := c.Level(); err != nil {
		return nil, err
	}
	if c.Sync.Interval < 0 {
		return nil, fmt.Errorf("RN_SYNC_INTERVAL: must not be negative")
	}

	return c, nil
}

// Level returns the configured slog level.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("RN_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// StoreBackend names the event store Load selected: "postgres" when a
// database URL is set, "sqlite" otherwise.
func (c *Config) StoreBackend() string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "sqlite"
}
