package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/metaphizix/BetwayCombinations/internal/betway"
)

type Config struct {
	Betway    betway.Config   `yaml:"betway"`
	Selection SelectionConfig `yaml:"selection"`
	Retry     RetryConfig     `yaml:"retry"`
	Engine    EngineConfig    `yaml:"engine"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SelectionConfig bounds which scanned fixtures qualify for a run.
type SelectionConfig struct {
	LeadTime time.Duration `yaml:"lead_time"` // earliest usable kickoff from now
	MinGap   time.Duration `yaml:"min_gap"`   // minimum spacing between kickoffs
	MaxPages int           `yaml:"max_pages"` // listing pages to scan
}

type RetryConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	Multiplier  float64       `yaml:"multiplier"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type EngineConfig struct {
	ResetInterval   int           `yaml:"reset_interval"`
	PacingBase      time.Duration `yaml:"pacing_base"`
	PacingJitterMin time.Duration `yaml:"pacing_jitter_min"`
	PacingJitterMax time.Duration `yaml:"pacing_jitter_max"`
}

type LedgerConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig enables the audit mirror when DSN is set.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// TelegramConfig enables operator notifications when the token is set.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`        // rotating log file, stdout only when empty
	MaxSizeMB  int    `yaml:"max_size_mb"` // rotation threshold
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Ledger.Path == "" {
		config.Ledger.Path = "bet_progress.jsonl"
	}
	return &config, nil
}
