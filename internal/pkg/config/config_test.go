package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	content := `
betway:
  base_url: "https://new.betway.co.za"
  headless: true
  page_timeout: 30s
selection:
  lead_time: 3h30m
  min_gap: 2h30m
  max_pages: 20
retry:
  base_delay: 5s
  multiplier: 2
  max_attempts: 3
engine:
  reset_interval: 5
  pacing_base: 5s
  pacing_jitter_min: 10s
  pacing_jitter_max: 60s
ledger:
  path: "run/progress.jsonl"
postgres:
  dsn: "postgres://localhost/bets?sslmode=disable"
telegram:
  bot_token: "token"
  chat_id: 42
logging:
  level: "info"
  file: "run/combinations.log"
  max_size_mb: 50
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Betway.BaseURL != "https://new.betway.co.za" || !cfg.Betway.Headless {
		t.Errorf("betway section mismatch: %+v", cfg.Betway)
	}
	if cfg.Selection.LeadTime != 3*time.Hour+30*time.Minute {
		t.Errorf("lead_time = %v", cfg.Selection.LeadTime)
	}
	if cfg.Selection.MinGap != 2*time.Hour+30*time.Minute {
		t.Errorf("min_gap = %v", cfg.Selection.MinGap)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.Multiplier != 2 {
		t.Errorf("retry section mismatch: %+v", cfg.Retry)
	}
	if cfg.Engine.PacingJitterMax != 60*time.Second {
		t.Errorf("pacing_jitter_max = %v", cfg.Engine.PacingJitterMax)
	}
	if cfg.Ledger.Path != "run/progress.jsonl" {
		t.Errorf("ledger path = %q", cfg.Ledger.Path)
	}
	if cfg.Telegram.ChatID != 42 {
		t.Errorf("chat_id = %d", cfg.Telegram.ChatID)
	}
}

func TestLoad_DefaultLedgerPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("betway:\n  headless: true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Ledger.Path != "bet_progress.jsonl" {
		t.Errorf("default ledger path = %q", cfg.Ledger.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
