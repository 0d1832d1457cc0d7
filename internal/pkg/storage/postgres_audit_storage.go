// Package storage mirrors run and slip records into PostgreSQL for audit
// queries. The JSONL ledger stays authoritative; this mirror is best
// effort and a write failure never interrupts a run.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/metaphizix/BetwayCombinations/internal/pkg/config"
	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
)

// PostgresAuditStorage keeps one row per run and one row per slip attempt.
type PostgresAuditStorage struct {
	db *sql.DB
}

// NewPostgresAuditStorage connects and ensures the schema exists.
func NewPostgresAuditStorage(cfg *config.PostgresConfig) (*PostgresAuditStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresAuditStorage{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("PostgreSQL audit storage initialized successfully")
	return s, nil
}

func (s *PostgresAuditStorage) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS placement_runs (
		run_id VARCHAR(64) PRIMARY KEY,
		match_count INT NOT NULL,
		stake DECIMAL(12, 2) NOT NULL,
		fingerprint TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS placement_slips (
		run_id VARCHAR(64) NOT NULL,
		slip_index INT NOT NULL,
		combination VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL,
		recorded_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, slip_index)
	);

	CREATE INDEX IF NOT EXISTS idx_placement_slips_status ON placement_slips(run_id, status);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// RecordRun registers a run. Re-registering the same run after a resume
// just refreshes the stored setup.
func (s *PostgresAuditStorage) RecordRun(ctx context.Context, runID string, matchCount int, stake float64, fingerprint string, startedAt time.Time) error {
	query := `
	INSERT INTO placement_runs (run_id, match_count, stake, fingerprint, started_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (run_id) DO UPDATE SET
		match_count = EXCLUDED.match_count,
		stake = EXCLUDED.stake,
		fingerprint = EXCLUDED.fingerprint,
		started_at = EXCLUDED.started_at
	`
	_, err := s.db.ExecContext(ctx, query, runID, matchCount, stake, fingerprint, startedAt)
	return err
}

// RecordSlip mirrors one ledger record. Uses UPSERT: a failed attempt
// replayed at the same index overwrites its earlier row.
func (s *PostgresAuditStorage) RecordSlip(ctx context.Context, runID string, rec models.ProgressRecord) error {
	query := `
	INSERT INTO placement_slips (run_id, slip_index, combination, status, recorded_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (run_id, slip_index) DO UPDATE SET
		combination = EXCLUDED.combination,
		status = EXCLUDED.status,
		recorded_at = EXCLUDED.recorded_at
	`
	_, err := s.db.ExecContext(ctx, query, runID, rec.Index, rec.Combination, string(rec.Status), rec.Timestamp)
	return err
}

func (s *PostgresAuditStorage) Close() error {
	return s.db.Close()
}
