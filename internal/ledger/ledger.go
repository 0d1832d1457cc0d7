// Package ledger persists per-slip placement progress as an append-only
// JSONL file. The ledger is the single source of truth for resume: run
// state is always rederived from it plus the regenerated combination
// sequence, never stored separately.
package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
)

// ErrSelectionMismatch is returned when an existing ledger was written for
// a different fixture selection. The operator must move the old ledger
// aside before starting a new run; it is never truncated automatically.
var ErrSelectionMismatch = errors.New("ledger belongs to a different fixture selection")

// ErrStakeMismatch is returned when an existing ledger records a different
// per-slip stake. Resuming under a changed stake would mix stakes within
// one run, so the operator must finish or move aside the old ledger first.
var ErrStakeMismatch = errors.New("ledger records a different stake")

// Header is the first line of the ledger file and ties it to one run setup.
type Header struct {
	RunID       string    `json:"run_id"`
	MatchCount  int       `json:"match_count"`
	Stake       float64   `json:"stake"`
	Fingerprint []string  `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h Header) sameSelection(other Header) bool {
	if h.MatchCount != other.MatchCount || len(h.Fingerprint) != len(other.Fingerprint) {
		return false
	}
	for i := range h.Fingerprint {
		if h.Fingerprint[i] != other.Fingerprint[i] {
			return false
		}
	}
	return true
}

// Ledger is a loaded, writable progress log. One writer per file; callers
// must hold the corresponding Lock for the duration of a run.
type Ledger struct {
	path    string
	f       *os.File
	header  Header
	records []models.ProgressRecord
}

// Open loads the ledger at path, creating it with hdr when absent. An
// existing ledger must carry the same selection fingerprint as hdr. A
// single trailing incomplete or corrupt line (a record that was being
// written when the process died) is discarded with a warning; corruption
// anywhere earlier fails the load.
func Open(path string, hdr Header) (*Ledger, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return create(path, hdr)
	case err != nil:
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	existing, records, err := parse(data)
	if err != nil {
		return nil, err
	}
	if !existing.sameSelection(hdr) {
		return nil, fmt.Errorf("%w: recorded %v, current %v", ErrSelectionMismatch, existing.Fingerprint, hdr.Fingerprint)
	}
	if existing.Stake != hdr.Stake {
		return nil, fmt.Errorf("%w: recorded %.2f, current %.2f", ErrStakeMismatch, existing.Stake, hdr.Stake)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger for append: %w", err)
	}

	l := &Ledger{path: path, f: f, header: existing, records: records}
	slog.Info("Ledger loaded", "path", path, "records", len(records), "resume_index", l.ResumeIndex())
	return l, nil
}

func create(path string, hdr Header) (*Ledger, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}
	if err := writeLine(f, hdr); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write ledger header: %w", err)
	}
	slog.Info("Ledger created", "path", path, "run_id", hdr.RunID)
	return &Ledger{path: path, f: f, header: hdr}, nil
}

func parse(data []byte) (Header, []models.ProgressRecord, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return Header{}, nil, fmt.Errorf("failed to scan ledger: %w", err)
	}
	if len(lines) == 0 {
		return Header{}, nil, fmt.Errorf("ledger file is empty")
	}

	var hdr Header
	if err := json.Unmarshal([]byte(lines[0]), &hdr); err != nil || hdr.RunID == "" {
		return Header{}, nil, fmt.Errorf("ledger header is corrupt: %q", lines[0])
	}

	var records []models.ProgressRecord
	for i, line := range lines[1:] {
		var rec models.ProgressRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Status == "" {
			// Only the final line may be a partially flushed record.
			if i == len(lines)-2 {
				slog.Warn("Discarding incomplete trailing ledger record", "line", truncate(line, 120))
				break
			}
			return Header{}, nil, fmt.Errorf("ledger record %d is corrupt: %q", i, truncate(line, 120))
		}
		if err := validateNext(records, rec); err != nil {
			return Header{}, nil, err
		}
		records = append(records, rec)
	}
	return hdr, records, nil
}

// expectedNext is the only index a new record may carry. A success is
// final and moves the sequence forward; a failed or pending slip is
// replayed at the same index on the next run.
func expectedNext(records []models.ProgressRecord) int {
	if len(records) == 0 {
		return 0
	}
	last := records[len(records)-1]
	if last.Status == models.StatusSuccess {
		return last.Index + 1
	}
	return last.Index
}

func validateNext(records []models.ProgressRecord, rec models.ProgressRecord) error {
	if want := expectedNext(records); rec.Index != want {
		return fmt.Errorf("ledger index %d out of order (expected %d)", rec.Index, want)
	}
	return nil
}

// Header returns the run metadata the ledger was created with.
func (l *Ledger) Header() Header { return l.header }

// Records returns a copy of the loaded records.
func (l *Ledger) Records() []models.ProgressRecord {
	out := make([]models.ProgressRecord, len(l.records))
	copy(out, l.records)
	return out
}

// NextIndex is the only index Append will accept.
func (l *Ledger) NextIndex() int {
	return expectedNext(l.records)
}

// ResumeIndex is where placement continues: one past the highest index
// marked success, or 0 for an empty ledger.
func (l *Ledger) ResumeIndex() int {
	resume := 0
	for _, rec := range l.records {
		if rec.Status == models.StatusSuccess {
			resume = rec.Index + 1
		}
	}
	return resume
}

// Append durably writes one record. The record index must equal NextIndex:
// no gaps, no out-of-order writes, and a success is never overwritten.
func (l *Ledger) Append(rec models.ProgressRecord) error {
	if rec.Index != l.NextIndex() {
		return fmt.Errorf("append index %d out of order (expected %d)", rec.Index, l.NextIndex())
	}
	if err := writeLine(l.f, rec); err != nil {
		return fmt.Errorf("failed to append ledger record %d: %w", rec.Index, err)
	}
	l.records = append(l.records, rec)
	return nil
}

// Close closes the underlying file.
func (l *Ledger) Close() error {
	return l.f.Close()
}

// writeLine marshals v, writes it with a trailing newline and syncs so the
// record survives an immediate process death.
func writeLine(f *os.File, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
