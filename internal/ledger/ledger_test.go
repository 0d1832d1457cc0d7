package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
)

func testHeader() Header {
	return Header{
		RunID:       "run-test",
		MatchCount:  2,
		Stake:       1.0,
		Fingerprint: []string{"Arsenal|Chelsea|2026-08-29T18:00:00Z", "Liverpool|Everton|2026-08-29T21:00:00Z"},
		CreatedAt:   time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
	}
}

func record(index int, comb string, status models.Status) models.ProgressRecord {
	return models.ProgressRecord{
		Index:       index,
		Combination: comb,
		Status:      status,
		Timestamp:   time.Date(2026, 8, 29, 10, 0, index, 0, time.UTC),
	}
}

func openTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "progress.jsonl")
	l, err := Open(path, testHeader())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return l, path
}

func TestOpen_CreatesNewLedger(t *testing.T) {
	l, _ := openTestLedger(t)
	defer l.Close()

	if got := l.ResumeIndex(); got != 0 {
		t.Errorf("ResumeIndex of empty ledger = %d, want 0", got)
	}
	if got := l.NextIndex(); got != 0 {
		t.Errorf("NextIndex of empty ledger = %d, want 0", got)
	}
}

func TestAppend_ThenReopen_Resumes(t *testing.T) {
	l, path := openTestLedger(t)
	for i, comb := range []string{"11", "1X", "12"} {
		if err := l.Append(record(i, comb, models.StatusSuccess)); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}
	l.Close()

	reopened, err := Open(path, testHeader())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if got := reopened.ResumeIndex(); got != 3 {
		t.Errorf("ResumeIndex = %d, want 3", got)
	}
	if got := len(reopened.Records()); got != 3 {
		t.Errorf("records = %d, want 3", got)
	}
}

func TestAppend_RejectsGapsAndOutOfOrder(t *testing.T) {
	l, _ := openTestLedger(t)
	defer l.Close()

	if err := l.Append(record(1, "1X", models.StatusSuccess)); err == nil {
		t.Error("append with gap (index 1 on empty ledger) should fail")
	}
	if err := l.Append(record(0, "11", models.StatusSuccess)); err != nil {
		t.Fatalf("Append(0): %v", err)
	}
	if err := l.Append(record(0, "11", models.StatusFailed)); err == nil {
		t.Error("re-append of a successful index should fail")
	}
	if err := l.Append(record(2, "12", models.StatusSuccess)); err == nil {
		t.Error("append skipping index 1 should fail")
	}
}

func TestAppend_FailedSlipIsReplayedAtSameIndex(t *testing.T) {
	l, path := openTestLedger(t)
	l.Append(record(0, "11", models.StatusSuccess))
	l.Append(record(1, "1X", models.StatusFailed))
	l.Close()

	reopened, err := Open(path, testHeader())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if got := reopened.NextIndex(); got != 1 {
		t.Fatalf("NextIndex after trailing failure = %d, want 1", got)
	}
	if err := reopened.Append(record(1, "1X", models.StatusSuccess)); err != nil {
		t.Fatalf("replaying failed index: %v", err)
	}
	if got := reopened.ResumeIndex(); got != 2 {
		t.Errorf("ResumeIndex = %d, want 2", got)
	}
}

func TestOpen_DiscardsIncompleteTrailingRecord(t *testing.T) {
	l, path := openTestLedger(t)
	l.Append(record(0, "11", models.StatusSuccess))
	l.Append(record(1, "1X", models.StatusSuccess))
	l.Close()

	// Simulate a record that was being written when the process died.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"index":2,"combination":"12","sta`)
	f.Close()

	reopened, err := Open(path, testHeader())
	if err != nil {
		t.Fatalf("reopen with trailing garbage: %v", err)
	}
	defer reopened.Close()

	if got := len(reopened.Records()); got != 2 {
		t.Errorf("records = %d, want 2 (trailing record discarded)", got)
	}
	if got := reopened.ResumeIndex(); got != 2 {
		t.Errorf("ResumeIndex = %d, want 2", got)
	}
}

func TestOpen_RejectsCorruptionBeforeTail(t *testing.T) {
	l, path := openTestLedger(t)
	l.Append(record(0, "11", models.StatusSuccess))
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Corrupt record 0 and append a valid record after it.
	corrupted := append(data, []byte("not json at all\n")...)
	corrupted = append(corrupted, []byte(`{"index":1,"combination":"1X","status":"success","timestamp":"2026-08-29T10:00:01Z"}`+"\n")...)
	if err := os.WriteFile(path, corrupted, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path, testHeader()); err == nil {
		t.Error("corruption before the trailing record should fail the load")
	}
}

func TestOpen_RejectsSelectionMismatch(t *testing.T) {
	l, path := openTestLedger(t)
	l.Append(record(0, "11", models.StatusSuccess))
	l.Close()

	other := testHeader()
	other.Fingerprint = []string{"Spurs|West Ham|2026-08-30T15:00:00Z", "Liverpool|Everton|2026-08-29T21:00:00Z"}

	_, err := Open(path, other)
	if !errors.Is(err, ErrSelectionMismatch) {
		t.Errorf("expected ErrSelectionMismatch, got %v", err)
	}
}

func TestOpen_RejectsStakeMismatch(t *testing.T) {
	l, path := openTestLedger(t)
	l.Append(record(0, "11", models.StatusSuccess))
	l.Close()

	other := testHeader()
	other.Stake += 5

	_, err := Open(path, other)
	if !errors.Is(err, ErrStakeMismatch) {
		t.Errorf("expected ErrStakeMismatch, got %v", err)
	}
}

func TestResumeIndex_IgnoresTrailingFailure(t *testing.T) {
	l, _ := openTestLedger(t)
	defer l.Close()
	l.Append(record(0, "11", models.StatusSuccess))
	l.Append(record(1, "1X", models.StatusFailed))

	if got := l.ResumeIndex(); got != 1 {
		t.Errorf("ResumeIndex = %d, want 1 (failed slip must be replayed)", got)
	}
	if got := l.NextIndex(); got != 1 {
		t.Errorf("NextIndex = %d, want 1", got)
	}
}

func TestAcquireLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.lock")

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if _, err := AcquireLock(path); err == nil {
		t.Error("second AcquireLock should fail while lock is held")
	}
	lock.Release()
	second, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	second.Release()
}
