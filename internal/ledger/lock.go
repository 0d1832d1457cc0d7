package ledger

import (
	"fmt"
	"log/slog"
	"os"
)

// Lock is a single-instance guard for a ledger file. Two engines appending
// to the same ledger would corrupt the index sequence, so the caller takes
// the lock before Open and holds it for the whole run.
type Lock struct {
	path string
}

// AcquireLock creates path exclusively. It fails if another process holds
// the lock; a stale file left by a crashed run must be removed by hand,
// which keeps the failure visible to the operator.
func AcquireLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("ledger lock %s already held (remove it if no other run is active)", path)
		}
		return nil, fmt.Errorf("failed to acquire ledger lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return &Lock{path: path}, nil
}

// Release removes the lock file.
func (l *Lock) Release() {
	if err := os.Remove(l.path); err != nil {
		slog.Warn("Failed to release ledger lock", "path", l.path, "error", err)
	}
}
