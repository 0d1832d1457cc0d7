// Package retry applies bounded exponential backoff to transient failures
// of external interactions. Anything it cannot classify as transient, and
// any transient failure that survives the attempt budget, is fatal to the
// run.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
)

// ErrRetriesExhausted wraps the last transient error once the attempt
// budget is spent, escalating it to a fatal failure.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Policy configures the backoff: attempt i (1-indexed) waits
// BaseDelay * Multiplier^(i-1) before the next attempt.
type Policy struct {
	BaseDelay   time.Duration
	Multiplier  float64
	MaxAttempts int
}

// DefaultPolicy mirrors the production settings: 5s base, doubling, three
// attempts.
func DefaultPolicy() Policy {
	return Policy{BaseDelay: 5 * time.Second, Multiplier: 2, MaxAttempts: 3}
}

// Delay returns the wait after the i-th failed attempt (1-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// SleepFunc waits for d or until ctx is cancelled. Injectable so tests run
// with zero delay.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Executor runs operations under a retry policy.
type Executor struct {
	policy Policy
	sleep  SleepFunc
}

// New creates an executor. Zero policy fields fall back to defaults.
func New(policy Policy) *Executor {
	def := DefaultPolicy()
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = def.BaseDelay
	}
	if policy.Multiplier <= 0 {
		policy.Multiplier = def.Multiplier
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	return &Executor{policy: policy, sleep: defaultSleep}
}

// WithSleep replaces the wait function, for deterministic tests.
func (e *Executor) WithSleep(sleep SleepFunc) *Executor {
	e.sleep = sleep
	return e
}

// Do runs op, retrying transient failures up to the attempt budget. The
// returned error is nil, the original fatal error, or the last transient
// error wrapped in ErrRetriesExhausted.
func (e *Executor) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err
		if attempt == e.policy.MaxAttempts {
			break
		}
		delay := e.policy.Delay(attempt)
		slog.Warn("Transient failure, backing off",
			"operation", name, "attempt", attempt, "max_attempts", e.policy.MaxAttempts,
			"delay", delay, "error", err)
		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s failed %d times: %w", ErrRetriesExhausted, name, e.policy.MaxAttempts, lastErr)
}

// transientMarkers are the connectivity error classes seen from the
// browser and the network stack.
var transientMarkers = []string{
	"err_name_not_resolved",
	"err_connection",
	"err_internet_disconnected",
	"net::",
	"timeout",
	"connection",
	"network",
	"temporarily unavailable",
}

// IsTransient reports whether err looks like a connectivity or timeout
// failure worth retrying. Everything else is fatal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
