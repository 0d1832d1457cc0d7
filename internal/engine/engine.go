// Package engine drives slip placement: it resumes from the ledger,
// walks every remaining combination through the per-slip state machine,
// and commits each outcome to the ledger before advancing.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/metaphizix/BetwayCombinations/internal/combin"
	"github.com/metaphizix/BetwayCombinations/internal/ledger"
	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
	"github.com/metaphizix/BetwayCombinations/internal/retry"
)

// Session is the browser-side execution collaborator. All calls are
// synchronous: they return once the interaction completed or failed.
type Session interface {
	Navigate(ctx context.Context, reference string) error
	SelectOutcome(ctx context.Context, fixtureID string, outcome models.Outcome) error
	EnterStake(ctx context.Context, amount float64) error
	Submit(ctx context.Context) error
	AwaitConfirmation(ctx context.Context) (bool, error)
	ResetContext(ctx context.Context) error
}

// Observer is notified after a record has been durably committed. Used for
// the audit mirror and operator notifications; failures there never affect
// the run.
type Observer interface {
	SlipRecorded(ctx context.Context, rec models.ProgressRecord)
}

// ErrConfirmationAmbiguous marks a submission whose confirmation was never
// observed. The bet may or may not exist on the bookmaker side, so nothing
// is recorded and the run stops for manual reconciliation.
var ErrConfirmationAmbiguous = errors.New("submission confirmation not observed")

// ErrPlacementRejected marks a submission the bookmaker definitively
// refused. Unlike an ambiguous confirmation, the slip is known absent and
// gets a failed record.
var ErrPlacementRejected = errors.New("placement rejected by bookmaker")

// FatalError terminates the whole run at a specific slip.
type FatalError struct {
	SlipIndex int
	Err       error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal failure at slip %d: %v", e.SlipIndex, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Config holds the engine pacing knobs. Zero values fall back to defaults.
type Config struct {
	Stake float64
	// ResetInterval is the number of successful slips between context
	// resets.
	ResetInterval int
	// Pacing delay between slips: PacingBase plus a uniform draw from
	// [PacingJitterMin, PacingJitterMax].
	PacingBase      time.Duration
	PacingJitterMin time.Duration
	PacingJitterMax time.Duration
}

const (
	defaultResetInterval   = 5
	defaultPacingBase      = 5 * time.Second
	defaultPacingJitterMin = 10 * time.Second
	defaultPacingJitterMax = 60 * time.Second
)

func (c Config) withDefaults() Config {
	if c.ResetInterval <= 0 {
		c.ResetInterval = defaultResetInterval
	}
	if c.PacingBase <= 0 {
		c.PacingBase = defaultPacingBase
	}
	if c.PacingJitterMin <= 0 {
		c.PacingJitterMin = defaultPacingJitterMin
	}
	if c.PacingJitterMax < c.PacingJitterMin {
		c.PacingJitterMax = defaultPacingJitterMax
	}
	return c
}

// Engine places every remaining slip of a run, strictly sequentially.
type Engine struct {
	session   Session
	ledger    *ledger.Ledger
	gen       *combin.Generator
	selection models.Selection
	retrier   *retry.Executor
	cfg       Config
	rng       *rand.Rand
	sleep     retry.SleepFunc
	observer  Observer
}

// New wires an engine. The generator length must match the selection.
func New(session Session, led *ledger.Ledger, gen *combin.Generator, selection models.Selection, retrier *retry.Executor, cfg Config) (*Engine, error) {
	if gen.N() != len(selection) {
		return nil, fmt.Errorf("generator length %d does not match selection size %d", gen.N(), len(selection))
	}
	if cfg.Stake <= 0 {
		return nil, fmt.Errorf("stake must be positive, got %v", cfg.Stake)
	}
	return &Engine{
		session:   session,
		ledger:    led,
		gen:       gen,
		selection: selection,
		retrier:   retrier,
		cfg:       cfg.withDefaults(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:     defaultSleep,
	}, nil
}

// WithRand replaces the pacing randomness source, for deterministic replay
// in tests.
func (e *Engine) WithRand(rng *rand.Rand) *Engine {
	e.rng = rng
	return e
}

// WithSleep replaces the pacing wait function.
func (e *Engine) WithSleep(sleep retry.SleepFunc) *Engine {
	e.sleep = sleep
	return e
}

// WithObserver attaches a post-commit observer.
func (e *Engine) WithObserver(obs Observer) *Engine {
	e.observer = obs
	return e
}

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

// Run places slips from the ledger's resume index through the end of the
// combination space. The first fatal failure terminates the run; the
// ledger then holds the authoritative record of what actually succeeded.
func (e *Engine) Run(ctx context.Context) error {
	start := e.ledger.ResumeIndex()
	total := e.gen.Size()
	if start >= total {
		slog.Info("All slips already placed, nothing to do", "total", total)
		return nil
	}
	if start > 0 {
		slog.Info("Resuming placement from ledger", "resume_index", start, "total", total)
	}

	successes := 0
	for i := start; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		comb, err := e.gen.At(i)
		if err != nil {
			return err
		}

		if err := e.placeSlip(ctx, i, comb); err != nil {
			return e.abort(ctx, i, comb, err)
		}

		successes++
		slog.Info("Slip placed", "index", i, "combination", comb.String(), "progress", fmt.Sprintf("%d/%d", i+1, total))

		if i == total-1 {
			break
		}
		if successes%e.cfg.ResetInterval == 0 {
			if err := e.resetContext(ctx); err != nil {
				return &FatalError{SlipIndex: i + 1, Err: err}
			}
		}
		if err := e.pace(ctx); err != nil {
			return err
		}
	}

	slog.Info("Placement run complete", "placed", successes, "total", total)
	return nil
}

// placeSlip walks one slip through the state machine. On success the slip
// is recorded in the ledger before the method returns.
func (e *Engine) placeSlip(ctx context.Context, index int, comb models.Combination) error {
	slog.Info("Placing slip", "index", index, "combination", comb.String(), "stake", e.cfg.Stake)

	state := StateNavigate
	leg := 0
	for {
		switch state {
		case StateNavigate:
			f := e.selection[leg]
			err := e.retrier.Do(ctx, "navigate", func(ctx context.Context) error {
				return e.session.Navigate(ctx, f.Reference)
			})
			if err != nil {
				return fmt.Errorf("%s %s: %w", state, f.Name(), err)
			}
			state = StateSelectOutcomes

		case StateSelectOutcomes:
			f := e.selection[leg]
			outcome := comb[leg]
			err := e.retrier.Do(ctx, "select outcome", func(ctx context.Context) error {
				return e.session.SelectOutcome(ctx, f.ID, outcome)
			})
			if err != nil {
				return fmt.Errorf("%s %s=%s: %w", state, f.Name(), outcome, err)
			}
			leg++
			if leg < len(e.selection) {
				state = StateNavigate
			} else {
				state = StateEnterStake
			}

		case StateEnterStake:
			err := e.retrier.Do(ctx, "enter stake", func(ctx context.Context) error {
				return e.session.EnterStake(ctx, e.cfg.Stake)
			})
			if err != nil {
				return fmt.Errorf("%s: %w", state, err)
			}
			state = StateConfirm

		case StateConfirm:
			// Submission is deliberately not retried: a submit that errors
			// out may still have registered on the bookmaker side, and
			// re-submitting would risk a double placement.
			if err := e.session.Submit(ctx); err != nil {
				return fmt.Errorf("%s: %w: %w", state, ErrConfirmationAmbiguous, err)
			}
			state = StateVerify

		case StateVerify:
			var confirmed bool
			err := e.retrier.Do(ctx, "await confirmation", func(ctx context.Context) error {
				var opErr error
				confirmed, opErr = e.session.AwaitConfirmation(ctx)
				return opErr
			})
			if err != nil {
				if errors.Is(err, ErrPlacementRejected) {
					return fmt.Errorf("%s: %w", state, err)
				}
				return fmt.Errorf("%s: %w: %w", state, ErrConfirmationAmbiguous, err)
			}
			if !confirmed {
				return fmt.Errorf("%s: %w", state, ErrConfirmationAmbiguous)
			}
			state = StateRecord

		case StateRecord:
			rec := models.ProgressRecord{
				Index:       index,
				Combination: comb.String(),
				Status:      models.StatusSuccess,
				Timestamp:   time.Now().UTC(),
			}
			if err := e.ledger.Append(rec); err != nil {
				// The bet exists but the ledger write failed; stopping here
				// keeps the ledger authoritative (the slip will be flagged
				// for reconciliation, never silently re-placed).
				return fmt.Errorf("%s: %w: %w", state, ErrConfirmationAmbiguous, err)
			}
			e.notify(ctx, rec)
			return nil
		}
	}
}

// abort records the failure when that is safe and wraps it as fatal.
func (e *Engine) abort(ctx context.Context, index int, comb models.Combination, err error) error {
	if errors.Is(err, context.Canceled) {
		slog.Warn("Run interrupted, slip not recorded", "index", index)
		return err
	}
	if errors.Is(err, ErrConfirmationAmbiguous) {
		// Possibly placed on the bookmaker side: leave the record absent so
		// the operator reconciles by hand before any rerun.
		slog.Error("Ambiguous confirmation state, run terminated", "index", index, "error", err)
		return &FatalError{SlipIndex: index, Err: err}
	}

	rec := models.ProgressRecord{
		Index:       index,
		Combination: comb.String(),
		Status:      models.StatusFailed,
		Timestamp:   time.Now().UTC(),
	}
	if appendErr := e.ledger.Append(rec); appendErr != nil {
		slog.Error("Failed to record slip failure", "index", index, "error", appendErr)
	} else {
		e.notify(ctx, rec)
	}
	slog.Error("Fatal failure, run terminated", "index", index, "error", err)
	return &FatalError{SlipIndex: index, Err: err}
}

// resetContext discards and rebuilds the external execution context to
// bound browser state drift, under the usual retry policy.
func (e *Engine) resetContext(ctx context.Context) error {
	slog.Info("Resetting execution context")
	err := e.retrier.Do(ctx, "reset context", func(ctx context.Context) error {
		return e.session.ResetContext(ctx)
	})
	if err != nil {
		return fmt.Errorf("context reset: %w", err)
	}
	return nil
}

// pace waits the randomized inter-slip delay.
func (e *Engine) pace(ctx context.Context) error {
	jitterRange := int64(e.cfg.PacingJitterMax-e.cfg.PacingJitterMin) + 1
	delay := e.cfg.PacingBase + e.cfg.PacingJitterMin + time.Duration(e.rng.Int63n(jitterRange))
	slog.Debug("Pacing before next slip", "delay", delay)
	return e.sleep(ctx, delay)
}

func (e *Engine) notify(ctx context.Context, rec models.ProgressRecord) {
	if e.observer != nil {
		e.observer.SlipRecorded(ctx, rec)
	}
}
