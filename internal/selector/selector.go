// Package selector chooses a feasible subset of scanned fixtures for a
// combination run. Selection is pure: it never touches the browser, so a
// failed selection is guaranteed to have placed nothing.
package selector

import (
	"fmt"
	"sort"
	"time"

	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
)

const (
	// DefaultLeadTime is the minimum interval between now and the earliest
	// selected kickoff.
	DefaultLeadTime = 3*time.Hour + 30*time.Minute
	// DefaultMinGap is the minimum interval between consecutive selected
	// kickoffs.
	DefaultMinGap = 2*time.Hour + 30*time.Minute
)

// Options hold the timing constraints. Zero values fall back to defaults.
type Options struct {
	LeadTime time.Duration
	MinGap   time.Duration
}

func (o Options) withDefaults() Options {
	if o.LeadTime <= 0 {
		o.LeadTime = DefaultLeadTime
	}
	if o.MinGap <= 0 {
		o.MinGap = DefaultMinGap
	}
	return o
}

// InsufficientFixturesError reports that no subset of the requested size
// satisfies the timing constraints. Found is the largest satisfiable count.
type InsufficientFixturesError struct {
	Requested int
	Found     int
}

func (e *InsufficientFixturesError) Error() string {
	return fmt.Sprintf("no feasible selection of %d fixtures (best satisfiable: %d)", e.Requested, e.Found)
}

// MissingReferenceError reports a selected fixture without a captured
// navigation reference.
type MissingReferenceError struct {
	FixtureID string
	Name      string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("fixture %s (%s) has no captured reference", e.FixtureID, e.Name)
}

// Select picks the first chronological subsequence of n fixtures whose
// earliest kickoff is at least LeadTime after now and whose consecutive
// kickoffs are at least MinGap apart. Fixtures are considered earliest-first,
// so ties resolve toward earlier kickoffs.
func Select(fixtures []models.Fixture, n int, now time.Time, opts Options) (models.Selection, error) {
	if n < 1 {
		return nil, fmt.Errorf("fixture count must be at least 1, got %d", n)
	}
	opts = opts.withDefaults()

	sorted := make([]models.Fixture, len(fixtures))
	copy(sorted, fixtures)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Kickoff.Before(sorted[j].Kickoff)
	})

	earliest := now.Add(opts.LeadTime)
	var picked models.Selection
	for _, f := range sorted {
		if f.Kickoff.Before(earliest) {
			continue
		}
		if len(picked) > 0 && f.Kickoff.Sub(picked[len(picked)-1].Kickoff) < opts.MinGap {
			continue
		}
		picked = append(picked, f)
		if len(picked) == n {
			return picked, nil
		}
	}

	// Taking the earliest admissible fixture at every step maximizes the
	// chain length under a minimum-gap constraint, so len(picked) is the
	// largest satisfiable count.
	return nil, &InsufficientFixturesError{Requested: n, Found: len(picked)}
}

// ValidateReferences rejects any selected fixture whose captured reference
// is empty. Callers must run this before the first external interaction.
func ValidateReferences(sel models.Selection) error {
	for _, f := range sel {
		if f.Reference == "" {
			return &MissingReferenceError{FixtureID: f.ID, Name: f.Name()}
		}
	}
	return nil
}
