// Package validation checks and normalizes scraped fixture data before it
// enters the frozen snapshot.
package validation

import (
	"fmt"

	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
)

// Decimal odds outside this range are display glitches, not prices.
const (
	minOdds = 1.01
	maxOdds = 1000
)

// ValidateFixture rejects fixtures that cannot be bet on. Run after
// SanitizeFixture.
func ValidateFixture(f models.Fixture) error {
	if f.ID == "" {
		return fmt.Errorf("fixture ID cannot be empty")
	}
	if f.HomeTeam == "" {
		return fmt.Errorf("home team cannot be empty")
	}
	if f.AwayTeam == "" {
		return fmt.Errorf("away team cannot be empty")
	}
	if f.HomeTeam == f.AwayTeam {
		return fmt.Errorf("home and away team are both %q", f.HomeTeam)
	}
	if f.Kickoff.IsZero() {
		return fmt.Errorf("kickoff is not set")
	}
	if f.Reference == "" {
		return fmt.Errorf("navigation reference cannot be empty")
	}
	for i, odd := range f.Odds {
		if odd < minOdds || odd > maxOdds {
			return fmt.Errorf("odds[%d] = %v outside [%v, %v]", i, odd, float64(minOdds), float64(maxOdds))
		}
	}
	return nil
}
