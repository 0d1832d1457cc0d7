// Package fixtures freezes the result of the one upfront site scan. All
// later phases work from this snapshot; nothing ever re-triggers scanning.
package fixtures

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
	"github.com/metaphizix/BetwayCombinations/internal/pkg/validation"
)

// DefaultMaxPages bounds how many listing pages the scan walks.
const DefaultMaxPages = 20

// Scanner is the collaborator that observes fixtures on the site. Each
// returned fixture must already carry its captured navigation reference.
type Scanner interface {
	Scan(ctx context.Context, maxPages int) ([]models.Fixture, error)
}

// Cache is an immutable snapshot of scanned fixtures.
type Cache struct {
	fixtures []models.Fixture
}

// Build runs the scan once and freezes the result.
func Build(ctx context.Context, scanner Scanner, maxPages int) (*Cache, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	observed, err := scanner.Scan(ctx, maxPages)
	if err != nil {
		return nil, fmt.Errorf("fixture scan failed: %w", err)
	}
	snapshot := make([]models.Fixture, 0, len(observed))
	for _, f := range observed {
		validation.SanitizeFixture(&f)
		if err := validation.ValidateFixture(f); err != nil {
			slog.Warn("Dropping unusable fixture", "fixture", f.Name(), "error", err)
			continue
		}
		snapshot = append(snapshot, f)
	}
	slog.Info("Fixture cache built", "fixtures", len(snapshot), "dropped", len(observed)-len(snapshot), "max_pages", maxPages)
	return &Cache{fixtures: snapshot}, nil
}

// All returns a copy of every observed fixture.
func (c *Cache) All() []models.Fixture {
	out := make([]models.Fixture, len(c.fixtures))
	copy(out, c.fixtures)
	return out
}

// Len returns the number of cached fixtures.
func (c *Cache) Len() int { return len(c.fixtures) }
