// Package combin enumerates the full outcome-combination space for a
// selection of fixtures. The enumeration is a pure function of the fixture
// count: for the same N the i-th combination is always identical across
// runs, which is what makes resume-by-index correct.
package combin

import (
	"fmt"

	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
)

// MaxN bounds the fixture count. 3^10 is already 59049 slips, far beyond
// any sane run, and the cap keeps the size arithmetic well inside int range.
const MaxN = 10

// Generator enumerates all outcome vectors of length N in lexicographic
// order over 1 < X < 2: index 0 is all home wins, index 3^N-1 all away wins.
type Generator struct {
	n    int
	size int
}

// New creates a generator for n fixtures. n must be between 1 and MaxN.
func New(n int) (*Generator, error) {
	if n < 1 {
		return nil, fmt.Errorf("fixture count must be at least 1, got %d", n)
	}
	if n > MaxN {
		return nil, fmt.Errorf("fixture count must be at most %d, got %d", MaxN, n)
	}
	size := 1
	for i := 0; i < n; i++ {
		size *= 3
	}
	return &Generator{n: n, size: size}, nil
}

// N returns the combination length.
func (g *Generator) N() int { return g.n }

// Size returns the total number of combinations, 3^N.
func (g *Generator) Size() int { return g.size }

// At returns the i-th combination without materializing earlier ones.
// The index is the base-3 expansion of i with the first fixture as the
// most significant digit.
func (g *Generator) At(i int) (models.Combination, error) {
	if i < 0 || i >= g.size {
		return nil, fmt.Errorf("combination index %d out of range [0, %d)", i, g.size)
	}
	c := make(models.Combination, g.n)
	for pos := g.n - 1; pos >= 0; pos-- {
		c[pos] = models.Outcome(i % 3)
		i /= 3
	}
	return c, nil
}

// All returns every combination in order. Intended for small N and tests;
// the engine uses At for indexed access.
func (g *Generator) All() []models.Combination {
	out := make([]models.Combination, g.size)
	for i := 0; i < g.size; i++ {
		c, _ := g.At(i)
		out[i] = c
	}
	return out
}
