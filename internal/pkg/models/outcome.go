package models

import (
	"fmt"
	"strings"
)

// Outcome is one full-time result of a fixture: home win, draw or away win.
type Outcome int

const (
	OutcomeHome Outcome = iota
	OutcomeDraw
	OutcomeAway
)

// String renders the bookmaker symbol: 1, X or 2.
func (o Outcome) String() string {
	switch o {
	case OutcomeHome:
		return "1"
	case OutcomeDraw:
		return "X"
	case OutcomeAway:
		return "2"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ParseOutcome parses a single bookmaker symbol.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1":
		return OutcomeHome, nil
	case "X":
		return OutcomeDraw, nil
	case "2":
		return OutcomeAway, nil
	default:
		return 0, fmt.Errorf("unknown outcome symbol: %q", s)
	}
}

// Combination assigns one outcome to every fixture of a selection, in
// selection order.
type Combination []Outcome

// String renders the combination as a symbol string, e.g. "1X2".
func (c Combination) String() string {
	var b strings.Builder
	for _, o := range c {
		b.WriteString(o.String())
	}
	return b.String()
}

// ParseCombination parses a symbol string like "1X2" back into a combination.
func ParseCombination(s string) (Combination, error) {
	c := make(Combination, 0, len(s))
	for _, r := range s {
		o, err := ParseOutcome(string(r))
		if err != nil {
			return nil, fmt.Errorf("invalid combination %q: %w", s, err)
		}
		c = append(c, o)
	}
	return c, nil
}

// Equal reports whether two combinations assign the same outcomes.
func (c Combination) Equal(other Combination) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Slip is the atomic unit of placement: one combination plus a stake.
type Slip struct {
	Index       int         `json:"index"`
	Combination Combination `json:"combination"`
	Stake       float64     `json:"stake"`
}
