package models

import (
	"fmt"
	"strings"
	"time"
)

// Fixture represents one upcoming match eligible for betting.
// Reference is the event page URL captured during the scan; a fixture
// without a reference cannot be navigated to and must never be selected.
type Fixture struct {
	ID        string     `json:"id"`
	HomeTeam  string     `json:"home_team"`
	AwayTeam  string     `json:"away_team"`
	Kickoff   time.Time  `json:"kickoff"`
	Reference string     `json:"reference"`
	Odds      [3]float64 `json:"odds"` // 1/X/2 prices as shown at scan time
}

// Name returns the display name, e.g. "Arsenal vs Chelsea".
func (f Fixture) Name() string {
	return f.HomeTeam + " vs " + f.AwayTeam
}

// Selection is the ordered set of fixtures every slip is built from,
// sorted by kickoff ascending.
type Selection []Fixture

// Fingerprint identifies the selection across process restarts so a ledger
// written for one set of fixtures is never replayed against another.
func (s Selection) Fingerprint() []string {
	fp := make([]string, len(s))
	for i, f := range s {
		fp[i] = fmt.Sprintf("%s|%s|%s", f.HomeTeam, f.AwayTeam, f.Kickoff.UTC().Format(time.RFC3339))
	}
	return fp
}

func (s Selection) String() string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name()
	}
	return strings.Join(names, ", ")
}
