package selector

import (
	"errors"
	"testing"
	"time"

	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
)

var testNow = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

func fixture(id string, kickoff time.Time) models.Fixture {
	return models.Fixture{
		ID:        id,
		HomeTeam:  "Home " + id,
		AwayTeam:  "Away " + id,
		Kickoff:   kickoff,
		Reference: "https://new.betway.co.za/event/soccer/" + id,
	}
}

func TestSelect_EarliestFeasibleTriple(t *testing.T) {
	// Five fixtures, n=3: the earliest chronological triple with 2.5h+ gaps.
	fixtures := []models.Fixture{
		fixture("a", testNow.Add(4*time.Hour)),
		fixture("b", testNow.Add(5*time.Hour)), // within 2.5h of a, skipped
		fixture("c", testNow.Add(7*time.Hour)),
		fixture("d", testNow.Add(8*time.Hour)), // within 2.5h of c, skipped
		fixture("e", testNow.Add(10*time.Hour)),
	}

	sel, err := Select(fixtures, 3, testNow, Options{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	got := []string{sel[0].ID, sel[1].ID, sel[2].ID}
	want := []string{"a", "c", "e"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("selection[%d] = %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestSelect_IgnoresInputOrder(t *testing.T) {
	fixtures := []models.Fixture{
		fixture("late", testNow.Add(9*time.Hour)),
		fixture("early", testNow.Add(4*time.Hour)),
		fixture("mid", testNow.Add(6*time.Hour+30*time.Minute)),
	}
	sel, err := Select(fixtures, 3, testNow, Options{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel[0].ID != "early" || sel[1].ID != "mid" || sel[2].ID != "late" {
		t.Errorf("selection not chronological: %v", sel)
	}
}

func TestSelect_LeadTimeExcludesSoonFixtures(t *testing.T) {
	fixtures := []models.Fixture{
		fixture("soon", testNow.Add(2*time.Hour)), // inside the 3.5h lead window
		fixture("ok", testNow.Add(4*time.Hour)),
	}
	sel, err := Select(fixtures, 1, testNow, Options{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel[0].ID != "ok" {
		t.Errorf("selected %s, want ok", sel[0].ID)
	}
}

func TestSelect_InsufficientFixtures(t *testing.T) {
	fixtures := []models.Fixture{
		fixture("a", testNow.Add(4*time.Hour)),
		fixture("b", testNow.Add(5*time.Hour)),
		fixture("c", testNow.Add(6*time.Hour)),
	}

	_, err := Select(fixtures, 3, testNow, Options{})
	var insufficient *InsufficientFixturesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFixturesError, got %v", err)
	}
	if insufficient.Requested != 3 {
		t.Errorf("Requested = %d, want 3", insufficient.Requested)
	}
	// All three are within 2h of each other, so only one fixture fits.
	if insufficient.Found != 1 {
		t.Errorf("Found = %d, want 1", insufficient.Found)
	}
}

func TestSelect_ReportsLargestSatisfiableCount(t *testing.T) {
	fixtures := []models.Fixture{
		fixture("a", testNow.Add(4*time.Hour)),
		fixture("b", testNow.Add(7*time.Hour)),
	}
	_, err := Select(fixtures, 4, testNow, Options{})
	var insufficient *InsufficientFixturesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFixturesError, got %v", err)
	}
	if insufficient.Found != 2 {
		t.Errorf("Found = %d, want 2", insufficient.Found)
	}
}

func TestSelect_CustomOptions(t *testing.T) {
	fixtures := []models.Fixture{
		fixture("a", testNow.Add(1*time.Hour)),
		fixture("b", testNow.Add(2*time.Hour)),
	}
	sel, err := Select(fixtures, 2, testNow, Options{LeadTime: 30 * time.Minute, MinGap: time.Hour})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(sel) != 2 {
		t.Errorf("selected %d fixtures, want 2", len(sel))
	}
}

func TestValidateReferences(t *testing.T) {
	ok := fixture("a", testNow.Add(4*time.Hour))
	bad := fixture("b", testNow.Add(7*time.Hour))
	bad.Reference = ""

	if err := ValidateReferences(models.Selection{ok}); err != nil {
		t.Errorf("valid selection rejected: %v", err)
	}

	err := ValidateReferences(models.Selection{ok, bad})
	var missing *MissingReferenceError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingReferenceError, got %v", err)
	}
	if missing.FixtureID != "b" {
		t.Errorf("FixtureID = %s, want b", missing.FixtureID)
	}
}
