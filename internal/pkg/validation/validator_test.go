package validation

import (
	"testing"
	"time"

	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
)

func validFixture() models.Fixture {
	return models.Fixture{
		ID:        "arsenal-vs-chelsea",
		HomeTeam:  "Arsenal",
		AwayTeam:  "Chelsea",
		Kickoff:   time.Date(2026, 9, 12, 18, 0, 0, 0, time.UTC),
		Reference: "/event/arsenal-vs-chelsea",
		Odds:      [3]float64{2.1, 3.4, 3.2},
	}
}

func TestValidateFixture(t *testing.T) {
	if err := ValidateFixture(validFixture()); err != nil {
		t.Fatalf("valid fixture rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.Fixture)
	}{
		{"empty id", func(f *models.Fixture) { f.ID = "" }},
		{"empty home team", func(f *models.Fixture) { f.HomeTeam = "" }},
		{"empty away team", func(f *models.Fixture) { f.AwayTeam = "" }},
		{"same teams", func(f *models.Fixture) { f.AwayTeam = f.HomeTeam }},
		{"zero kickoff", func(f *models.Fixture) { f.Kickoff = time.Time{} }},
		{"missing reference", func(f *models.Fixture) { f.Reference = "" }},
		{"zero odd", func(f *models.Fixture) { f.Odds[1] = 0 }},
		{"absurd odd", func(f *models.Fixture) { f.Odds[2] = 5000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFixture()
			tt.mutate(&f)
			if err := ValidateFixture(f); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSanitizeFixture(t *testing.T) {
	f := models.Fixture{
		ID:        "event/123?x=1",
		HomeTeam:  "  Kaizer \tChiefs  ",
		AwayTeam:  "Orlando\x00Pirates",
		Reference: " /event/123 ",
	}
	SanitizeFixture(&f)

	if f.ID != "event123x1" {
		t.Errorf("ID = %q", f.ID)
	}
	if f.HomeTeam != "Kaizer Chiefs" {
		t.Errorf("HomeTeam = %q", f.HomeTeam)
	}
	if f.AwayTeam != "OrlandoPirates" {
		t.Errorf("AwayTeam = %q", f.AwayTeam)
	}
	if f.Reference != "/event/123" {
		t.Errorf("Reference = %q", f.Reference)
	}
}

func TestSanitizeFixture_Nil(t *testing.T) {
	SanitizeFixture(nil)
}
