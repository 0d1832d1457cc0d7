package validation

import (
	"regexp"
	"strings"

	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
)

var (
	idChars      = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

// SanitizeFixture normalizes scraped fields in place. Scraped text carries
// whatever the page renders, so control characters and stray whitespace
// are stripped before anything is compared or persisted.
func SanitizeFixture(f *models.Fixture) {
	if f == nil {
		return
	}
	f.ID = sanitizeID(f.ID)
	f.HomeTeam = sanitizeTeamName(f.HomeTeam)
	f.AwayTeam = sanitizeTeamName(f.AwayTeam)
	f.Reference = strings.TrimSpace(f.Reference)
}

func sanitizeID(id string) string {
	sanitized := idChars.ReplaceAllString(id, "")
	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}
	return sanitized
}

func sanitizeTeamName(name string) string {
	sanitized := strings.TrimSpace(name)
	sanitized = controlChars.ReplaceAllString(sanitized, "")
	sanitized = multiSpace.ReplaceAllString(sanitized, " ")
	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}
	return sanitized
}
