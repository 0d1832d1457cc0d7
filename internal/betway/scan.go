package betway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
)

// Scanner reads upcoming soccer fixtures off the listing pages. It
// satisfies the fixtures cache's scanner contract.
type Scanner struct {
	browser *Browser
	now     func() time.Time
}

// NewScanner wraps a logged-in browser.
func NewScanner(b *Browser) *Scanner {
	return &Scanner{browser: b, now: time.Now}
}

// scrapedMatch is the raw per-row result of the extraction script.
type scrapedMatch struct {
	Home     string    `json:"home"`
	Away     string    `json:"away"`
	TimeText string    `json:"timeText"`
	Odds     []float64 `json:"odds"`
	Href     string    `json:"href"`
}

// extractMatchesJS walks the listing rows and pulls team names, the
// kickoff label, the three match-result prices and the event link. Rows
// missing any of those are skipped here rather than in Go.
const extractMatchesJS = `
(() => {
	const rows = document.querySelectorAll('div.relative.grid.grid-cols-12');
	const out = [];
	for (const row of rows) {
		const teams = row.querySelectorAll('strong.overflow-hidden.text-ellipsis');
		if (teams.length < 2) continue;

		let timeText = '';
		for (const span of row.querySelectorAll('span')) {
			const t = (span.textContent || '').trim();
			if (/^(Today|Tomorrow|Mon|Tue|Wed|Thu|Fri|Sat|Sun)\b.*\d{1,2}:\d{2}/.test(t) ||
				/^\d{1,2}\s+\w{3}\s*-\s*\d{1,2}:\d{2}/.test(t)) {
				timeText = t;
				break;
			}
		}

		const odds = [];
		const prices = row.querySelectorAll('div[price]');
		for (let i = 0; i < prices.length && i < 3; i++) {
			const span = prices[i].querySelector('span');
			const v = parseFloat(((span && span.textContent) || '').replace(',', '.'));
			if (!isNaN(v)) odds.push(v);
		}

		const link = row.querySelector('a[href*="/event/"], a[href*="/sport/"]');
		out.push({
			home: teams[0].textContent.trim(),
			away: teams[1].textContent.trim(),
			timeText: timeText,
			odds: odds,
			href: link ? link.getAttribute('href') : '',
		});
	}
	return out;
})()
`

const clickNextJS = `
(() => {
	const btns = [...document.querySelectorAll('button')];
	const next = btns.find(b =>
		(b.getAttribute('aria-label') === 'Next' || b.textContent.trim() === 'Next') && !b.disabled);
	if (!next) return false;
	next.click();
	return true;
})()
`

// Scan walks the upcoming soccer pages and returns every complete fixture
// found, in page order. It stops at maxPages or when the pagination runs
// out.
func (s *Scanner) Scan(ctx context.Context, maxPages int) ([]models.Fixture, error) {
	tctx, cancel := s.browser.tab(ctx)
	err := chromedp.Run(tctx,
		chromedp.Navigate(s.browser.BaseURL()+"/sport/soccer/upcoming"),
		chromedp.Sleep(1500*time.Millisecond),
	)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture listing: %w", err)
	}
	s.browser.dismissPopups(ctx)

	var fixtures []models.Fixture
	seen := make(map[string]bool)

	for page := 1; page <= maxPages; page++ {
		var rows []scrapedMatch
		tctx, cancel := s.browser.tab(ctx)
		err := chromedp.Run(tctx,
			scrollThroughPage(),
			chromedp.Evaluate(extractMatchesJS, &rows),
		)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to extract fixtures from page %d: %w", page, err)
		}

		kept := 0
		for _, row := range rows {
			f, ok := s.toFixture(row)
			if !ok || seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			fixtures = append(fixtures, f)
			kept++
		}
		slog.Info("Scanned fixture page", "page", page, "rows", len(rows), "kept", kept, "total", len(fixtures))

		if page == maxPages {
			break
		}
		var advanced bool
		tctx, cancel = s.browser.tab(ctx)
		err = chromedp.Run(tctx,
			chromedp.Evaluate(clickNextJS, &advanced),
			chromedp.Sleep(1500*time.Millisecond),
			chromedp.Evaluate(`window.scrollTo(0, 0)`, nil),
		)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to advance to page %d: %w", page+1, err)
		}
		if !advanced {
			slog.Info("Pagination exhausted", "pages", page)
			break
		}
	}

	return fixtures, nil
}

// scrollThroughPage nudges lazy-loaded rows into rendering.
func scrollThroughPage() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for i := 0; i < 6; i++ {
			if err := chromedp.Evaluate(`window.scrollBy(0, 500)`, nil).Do(ctx); err != nil {
				return err
			}
			if err := chromedp.Sleep(200 * time.Millisecond).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// toFixture validates a scraped row. Rows without all three prices, a
// kickoff label or an event link are incomplete and dropped.
func (s *Scanner) toFixture(row scrapedMatch) (models.Fixture, bool) {
	if row.Home == "" || row.Away == "" || len(row.Odds) != 3 || row.Href == "" {
		return models.Fixture{}, false
	}
	kickoff, err := parseKickoff(row.TimeText, s.now())
	if err != nil {
		slog.Debug("Skipping fixture with unparseable kickoff", "home", row.Home, "away", row.Away, "time_text", row.TimeText)
		return models.Fixture{}, false
	}
	f := models.Fixture{
		ID:        fixtureID(row.Href),
		HomeTeam:  row.Home,
		AwayTeam:  row.Away,
		Kickoff:   kickoff,
		Reference: row.Href,
	}
	copy(f.Odds[:], row.Odds)
	return f, true
}

// fixtureID derives a stable identifier from the event link path.
func fixtureID(href string) string {
	trimmed := strings.Trim(href, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return trimmed
}

// parseKickoff turns the listing's kickoff label into an absolute time in
// now's location. Labels come in three shapes: "Today - 15:04",
// "Tomorrow - 15:04" or a weekday prefix, and "12 Sep - 15:04".
func parseKickoff(label string, now time.Time) (time.Time, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return time.Time{}, fmt.Errorf("empty kickoff label")
	}

	parts := strings.SplitN(label, "-", 2)
	var dayPart, timePart string
	if len(parts) == 2 {
		dayPart = strings.TrimSpace(parts[0])
		timePart = strings.TrimSpace(parts[1])
	} else {
		fields := strings.Fields(label)
		if len(fields) < 2 {
			return time.Time{}, fmt.Errorf("unrecognized kickoff label %q", label)
		}
		dayPart = strings.Join(fields[:len(fields)-1], " ")
		timePart = fields[len(fields)-1]
	}

	clock, err := time.Parse("15:04", timePart)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad kickoff time in %q: %w", label, err)
	}

	day, err := resolveDay(dayPart, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad kickoff day in %q: %w", label, err)
	}

	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location()), nil
}

func resolveDay(dayPart string, now time.Time) (time.Time, error) {
	switch dayPart {
	case "Today":
		return now, nil
	case "Tomorrow":
		return now.AddDate(0, 0, 1), nil
	}

	// Weekday label, e.g. "Sat". Resolves to the next such weekday,
	// today included.
	if wd, ok := weekdays[dayPart]; ok {
		delta := (int(wd) - int(now.Weekday()) + 7) % 7
		return now.AddDate(0, 0, delta), nil
	}

	// Explicit date, e.g. "12 Sep". The listing only shows upcoming
	// fixtures, so a date earlier in the calendar year than today means
	// next year.
	day, err := time.Parse("2 Jan", dayPart)
	if err != nil {
		return time.Time{}, err
	}
	resolved := time.Date(now.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
	if resolved.Before(now.AddDate(0, 0, -1)) {
		resolved = resolved.AddDate(1, 0, 0)
	}
	return resolved, nil
}

var weekdays = map[string]time.Weekday{
	"Sun": time.Sunday,
	"Mon": time.Monday,
	"Tue": time.Tuesday,
	"Wed": time.Wednesday,
	"Thu": time.Thursday,
	"Fri": time.Friday,
	"Sat": time.Saturday,
}
