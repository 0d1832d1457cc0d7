package betway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/metaphizix/BetwayCombinations/internal/engine"
	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
)

// Session places one slip at a time through the betslip UI. It implements
// the placement engine's session contract on top of a Browser.
type Session struct {
	browser *Browser
}

// NewSession wraps a logged-in browser.
func NewSession(b *Browser) *Session {
	return &Session{browser: b}
}

// Navigate opens an event page by its listing reference.
func (s *Session) Navigate(ctx context.Context, reference string) error {
	url := reference
	if strings.HasPrefix(reference, "/") {
		url = s.browser.BaseURL() + reference
	}
	tctx, cancel := s.browser.tab(ctx)
	defer cancel()
	err := chromedp.Run(tctx,
		chromedp.Navigate(url),
		chromedp.Sleep(1500*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("failed to open event page %s: %w", reference, err)
	}
	s.browser.dismissPopups(ctx)
	return nil
}

// clickOutcomeJS clicks the nth price button of the match result market
// and reports whether a button was found.
const clickOutcomeJS = `
((index) => {
	const prices = document.querySelectorAll('div[price]');
	if (prices.length < 3 || index >= prices.length) return false;
	prices[index].scrollIntoView({block: 'center'});
	prices[index].click();
	return true;
})(%d)
`

// betslipCountJS counts selections currently in the betslip.
const betslipCountJS = `
(() => {
	const slip = document.querySelector('div#betslip-container-mobile') ||
		document.querySelector('div#betslip-container');
	if (!slip) return 0;
	return slip.querySelectorAll('div[class*="selection"], div[data-testid*="selection"]').length;
})()
`

// SelectOutcome clicks the price button for one outcome on the open event
// page and verifies the betslip grew by one selection.
func (s *Session) SelectOutcome(ctx context.Context, fixtureID string, outcome models.Outcome) error {
	var before int
	tctx, cancel := s.browser.tab(ctx)
	err := chromedp.Run(tctx, chromedp.Evaluate(betslipCountJS, &before))
	cancel()
	if err != nil {
		return fmt.Errorf("failed to read betslip state: %w", err)
	}

	var clicked bool
	tctx, cancel = s.browser.tab(ctx)
	err = chromedp.Run(tctx,
		chromedp.Sleep(300*time.Millisecond),
		chromedp.Evaluate(fmt.Sprintf(clickOutcomeJS, int(outcome)), &clicked),
		chromedp.Sleep(1*time.Second),
	)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to click outcome %s on %s: %w", outcome, fixtureID, err)
	}
	if !clicked {
		return fmt.Errorf("outcome buttons not found on %s", fixtureID)
	}

	var after int
	tctx, cancel = s.browser.tab(ctx)
	err = chromedp.Run(tctx, chromedp.Evaluate(betslipCountJS, &after))
	cancel()
	if err != nil {
		return fmt.Errorf("failed to read betslip state: %w", err)
	}
	if after <= before {
		return fmt.Errorf("betslip did not register outcome %s on %s", outcome, fixtureID)
	}
	return nil
}

// enterStakeJS sets the stake input through the DOM. A plain value
// assignment is ignored by the input's framework binding, so the native
// setter plus input and change events is required.
const enterStakeJS = `
((amount) => {
	const input = document.querySelector('#bet-amount-input') ||
		document.querySelector('input[placeholder="0.00"]') ||
		document.querySelector('input[type="number"][inputmode="decimal"]');
	if (!input) return '';
	const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, 'value').set;
	setter.call(input, amount.toFixed(2));
	input.dispatchEvent(new Event('input', {bubbles: true}));
	input.dispatchEvent(new Event('change', {bubbles: true}));
	return input.value;
})(%g)
`

// EnterStake fills the stake field and verifies the value stuck.
func (s *Session) EnterStake(ctx context.Context, amount float64) error {
	var got string
	tctx, cancel := s.browser.tab(ctx)
	defer cancel()
	err := chromedp.Run(tctx,
		chromedp.Evaluate(fmt.Sprintf(enterStakeJS, amount), &got),
		chromedp.Sleep(400*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("failed to enter stake: %w", err)
	}
	if got == "" {
		return fmt.Errorf("stake input not found")
	}
	want := fmt.Sprintf("%.2f", amount)
	if got != want {
		return fmt.Errorf("stake input holds %q, want %q", got, want)
	}
	return nil
}

// submitJS clicks the strike button inside the betslip, never the look-alike
// signup button.
const submitJS = `
(() => {
	const btn = document.querySelector('button#betslip-strike-btn') ||
		document.querySelector('div#betslip-container button[aria-label="Bet Now"]') ||
		document.querySelector('div#betslip-container-mobile button[aria-label="Bet Now"]');
	if (!btn || btn.disabled || btn.id === 'sign-up-btn') return false;
	btn.scrollIntoView({block: 'center'});
	btn.click();
	return true;
})()
`

// Submit strikes the slip. Called exactly once per slip; after a
// successful click the placement state is unknown until confirmation.
func (s *Session) Submit(ctx context.Context) error {
	var clicked bool
	tctx, cancel := s.browser.tab(ctx)
	defer cancel()
	err := chromedp.Run(tctx,
		chromedp.Sleep(800*time.Millisecond),
		chromedp.Evaluate(submitJS, &clicked),
	)
	if err != nil {
		return fmt.Errorf("failed to strike betslip: %w", err)
	}
	if !clicked {
		return fmt.Errorf("strike button not found or disabled")
	}
	return nil
}

// confirmationStateJS inspects the page after a strike: the confirmation
// modal with its continue button means placed, an alert box with a
// rejection message means refused, anything else means not settled yet.
const confirmationStateJS = `
(() => {
	const cont = document.querySelector('button#strike-conf-continue-btn') ||
		[...document.querySelectorAll('button')].find(b => b.textContent.trim() === 'Continue betting');
	if (cont) {
		cont.click();
		return {state: 'confirmed'};
	}
	if ([...document.querySelectorAll('span')].some(el => el.textContent.includes('Bet Confirmation'))) {
		return {state: 'confirmed'};
	}
	const alert = document.querySelector('div[role="alert"], div[class*="error"]');
	if (alert && alert.textContent.trim() !== '') {
		return {state: 'rejected', message: alert.textContent.trim()};
	}
	return {state: 'pending'};
})()
`

type confirmationState struct {
	State   string `json:"state"`
	Message string `json:"message"`
}

// AwaitConfirmation polls for the confirmation modal. A rejection alert
// returns the rejection sentinel; timing out with no signal at all
// returns unconfirmed so the caller can treat the slip as ambiguous.
func (s *Session) AwaitConfirmation(ctx context.Context) (bool, error) {
	for attempt := 0; attempt < 8; attempt++ {
		var st confirmationState
		tctx, cancel := s.browser.tab(ctx)
		err := chromedp.Run(tctx,
			chromedp.Sleep(1500*time.Millisecond),
			chromedp.Evaluate(confirmationStateJS, &st),
		)
		cancel()
		if err != nil {
			return false, fmt.Errorf("failed to check confirmation state: %w", err)
		}
		switch st.State {
		case "confirmed":
			s.browser.dismissPopups(ctx)
			return true, nil
		case "rejected":
			msg := st.Message
			if len(msg) > 150 {
				msg = msg[:150]
			}
			return false, fmt.Errorf("%w: %s", engine.ErrPlacementRejected, msg)
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
	}
	slog.Warn("Confirmation modal never appeared")
	return false, nil
}

// ResetContext rebuilds the tab and logs back in.
func (s *Session) ResetContext(ctx context.Context) error {
	return s.browser.Reset(ctx)
}
