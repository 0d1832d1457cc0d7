// Package betway drives the bookmaker web UI through a headless browser.
// It owns the Chrome allocator, login, and popup handling; the scanning
// and slip placement layers build on the tab context it maintains.
package betway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	defaultBaseURL     = "https://new.betway.co.za"
	defaultPageTimeout = 30 * time.Second
	userAgent          = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"
)

// Config holds browser and account settings.
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	Headless    bool          `yaml:"headless"`
	PageTimeout time.Duration `yaml:"page_timeout"`

	// Credentials come from the environment, never from the YAML file.
	Username string `yaml:"-"`
	Password string `yaml:"-"`
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = defaultPageTimeout
	}
	return c
}

// Browser owns one Chrome process and a current tab. The tab can be torn
// down and rebuilt with Reset without restarting Chrome.
type Browser struct {
	cfg Config

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// NewBrowser starts Chrome and opens the first tab. The caller must Close.
func NewBrowser(ctx context.Context, cfg Config) (*Browser, error) {
	cfg = cfg.withDefaults()
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("betway credentials are not set")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("window-size", "1440,900"),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	b := &Browser{
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}
	if err := b.newTab(); err != nil {
		allocCancel()
		return nil, err
	}
	return b, nil
}

func (b *Browser) newTab() error {
	tabCtx, tabCancel := chromedp.NewContext(b.allocCtx, chromedp.WithLogf(func(format string, v ...interface{}) {
		if os.Getenv("BETWAY_DEBUG") == "1" {
			fmt.Printf("chromedp: "+format, v...)
		}
	}))
	// Starting the browser lazily on the first action hides launch errors
	// behind unrelated failures, so force it up front.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return fmt.Errorf("failed to start browser tab: %w", err)
	}
	b.tabCtx = tabCtx
	b.tabCancel = tabCancel
	return nil
}

// tab returns the current tab context bounded by the caller's deadline.
func (b *Browser) tab(ctx context.Context) (context.Context, context.CancelFunc) {
	tctx, cancel := context.WithTimeout(b.tabCtx, b.cfg.PageTimeout)
	stop := context.AfterFunc(ctx, cancel)
	return tctx, func() { stop(); cancel() }
}

// BaseURL returns the configured site root.
func (b *Browser) BaseURL() string { return b.cfg.BaseURL }

// Login signs the account in through the login modal and verifies the
// balance widget appears.
func (b *Browser) Login(ctx context.Context) error {
	slog.Info("Logging in to betway", "base_url", b.cfg.BaseURL, "username", maskAccount(b.cfg.Username))

	tctx, cancel := b.tab(ctx)
	defer cancel()

	err := chromedp.Run(tctx,
		chromedp.Navigate(b.cfg.BaseURL+"/sport/soccer"),
		chromedp.Sleep(3*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to open landing page: %w", err)
	}

	b.dismissPopups(ctx)

	if err := b.clickFirst(ctx, loginButtonSelectors); err != nil {
		return fmt.Errorf("login button not found: %w", err)
	}

	tctx, cancel = b.tab(ctx)
	defer cancel()
	err = chromedp.Run(tctx,
		chromedp.Sleep(1500*time.Millisecond),
		chromedp.WaitVisible(`input[placeholder="Mobile Number"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[placeholder="Mobile Number"]`, b.cfg.Username, chromedp.ByQuery),
		chromedp.SendKeys(`input[placeholder="Enter Password"]`, b.cfg.Password, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	// Balance appearing in the header is the login success signal.
	var loggedIn bool
	for attempt := 0; attempt < 5 && !loggedIn; attempt++ {
		tctx, cancel = b.tab(ctx)
		err = chromedp.Run(tctx,
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(`[...document.querySelectorAll('strong')].some(el => el.textContent.includes('Balance'))`, &loggedIn),
		)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to check login state: %w", err)
		}
	}
	if !loggedIn {
		return fmt.Errorf("login not confirmed, balance widget never appeared")
	}

	b.dismissPopups(ctx)
	slog.Info("Login successful")
	return nil
}

// Reset tears down the current tab and opens a fresh logged-in one.
func (b *Browser) Reset(ctx context.Context) error {
	slog.Info("Recreating browser tab")
	b.tabCancel()
	if err := b.newTab(); err != nil {
		return err
	}
	return b.Login(ctx)
}

// Close shuts the tab and the Chrome process down.
func (b *Browser) Close() {
	b.tabCancel()
	b.allocCancel()
}

var loginButtonSelectors = []string{
	`button#login-btn`,
	`button[aria-label="Login"]`,
	`button[data-testid="login-button"]`,
	`a[href*="login"]`,
}

var popupCloseSelectors = []string{
	`svg#modal-close-btn`,
	`button[aria-label="Close"]`,
	`button[aria-label="close"]`,
	`div[role="dialog"] button[class*="close"]`,
}

// clickFirst tries each selector with a short timeout and clicks the first
// one that is present and visible.
func (b *Browser) clickFirst(ctx context.Context, selectors []string) error {
	for _, sel := range selectors {
		tctx, cancel := context.WithTimeout(b.tabCtx, 3*time.Second)
		err := chromedp.Run(tctx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("none of %d selectors matched a visible element", len(selectors))
}

// dismissPopups sweeps promo and cookie modals. Best effort: the site does
// not always show them and a leftover modal surfaces later as a click
// failure anyway.
func (b *Browser) dismissPopups(ctx context.Context) {
	for _, sel := range popupCloseSelectors {
		tctx, cancel := context.WithTimeout(b.tabCtx, 2*time.Second)
		err := chromedp.Run(tctx,
			chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible),
			chromedp.Sleep(500*time.Millisecond),
		)
		cancel()
		if err == nil {
			slog.Debug("Dismissed popup", "selector", sel)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func maskAccount(username string) string {
	if len(username) <= 4 {
		return "***"
	}
	return username[:2] + strings.Repeat("*", len(username)-4) + username[len(username)-2:]
}
