// Package session provides the single browser session the pipeline runs on:
// rendered-page fetching, element queries, and the login sub-protocol.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/tiago/land-scout/internal/logging"
)

// LoginState tracks the session's position in the login sub-protocol.
type LoginState string

// Login protocol states. A session starts anonymous; a login attempt moves
// it to LoginAttempted and settles in Authenticated or LoginFailed.
const (
	StateAnonymous      LoginState = "ANONYMOUS"
	StateLoginAttempted LoginState = "LOGIN_ATTEMPTED"
	StateAuthenticated  LoginState = "AUTHENTICATED"
	StateLoginFailed    LoginState = "LOGIN_FAILED"
)

// userAgents is a small rotation pool for the browser context.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

// Options configures a browser session.
type Options struct {
	LoginURL        string
	NavTimeout      time.Duration
	SelectorTimeout time.Duration
	Logger          *logging.Logger
}

// Session owns one headless browser context. It is a single mutable
// resource: callers must not navigate it concurrently.
type Session struct {
	browserCtx context.Context
	cancels    []context.CancelFunc
	opts       Options
	logger     *logging.Logger
	state      LoginState
}

// New launches a headless browser and returns a ready session.
// The returned session must be closed by the caller.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.NavTimeout == 0 {
		opts.NavTimeout = 30 * time.Second
	}
	if opts.SelectorTimeout == 0 {
		opts.SelectorTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.New(false)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgents[rand.Intn(len(userAgents))]),
	)
	if bin := findChromeBinary(); bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	// Start the browser now so a missing binary fails the run up front
	// instead of on the first navigation.
	startCtx, cancelStart := context.WithTimeout(browserCtx, opts.NavTimeout)
	defer cancelStart()
	if err := chromedp.Run(startCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Session{
		browserCtx: browserCtx,
		cancels:    []context.CancelFunc{cancelBrowser, cancelAlloc},
		opts:       opts,
		logger:     opts.Logger,
		state:      StateAnonymous,
	}, nil
}

// Close shuts the browser down.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// State returns the current login state.
func (s *Session) State() LoginState {
	return s.state
}

// Authenticated reports whether the login sub-protocol succeeded.
func (s *Session) Authenticated() bool {
	return s.state == StateAuthenticated
}

// Navigate loads a URL and waits for DOM content, bounded by NavTimeout.
func (s *Session) Navigate(url string) error {
	ctx, cancel := context.WithTimeout(s.browserCtx, s.opts.NavTimeout)
	defer cancel()

	if err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// RenderedHTML navigates to a URL and returns the rendered document.
// settle gives client-side rendering a moment to finish before capture.
func (s *Session) RenderedHTML(url string, settle time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(s.browserCtx, s.opts.NavTimeout+settle)
	defer cancel()

	var html string
	if err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settle),
		chromedp.OuterHTML("html", &html),
	); err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

// WaitVisible blocks until the selector is visible on the current page,
// bounded by SelectorTimeout.
func (s *Session) WaitVisible(selector string) error {
	ctx, cancel := context.WithTimeout(s.browserCtx, s.opts.SelectorTimeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

// Text returns the text content of the first element matching selector.
func (s *Session) Text(selector string) (string, error) {
	ctx, cancel := context.WithTimeout(s.browserCtx, s.opts.SelectorTimeout)
	defer cancel()

	var text string
	if err := chromedp.Run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("text of %s: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

// Texts returns the text content of every element matching selector.
func (s *Session) Texts(selector string) ([]string, error) {
	ctx, cancel := context.WithTimeout(s.browserCtx, s.opts.SelectorTimeout)
	defer cancel()

	var texts []string
	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(el => el.textContent.trim())`,
		selector)
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &texts)); err != nil {
		return nil, fmt.Errorf("texts of %s: %w", selector, err)
	}
	return texts, nil
}

// Click clicks the first element matching selector if it is visible.
func (s *Session) Click(selector string) error {
	ctx, cancel := context.WithTimeout(s.browserCtx, s.opts.SelectorTimeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Click(selector, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// OuterHTML captures the current page without navigating.
func (s *Session) OuterHTML() (string, error) {
	ctx, cancel := context.WithTimeout(s.browserCtx, s.opts.SelectorTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("capture page: %w", err)
	}
	return html, nil
}

// CurrentURL returns the URL of the page the session is on.
func (s *Session) CurrentURL() (string, error) {
	ctx, cancel := context.WithTimeout(s.browserCtx, s.opts.SelectorTimeout)
	defer cancel()

	var url string
	if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("current url: %w", err)
	}
	return url, nil
}

// Screenshot writes a full-page capture to the given path. Failures are
// logged, not returned: screenshots are diagnostics only.
func (s *Session) Screenshot(path string) {
	ctx, cancel := context.WithTimeout(s.browserCtx, s.opts.SelectorTimeout)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 80)); err != nil {
		s.logger.Warn("[session] Screenshot failed: %v", err)
		return
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		s.logger.Warn("[session] Screenshot write failed: %v", err)
	}
}

// DismissCookieBanner clicks the consent button if one is present.
// Absence is not an error.
func (s *Session) DismissCookieBanner() {
	ctx, cancel := context.WithTimeout(s.browserCtx, 5*time.Second)
	defer cancel()

	_ = chromedp.Run(ctx, chromedp.Click(
		`button[id*="accept"], button[class*="accept"], #didomi-notice-agree-button`,
		chromedp.NodeVisible, chromedp.ByQuery))
}

// Login runs the login sub-protocol: fill the form, submit, then poll the
// rendered page for the username as an account-identity marker. The marker
// match is case-insensitive containment. A failed login leaves the session
// usable anonymously; callers decide whether that is fatal.
func (s *Session) Login(username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("login requires credentials")
	}

	s.state = StateLoginAttempted
	s.logger.Info("[session] Attempting login as %s", username)

	ctx, cancel := context.WithTimeout(s.browserCtx, s.opts.NavTimeout)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.Navigate(s.opts.LoginURL),
		chromedp.WaitVisible(`input[name="email"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="email"]`, username, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="password"]`, password, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.NodeVisible, chromedp.ByQuery),
	)
	if err != nil {
		s.state = StateLoginFailed
		return fmt.Errorf("login form submission: %w", err)
	}

	if s.pollForIdentity(username, s.opts.SelectorTimeout) {
		s.state = StateAuthenticated
		s.logger.Info("[session] Login verified")
		return nil
	}

	s.state = StateLoginFailed
	return fmt.Errorf("login not verified: identity marker for %q did not appear", username)
}

// pollForIdentity re-reads the page body until it contains the username or
// the deadline passes.
func (s *Session) pollForIdentity(username string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	needle := strings.ToLower(username)

	for time.Now().Before(deadline) {
		var body string
		ctx, cancel := context.WithTimeout(s.browserCtx, 2*time.Second)
		err := chromedp.Run(ctx, chromedp.Text("body", &body, chromedp.ByQuery))
		cancel()
		if err == nil && strings.Contains(strings.ToLower(body), needle) {
			return true
		}
		time.Sleep(500 * time.Millisecond)
	}
	return false
}

// findChromeBinary locates a Chrome/Chromium binary, preferring CHROME_BIN.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
