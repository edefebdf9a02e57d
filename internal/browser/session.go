// Package browser owns the playwright lifecycle for a single headless
// chromium page: install, launch, context with a fixed viewport, console
// forwarding, and aggregated teardown.
package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	log "github.com/sirupsen/logrus"
)

// Options configure a session.
type Options struct {
	Headless bool
	Width    int
	Height   int
	FullPage bool // capture whole pages instead of the viewport
	Verbose  bool // verbose browser install output
}

// Session is a running browser with one open page. It satisfies the
// verifier's Browser interface.
type Session struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	context  playwright.BrowserContext
	page     playwright.Page
	fullPage bool
}

// Install provisions the chromium runtime. Start calls it as well, so this
// is only needed to pre-provision hosts.
func Install(verbose bool) error {
	return playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  verbose,
	})
}

// Start installs chromium if needed, launches it and opens a page with the
// requested viewport. Console messages and page errors are forwarded to
// the log.
func Start(opts Options) (*Session, error) {
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 720
	}

	if err := Install(opts.Verbose); err != nil {
		return nil, fmt.Errorf("install browsers: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		if serr := pw.Stop(); serr != nil {
			log.Debugf("Error stopping playwright after launch failure: %v", serr)
		}
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	log.Debug("Browser launched successfully.")

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.Width, Height: opts.Height},
	})
	if err != nil {
		if berr := browser.Close(); berr != nil {
			log.Debugf("Error closing browser after context creation failed: %v", berr)
		}
		if serr := pw.Stop(); serr != nil {
			log.Debugf("Error stopping playwright: %v", serr)
		}
		return nil, fmt.Errorf("new context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		s := &Session{pw: pw, browser: browser, context: context}
		if cerr := s.Close(); cerr != nil {
			log.Debugf("Error closing session after page creation failed: %v", cerr)
		}
		return nil, fmt.Errorf("new page: %w", err)
	}

	page.OnConsole(func(msg playwright.ConsoleMessage) {
		log.Infof("Browser Console: %s", msg.Text())
	})
	page.OnPageError(func(err error) {
		log.Warnf("Browser Page Error: %v", err)
	})

	return &Session{pw: pw, browser: browser, context: context, page: page, fullPage: opts.FullPage}, nil
}

// Page exposes the underlying playwright page.
func (s *Session) Page() playwright.Page {
	return s.page
}

// Navigate opens the URL and waits for the load event.
func (s *Session) Navigate(url string) error {
	_, err := s.page.Goto(url)
	return err
}

// WaitIdle blocks until no network activity is in flight or the timeout
// elapses.
func (s *Session) WaitIdle(timeout time.Duration) error {
	return s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

// Screenshot captures the page to a PNG file.
func (s *Session) Screenshot(path string) error {
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(s.fullPage),
	})
	return err
}

// CountRole returns how many elements match the ARIA role and accessible
// name.
func (s *Session) CountRole(role, name string) (int, error) {
	return s.locator(role, name).Count()
}

// ClickRole clicks the element with the ARIA role and accessible name.
func (s *Session) ClickRole(role, name string) error {
	return s.locator(role, name).Click()
}

func (s *Session) locator(role, name string) playwright.Locator {
	return s.page.GetByRole(playwright.AriaRole(role), playwright.PageGetByRoleOptions{Name: name})
}

// Settle pauses in-page so renders and transitions can finish.
func (s *Session) Settle(d time.Duration) {
	s.page.WaitForTimeout(float64(d.Milliseconds()))
}

// EvalJSON evaluates a script that must return a JSON string.
func (s *Session) EvalJSON(js string) (string, error) {
	v, err := s.page.Evaluate(js)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected evaluation result type %T", v)
	}
	return str, nil
}

// StoredValue looks up the first matching localStorage entry across all
// origins of the context storage state.
func (s *Session) StoredValue(names ...string) (string, bool, error) {
	state, err := s.context.StorageState()
	if err != nil {
		return "", false, err
	}
	for _, origin := range state.Origins {
		for _, entry := range origin.LocalStorage {
			for _, name := range names {
				if entry.Name == name {
					return entry.Value, true, nil
				}
			}
		}
	}
	return "", false, nil
}

// Close tears the session down and aggregates the first error: context,
// browser, then the playwright driver itself.
func (s *Session) Close() error {
	var firstErr error
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			log.Debugf("Error closing context: %v", err)
			firstErr = err
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			log.Debugf("Error closing browser: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			log.Debugf("Error stopping playwright: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
