// Package browser drives a live Chromium page through playwright: it reads
// visible text and form controls, fills values and reports what the user
// types.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/smartfill/smartfill/internal/config"
	"github.com/smartfill/smartfill/internal/learning"
)

// captureBuffer bounds observations waiting for the observer.
const captureBuffer = 64

// Session owns one browser and one page.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	cfg     config.BrowserConfig
	logger  *zap.Logger

	captureOnce sync.Once
	observed    chan learning.Observation
}

// Launch starts playwright and opens a blank page.
func Launch(cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("creating page: %w", err)
	}
	if cfg.Timeout > 0 {
		page.SetDefaultTimeout(float64(cfg.Timeout.Milliseconds()))
	}

	return &Session{
		pw:       pw,
		browser:  browser,
		page:     page,
		cfg:      cfg,
		logger:   logger,
		observed: make(chan learning.Observation, captureBuffer),
	}, nil
}

// Close cleans up browser resources
func (s *Session) Close() error {
	if s.browser != nil {
		s.browser.Close()
	}
	if s.pw != nil {
		return s.pw.Stop()
	}
	return nil
}

// Open navigates to url and waits for the DOM to load.
func (s *Session) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// SetContent replaces the page with html.
func (s *Session) SetContent(ctx context.Context, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.SetContent(html)
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.page.URL()
}

// VisibleText returns up to limit characters of lower-cased visible text.
func (s *Session) VisibleText(ctx context.Context, limit int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out, err := s.page.Evaluate(visibleTextScript, limit)
	if err != nil {
		return "", fmt.Errorf("reading visible text: %w", err)
	}
	text, _ := out.(string)
	return text, nil
}

// Controls returns the page's form controls in document order.
func (s *Session) Controls(ctx context.Context) ([]*Control, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	handles, err := s.page.QuerySelectorAll(controlSelector)
	if err != nil {
		return nil, fmt.Errorf("querying controls: %w", err)
	}

	out, err := s.page.Evaluate(describeScript)
	if err != nil {
		return nil, fmt.Errorf("describing controls: %w", err)
	}
	var descs []controlDesc
	if err := decode(out, &descs); err != nil {
		return nil, fmt.Errorf("decoding controls: %w", err)
	}
	if len(descs) != len(handles) {
		return nil, fmt.Errorf("page changed while reading controls: %d handles, %d descriptions", len(handles), len(descs))
	}

	controls := make([]*Control, len(handles))
	for i, h := range handles {
		controls[i] = &Control{handle: h, desc: descs[i]}
	}
	return controls, nil
}

// Capture reports every change, blur and input event on the page, now and
// after later navigations, to fn. fn runs on its own goroutine until ctx is
// done. Capture may only be installed once per session.
func (s *Session) Capture(ctx context.Context, fn func(context.Context, learning.Observation)) error {
	var err error
	installed := false
	s.captureOnce.Do(func() {
		installed = true
		err = s.installCapture()
	})
	if !installed {
		return fmt.Errorf("capture already installed")
	}
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case obs := <-s.observed:
				fn(ctx, obs)
			}
		}
	}()
	return nil
}

func (s *Session) installCapture() error {
	err := s.page.ExposeBinding(BindingName, func(_ *playwright.BindingSource, args ...interface{}) interface{} {
		if len(args) == 0 {
			return nil
		}
		var obs learning.Observation
		if err := decode(args[0], &obs); err != nil {
			s.logger.Warn("malformed observation", zap.Error(err))
			return nil
		}
		select {
		case s.observed <- obs:
		default:
			s.logger.Warn("dropping observation, observer is behind", zap.String("kind", obs.Kind))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("exposing binding: %w", err)
	}

	script := captureScript
	if err := s.page.AddInitScript(playwright.Script{Content: &script}); err != nil {
		return fmt.Errorf("adding capture script: %w", err)
	}
	if _, err := s.page.Evaluate(captureScript); err != nil {
		return fmt.Errorf("installing capture listeners: %w", err)
	}
	return nil
}

// Toast shows msg in a self-dismissing notice.
func (s *Session) Toast(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := s.cfg.ToastDuration
	if d <= 0 {
		d = 1800 * time.Millisecond
	}
	if _, err := s.page.Evaluate(toastScript, []interface{}{msg, d.Milliseconds()}); err != nil {
		return fmt.Errorf("showing toast: %w", err)
	}
	return nil
}

// Notify shows msg as a toast, logging failures.
func (s *Session) Notify(ctx context.Context, msg string) {
	if err := s.Toast(ctx, msg); err != nil {
		s.logger.Debug("toast failed", zap.String("msg", msg), zap.Error(err))
	}
}

// decode converts an evaluation result into v.
func decode(in interface{}, v interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
