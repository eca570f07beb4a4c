// Package browser implements the Page abstraction on top of a real Chromium
// instance driven over the DevTools protocol.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/weblab-dev/oauth-flow-runner/pkg/core"
)

const (
	// probeTimeout bounds a single candidate-selector lookup so fallback
	// selectors still get a turn within the step timeout.
	probeTimeout = 3 * time.Second

	urlPollInterval = 500 * time.Millisecond
)

// Launcher starts Chromium sessions.
type Launcher struct {
	logger zerolog.Logger
}

// NewLauncher creates a Chromium launcher.
func NewLauncher(logger zerolog.Logger) *Launcher {
	return &Launcher{logger: logger}
}

// Launch starts a browser, opens a blank page, and applies the page options.
func (l *Launcher) Launch(ctx context.Context, opts core.BrowserOptions, pageOpts core.PageOptions) (core.Session, error) {
	ln := launcher.New().Headless(opts.IsHeadless())
	if opts.NoSandbox {
		ln = ln.NoSandbox(true)
	}
	if opts.UserDataDir != "" {
		ln = ln.UserDataDir(opts.UserDataDir)
	}

	controlURL, err := ln.Context(ctx).Launch()
	if err != nil {
		return nil, &core.SessionLaunchError{Cause: fmt.Errorf("failed to launch browser: %w", err)}
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if opts.SlowMoMs > 0 {
		b = b.SlowMotion(time.Duration(opts.SlowMoMs) * time.Millisecond)
	}
	if err := b.Connect(); err != nil {
		ln.Cleanup()
		return nil, &core.SessionLaunchError{Cause: fmt.Errorf("failed to connect to browser: %w", err)}
	}

	l.logger.Debug().Bool("headless", opts.IsHeadless()).Msg("browser launched")

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		ln.Cleanup()
		return nil, &core.SessionLaunchError{Cause: fmt.Errorf("failed to open page: %w", err)}
	}

	if err := applyPageOptions(page, pageOpts); err != nil {
		_ = b.Close()
		ln.Cleanup()
		return nil, &core.SessionLaunchError{Cause: err}
	}

	return &Session{
		browser:  b,
		launcher: ln,
		page:     &Page{page: page, logger: l.logger},
	}, nil
}

func applyPageOptions(page *rod.Page, opts core.PageOptions) error {
	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}
	if opts.Width > 0 && opts.Height > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.Width,
			Height:            opts.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			return fmt.Errorf("failed to set viewport: %w", err)
		}
	}
	return nil
}

// Session owns one browser process and its single automation page.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *Page
}

func (s *Session) Page() core.Page { return s.page }

// Close shuts the browser down and reaps the process.
func (s *Session) Close() error {
	err := s.browser.Close()
	s.launcher.Cleanup()
	return err
}

// Page adapts a rod page to core.Page.
type Page struct {
	page   *rod.Page
	logger zerolog.Logger
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return nil
}

// FindVisible tries each selector in order, retrying the whole list until a
// visible match appears or the timeout elapses.
func (p *Page) FindVisible(ctx context.Context, selectors []string, timeout time.Duration) (core.Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		for _, sel := range selectors {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			probe := probeTimeout
			if remaining := time.Until(deadline); remaining < probe {
				probe = remaining
			}
			if probe <= 0 {
				break
			}
			el, err := p.page.Context(ctx).Timeout(probe).Element(sel)
			if err != nil {
				p.logger.Debug().Str("selector", sel).Msg("selector not found, trying next")
				continue
			}
			visible, err := el.Visible()
			if err != nil || !visible {
				continue
			}
			return &element{el: el.CancelTimeout()}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("no visible element for any of %v within %s", selectors, timeout)
		}
	}
}

func (p *Page) Evaluate(ctx context.Context, js string) (string, error) {
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return "", fmt.Errorf("javascript evaluation failed: %w", err)
	}
	if res.Value.Nil() {
		return "", nil
	}
	return res.Value.Str(), nil
}

func (p *Page) CurrentURL() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", fmt.Errorf("failed to read page info: %w", err)
	}
	return info.URL, nil
}

// WaitURLContains polls the page URL until it contains substr. Polling is
// deliberate: OAuth redirect chains hop through several URLs and a
// navigation event can be missed between hops.
func (p *Page) WaitURLContains(ctx context.Context, substr string, timeout time.Duration) error {
	ticker := time.NewTicker(urlPollInterval)
	defer ticker.Stop()
	expired := time.After(timeout)

	for {
		current, err := p.CurrentURL()
		if err == nil && strings.Contains(current, substr) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-expired:
			return fmt.Errorf("url %q did not contain %q within %s", current, substr, timeout)
		case <-ticker.C:
		}
	}
}

func (p *Page) ExpectNavigation(ctx context.Context, timeout time.Duration) func() error {
	wait := p.page.Context(ctx).Timeout(timeout).WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	return func() error {
		// The wait is best effort. Some flows dispatch no lifecycle event
		// for client-side redirects, so expiry is not an error.
		wait()
		return ctx.Err()
	}
}

type element struct {
	el *rod.Element
}

func (e *element) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

// Type focuses the element, clears any prefilled text, and types the value.
func (e *element) Type(text string) error {
	if err := e.el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to focus element: %w", err)
	}
	if err := e.el.SelectAllText(); err != nil {
		return fmt.Errorf("failed to select existing text: %w", err)
	}
	if err := e.el.Input(text); err != nil {
		return fmt.Errorf("failed to input text: %w", err)
	}
	return nil
}

var keyNames = map[string]input.Key{
	"Enter":      input.Enter,
	"Tab":        input.Tab,
	"Escape":     input.Escape,
	"Backspace":  input.Backspace,
	"ArrowDown":  input.ArrowDown,
	"ArrowUp":    input.ArrowUp,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
}

func (e *element) Press(key string) error {
	k, ok := keyNames[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	return e.el.Type(k)
}

func (e *element) SelectOptions(values []string) error {
	return e.el.Select(values, true, rod.SelectorTypeText)
}

func (e *element) SetFiles(paths []string) error {
	return e.el.SetFiles(paths)
}
