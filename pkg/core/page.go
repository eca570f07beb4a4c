// Package core defines the capability interfaces and shared types the flow
// executor operates on. Implementations: rod-backed browser, in-memory page.
// The executor handles flow logic; a Page just performs individual actions.
package core

import (
	"context"
	"time"
)

// Element is a handle to a located, visible page element.
type Element interface {
	// Click performs a single left click on the element.
	Click() error

	// Type replaces the element's current value with the given text.
	Type(text string) error

	// Press sends a single named key (Enter, Tab, Escape, ...) to the element.
	Press(key string) error

	// SelectOptions selects the given options of a <select> element.
	SelectOptions(values []string) error

	// SetFiles attaches local files to a file input.
	SetFiles(paths []string) error
}

// Page is the minimal browser capability surface the executor needs.
type Page interface {
	// Navigate loads the given URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// FindVisible tries each selector in order, repeatedly, until one
	// resolves to a visible element or the timeout elapses.
	FindVisible(ctx context.Context, selectors []string, timeout time.Duration) (Element, error)

	// Evaluate runs JavaScript in the page and returns the result as a string.
	Evaluate(ctx context.Context, js string) (string, error)

	// CurrentURL returns the page's current location.
	CurrentURL() (string, error)

	// WaitURLContains blocks until the current URL contains substr or the
	// timeout elapses.
	WaitURLContains(ctx context.Context, substr string, timeout time.Duration) error

	// ExpectNavigation arms a navigation listener and returns a wait
	// function. Arm it before the triggering action, invoke the returned
	// function after. The wait returns once a navigation completes or the
	// timeout elapses; it errors only on context cancellation.
	ExpectNavigation(ctx context.Context, timeout time.Duration) func() error
}

// Session owns one browser instance and one page for a single run.
// Sessions are never shared between runs.
type Session interface {
	Page() Page
	Close() error
}

// Launcher acquires browser sessions.
type Launcher interface {
	Launch(ctx context.Context, browser BrowserOptions, page PageOptions) (Session, error)
}

// BrowserOptions configure the browser instance backing a session.
type BrowserOptions struct {
	// Headless defaults to true when nil.
	Headless    *bool  `yaml:"headless" json:"headless,omitempty"`
	SlowMoMs    int    `yaml:"slow_mo" json:"slow_mo,omitempty"`
	NoSandbox   bool   `yaml:"no_sandbox" json:"no_sandbox,omitempty"`
	UserDataDir string `yaml:"user_data_dir" json:"user_data_dir,omitempty"`
}

// IsHeadless resolves the headless default.
func (o BrowserOptions) IsHeadless() bool {
	return o.Headless == nil || *o.Headless
}

// PageOptions configure the page within a session.
type PageOptions struct {
	UserAgent string `yaml:"user_agent" json:"user_agent,omitempty"`
	Width     int    `yaml:"width" json:"width,omitempty"`
	Height    int    `yaml:"height" json:"height,omitempty"`
}
