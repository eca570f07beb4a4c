// Package memory provides an in-memory Page implementation for tests. It
// simulates navigation, element visibility, and URL transitions without a
// browser, and evaluates javascript with an embedded interpreter.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/weblab-dev/oauth-flow-runner/pkg/core"
)

const pollInterval = 10 * time.Millisecond

// Element is a scripted page element. Builder methods configure its
// behavior; the exported records let tests assert what the flow did to it.
type Element struct {
	page    *Page
	visible bool

	// set by actions
	TypedValue    string
	PressedKeys   []string
	Selected      []string
	Files         []string
	ClickCount    int
	clickRedirect string

	ClickErr error
	TypeErr  error
}

// Visible marks the element visible so FindVisible can return it.
func (e *Element) Visible() *Element {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.visible = true
	return e
}

// Hidden marks the element not visible.
func (e *Element) Hidden() *Element {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.visible = false
	return e
}

// ClickRedirects makes a click move the page to url, as a real submit
// button would.
func (e *Element) ClickRedirects(url string) *Element {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.clickRedirect = url
	return e
}

func (e *Element) Click() error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.ClickCount++
	if e.clickRedirect != "" {
		e.page.setURLLocked(e.clickRedirect)
	}
	return nil
}

func (e *Element) Type(text string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if e.TypeErr != nil {
		return e.TypeErr
	}
	e.TypedValue = text
	return nil
}

func (e *Element) Press(key string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.PressedKeys = append(e.PressedKeys, key)
	return nil
}

func (e *Element) SelectOptions(values []string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.Selected = append([]string(nil), values...)
	return nil
}

func (e *Element) SetFiles(paths []string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.Files = append([]string(nil), paths...)
	return nil
}

// Page is a scripted in-memory core.Page.
type Page struct {
	mu       sync.Mutex
	url      string
	navCount int
	elements map[string]*Element

	NavigateErr error
	Navigations []string
}

// NewPage creates an empty page.
func NewPage() *Page {
	return &Page{elements: make(map[string]*Element)}
}

// AddElement registers a visible element reachable under selector.
func (p *Page) AddElement(selector string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := &Element{page: p, visible: true}
	p.elements[selector] = el
	return el
}

// SetURL moves the page to url without counting as a navigation.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

func (p *Page) setURLLocked(url string) {
	p.url = url
	p.navCount++
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.Navigations = append(p.Navigations, url)
	p.setURLLocked(url)
	return nil
}

func (p *Page) FindVisible(ctx context.Context, selectors []string, timeout time.Duration) (core.Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.mu.Lock()
		for _, sel := range selectors {
			if el, ok := p.elements[sel]; ok && el.visible {
				p.mu.Unlock()
				return el, nil
			}
		}
		p.mu.Unlock()
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("no visible element for %v within %s", selectors, timeout)
		}
		time.Sleep(pollInterval)
	}
}

func (p *Page) Evaluate(ctx context.Context, js string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	vm := goja.New()
	v, err := vm.RunString(js)
	if err != nil {
		return "", fmt.Errorf("javascript evaluation failed: %w", err)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", nil
	}
	return v.String(), nil
}

func (p *Page) CurrentURL() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *Page) WaitURLContains(ctx context.Context, substr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.mu.Lock()
		current := p.url
		p.mu.Unlock()
		if strings.Contains(current, substr) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("url %q did not contain %q within %s", current, substr, timeout)
		}
		time.Sleep(pollInterval)
	}
}

func (p *Page) ExpectNavigation(ctx context.Context, timeout time.Duration) func() error {
	p.mu.Lock()
	armed := p.navCount
	p.mu.Unlock()
	return func() error {
		deadline := time.Now().Add(timeout)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.mu.Lock()
			count := p.navCount
			p.mu.Unlock()
			if count > armed {
				return nil
			}
			if time.Now().After(deadline) {
				// Navigation waits are best effort.
				return nil
			}
			time.Sleep(pollInterval)
		}
	}
}

// Session wraps a Page behind core.Session and records Close calls.
type Session struct {
	P      *Page
	Closed int
}

func (s *Session) Page() core.Page { return s.P }

func (s *Session) Close() error {
	s.Closed++
	return nil
}

// Launcher hands out scripted sessions. Err, when set, makes Launch fail
// with a SessionLaunchError.
type Launcher struct {
	Session  *Session
	Err      error
	Launches int
}

func (l *Launcher) Launch(ctx context.Context, browser core.BrowserOptions, page core.PageOptions) (core.Session, error) {
	l.Launches++
	if l.Err != nil {
		return nil, &core.SessionLaunchError{Cause: l.Err}
	}
	if l.Session == nil {
		l.Session = &Session{P: NewPage()}
	}
	return l.Session, nil
}
