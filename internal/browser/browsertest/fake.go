// Package browsertest provides an in-memory browser.Driver for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/linkedin-connect/internal/browser"
)

// Never marks an element that does not appear before the caller's deadline.
const Never time.Duration = -1

// Page is a scripted browser.Page. Elements are keyed by selector (for
// WaitVisible, Fill, Click) or by pattern (for ClickText); the value is how
// long after the call the element shows up. Missing keys behave like Never
// for waits and succeed immediately for Fill and Click.
type Page struct {
	mu sync.Mutex

	// Appear schedules elements for WaitVisible and ClickText.
	Appear map[string]time.Duration
	// NavDelay is how long each Navigate takes, by URL.
	NavDelay map[string]time.Duration
	// Labels are the accessible labels of the page's buttons.
	Labels []string
	// Fail makes the action on the given selector or pattern fail.
	Fail map[string]error
	// Panic makes the action on the given selector or pattern panic.
	Panic string

	calls     []string
	filled    map[string]string
	activated []string
}

// NewPage returns an empty page where nothing ever appears.
func NewPage() *Page {
	return &Page{
		Appear:   map[string]time.Duration{},
		NavDelay: map[string]time.Duration{},
		Fail:     map[string]error{},
		filled:   map[string]string{},
	}
}

func (p *Page) record(call, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call+":"+key)
	if p.Panic != "" && p.Panic == key {
		panic(fmt.Sprintf("browsertest: scripted panic on %s", key))
	}
	return p.Fail[key]
}

func (p *Page) delay(key string, table map[string]time.Duration, fallback time.Duration) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d, ok := table[key]; ok {
		return d
	}
	return fallback
}

func wait(ctx context.Context, d time.Duration) error {
	if d == Never {
		<-ctx.Done()
		return ctx.Err()
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Page) Navigate(ctx context.Context, url string, until browser.WaitUntil) error {
	if err := p.record("navigate", url); err != nil {
		return err
	}
	return wait(ctx, p.delay(url, p.NavDelay, 0))
}

func (p *Page) Fill(ctx context.Context, selector, text string) error {
	if err := p.record("fill", selector); err != nil {
		return err
	}
	p.mu.Lock()
	p.filled[selector] = text
	p.mu.Unlock()
	return ctx.Err()
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := p.record("click", selector); err != nil {
		return err
	}
	return ctx.Err()
}

func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	if err := p.record("wait", selector); err != nil {
		return err
	}
	return wait(ctx, p.delay(selector, p.Appear, Never))
}

func (p *Page) ClickText(ctx context.Context, selector, pattern string) error {
	if err := p.record("clicktext", pattern); err != nil {
		return err
	}
	return wait(ctx, p.delay(pattern, p.Appear, Never))
}

func (p *Page) ActivateByLabel(ctx context.Context, match browser.LabelMatch) (bool, error) {
	if err := p.record("activate", "labels"); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, label := range p.Labels {
		if label != "" && match(label) {
			p.activated = append(p.activated, label)
			return true, nil
		}
	}
	return false, nil
}

// Calls returns every action in order, formatted as "kind:key".
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Filled returns the last text filled into selector.
func (p *Page) Filled(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filled[selector]
}

// Activated returns the labels of the controls ActivateByLabel clicked.
func (p *Page) Activated() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.activated...)
}

// Driver hands out sessions over the same scripted Page and counts the
// session lifecycle.
type Driver struct {
	Page *Page
	// AcquireErr makes every Acquire fail.
	AcquireErr error

	mu       sync.Mutex
	acquired int
	released int
}

// NewDriver wraps page in a Driver.
func NewDriver(page *Page) *Driver {
	return &Driver{Page: page}
}

func (d *Driver) Acquire(ctx context.Context) (browser.Session, error) {
	if d.AcquireErr != nil {
		return nil, d.AcquireErr
	}
	d.mu.Lock()
	d.acquired++
	d.mu.Unlock()
	return &session{driver: d}, nil
}

// Acquired reports how many sessions were handed out.
func (d *Driver) Acquired() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquired
}

// Released reports how many Close calls sessions received.
func (d *Driver) Released() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

type session struct {
	driver *Driver
	closed bool
}

func (s *session) Page() browser.Page {
	return s.driver.Page
}

// ErrClosedTwice is returned by a second Close on the same session.
var ErrClosedTwice = errors.New("browsertest: session closed twice")

func (s *session) Close() error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	s.driver.released++
	if s.closed {
		return ErrClosedTwice
	}
	s.closed = true
	return nil
}
