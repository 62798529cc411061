// Package browser owns browser sessions for the connection workflow.
//
// A Driver hands out one isolated Session per attempt. The workflow only
// talks to the Page capability set below, so it can run against a real
// Chrome (RodDriver) or an in-memory fake in tests.
package browser

import (
	"context"
	"strings"
)

// WaitUntil selects which page lifecycle point Navigate waits for.
type WaitUntil int

const (
	// WaitLoad waits for the window load event.
	WaitLoad WaitUntil = iota
	// WaitDOMContentLoaded waits only for the initial DOM parse.
	WaitDOMContentLoaded
)

func (w WaitUntil) String() string {
	if w == WaitDOMContentLoaded {
		return "domcontentloaded"
	}
	return "load"
}

// LabelMatch reports whether an accessible label identifies the wanted control.
type LabelMatch func(label string) bool

// SuffixMatch matches labels ending with suffix, ignoring surrounding whitespace.
func SuffixMatch(suffix string) LabelMatch {
	return func(label string) bool {
		return strings.HasSuffix(strings.TrimSpace(label), suffix)
	}
}

// Page is the set of DOM capabilities the workflow needs. Every call is
// bounded by ctx; an expired deadline surfaces as an error wrapping
// context.DeadlineExceeded.
type Page interface {
	// Navigate loads url and waits for the given lifecycle point.
	Navigate(ctx context.Context, url string, until WaitUntil) error
	// Fill replaces the value of the field matched by selector.
	Fill(ctx context.Context, selector, text string) error
	// Click activates the element matched by selector.
	Click(ctx context.Context, selector string) error
	// WaitVisible blocks until the element matched by selector is visible.
	WaitVisible(ctx context.Context, selector string) error
	// ClickText waits for an element matching selector whose text matches
	// the JS regex pattern, then activates it.
	ClickText(ctx context.Context, selector, pattern string) error
	// ActivateByLabel scans button-like elements for the first accessible
	// label accepted by match, scrolls it into view and clicks it. It
	// reports false when nothing matched.
	ActivateByLabel(ctx context.Context, match LabelMatch) (bool, error)
}

// Session is the exclusive handle on one browser instance and one page.
type Session interface {
	Page() Page
	// Close terminates the browser. It is safe to call more than once.
	Close() error
}

// Driver starts fresh, isolated sessions.
type Driver interface {
	Acquire(ctx context.Context) (Session, error)
}

// pickLabel returns the index of the first label accepted by match, or -1.
func pickLabel(labels []string, match LabelMatch) int {
	for i, label := range labels {
		if label != "" && match(label) {
			return i
		}
	}
	return -1
}
