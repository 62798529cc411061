// Package connection drives one connection request through a browser:
// sign in, open the profile, press Connect, add a note and send it.
//
// Each attempt owns its browser session from start to finish and ends in
// exactly one of two terminal states, Sent or Failed. There is no retry.
package connection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/linkedin-connect/internal/auth"
	"github.com/yourusername/linkedin-connect/internal/browser"
	"github.com/yourusername/linkedin-connect/internal/logger"
)

// SuccessMessage is returned by Connect when the request was sent.
const SuccessMessage = "Connection request sent!"

// State is a step of the workflow state machine.
type State string

const (
	StateIdle          State = "idle"
	StateLoggingIn     State = "logging_in"
	StateNavigating    State = "navigating"
	StateConnecting    State = "connecting"
	StateComposingNote State = "composing_note"
	StateSent          State = "sent"
	StateFailed        State = "failed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSent || s == StateFailed
}

// Timeouts holds the bounded waits and fixed pauses of an attempt.
type Timeouts struct {
	// LoginForm bounds loading the login page and submitting the form.
	LoginForm time.Duration
	// Login bounds the wait for the signed-in landmark.
	Login time.Duration
	// Navigation bounds the profile page's initial DOM parse.
	Navigation time.Duration
	// Settle is the pause after navigation for client-rendered content.
	Settle time.Duration
	// PreConnect is the pause before the connect control is searched.
	PreConnect time.Duration
	// Connect bounds the label scan and activation.
	Connect time.Duration
	// Note bounds the wait for the "Add a note" affordance.
	Note time.Duration
	// Send bounds filling the note and activating send.
	Send time.Duration
}

// DefaultTimeouts returns the bounds tuned for the live site.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		LoginForm:  30 * time.Second,
		Login:      15 * time.Second,
		Navigation: 30 * time.Second,
		Settle:     2 * time.Second,
		PreConnect: time.Second,
		Connect:    10 * time.Second,
		Note:       5 * time.Second,
		Send:       50 * time.Second,
	}
}

// Attempt is the record of one Run. It is never persisted.
type Attempt struct {
	ID         string
	ProfileURL string
	Message    string
	State      State
	// Err is a *Failure when State is StateFailed.
	Err        error
	History    []State
	StartedAt  time.Time
	FinishedAt time.Time

	log *zap.SugaredLogger
}

// Duration is how long the attempt took, session teardown excluded.
func (a *Attempt) Duration() time.Duration {
	return a.FinishedAt.Sub(a.StartedAt)
}

func (a *Attempt) transition(to State) {
	a.log.Infow("State transition", "from", a.State, "to", to)
	a.State = to
	a.History = append(a.History, to)
	if to.Terminal() {
		a.FinishedAt = time.Now()
	}
}

func (a *Attempt) fail(err error) {
	f, ok := err.(*Failure)
	if !ok {
		f = &Failure{State: a.State, Kind: ErrUnexpected, Cause: err}
	}
	a.Err = f
	a.log.Errorw("Connection attempt failed", "state", f.State, "reason", f.Reason(), "error", f.Cause)
	a.transition(StateFailed)
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeouts overrides DefaultTimeouts.
func WithTimeouts(t Timeouts) Option {
	return func(c *Controller) {
		c.timeouts = t
	}
}

// WithLabelMatch replaces the predicate used to find the connect control.
func WithLabelMatch(m browser.LabelMatch) Option {
	return func(c *Controller) {
		c.match = m
	}
}

// Controller runs connection attempts. It holds no mutable state, so one
// Controller can serve concurrent attempts; each gets its own session.
type Controller struct {
	driver   browser.Driver
	creds    auth.Credentials
	timeouts Timeouts
	match    browser.LabelMatch
}

// New creates a Controller that signs in with creds on sessions from driver.
func New(driver browser.Driver, creds auth.Credentials, opts ...Option) *Controller {
	c := &Controller{
		driver:   driver,
		creds:    creds,
		timeouts: DefaultTimeouts(),
		match:    browser.SuffixMatch(ConnectLabelSuffix),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect runs one attempt and returns SuccessMessage or its *Failure.
func (c *Controller) Connect(ctx context.Context, profileURL, message string) (string, error) {
	a := c.Run(ctx, profileURL, message)
	if a.Err != nil {
		return "", a.Err
	}
	return SuccessMessage, nil
}

// Run executes the workflow and returns the finished attempt. Cancelling
// ctx does not abort the attempt: only the bounded waits end it early.
func (c *Controller) Run(ctx context.Context, profileURL, message string) (a *Attempt) {
	id := uuid.NewString()
	// The attempt logger is called directly, not through the package wrappers.
	log := logger.With("attempt_id", id, "profile_url", profileURL).WithOptions(zap.AddCallerSkip(-1))
	a = &Attempt{
		ID:         id,
		ProfileURL: profileURL,
		Message:    message,
		State:      StateIdle,
		History:    []State{StateIdle},
		StartedAt:  time.Now(),
		log:        log,
	}
	ctx = context.WithoutCancel(ctx)

	sess, err := c.driver.Acquire(ctx)
	if err != nil {
		a.fail(fmt.Errorf("failed to acquire browser session: %w", err))
		return a
	}

	defer func() {
		if r := recover(); r != nil {
			a.fail(fmt.Errorf("panic: %v", r))
		}
		if err := sess.Close(); err != nil {
			a.log.Warnw("Failed to close browser session", "error", err)
		}
		a.log.Debugw("Browser session released")
	}()

	c.run(ctx, a, sess.Page())
	return a
}

func (c *Controller) run(ctx context.Context, a *Attempt, page browser.Page) {
	steps := []struct {
		state State
		do    func() error
	}{
		{StateLoggingIn, func() error { return c.login(ctx, page) }},
		{StateNavigating, func() error { return c.navigate(ctx, page, a.ProfileURL) }},
		{StateConnecting, func() error { return c.connect(ctx, page) }},
		{StateComposingNote, func() error { return c.composeNote(ctx, page, a.Message) }},
	}

	for _, step := range steps {
		a.transition(step.state)
		if err := step.do(); err != nil {
			a.fail(err)
			return
		}
	}

	a.transition(StateSent)
	a.log.Infow("Connection request sent", "duration", a.Duration())
}
