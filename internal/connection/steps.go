package connection

import (
	"context"
	"time"

	"github.com/yourusername/linkedin-connect/internal/auth"
	"github.com/yourusername/linkedin-connect/internal/browser"
	"github.com/yourusername/linkedin-connect/internal/logger"
)

const (
	// ConnectLabelSuffix ends the aria-label of the profile's Connect
	// button ("Invite Jane Doe to connect") whatever the prefix says.
	ConnectLabelSuffix = "to connect"

	addNotePattern    = `/Add a note/i`
	noteFieldSelector = "textarea[name='message']"
	sendPattern       = `/^\s*Send\s*$/i`
)

func (c *Controller) login(ctx context.Context, page browser.Page) error {
	err := auth.Login(ctx, page, c.creds, auth.Bounds{
		Form:     c.timeouts.LoginForm,
		Landmark: c.timeouts.Login,
	})
	if err != nil {
		return classify(StateLoggingIn, ErrAuthenticationTimeout, err)
	}
	return nil
}

func (c *Controller) navigate(ctx context.Context, page browser.Page, profileURL string) error {
	target, err := NormalizeProfileURL(profileURL)
	if err != nil {
		return &Failure{State: StateNavigating, Kind: ErrUnexpected, Cause: err}
	}

	logger.Info("Navigating to profile", "url", target)
	navCtx, cancel := context.WithTimeout(ctx, c.timeouts.Navigation)
	defer cancel()

	// The profile keeps streaming content long after the DOM is parsed,
	// so waiting for load or network idle is not an option.
	if err := page.Navigate(navCtx, target, browser.WaitDOMContentLoaded); err != nil {
		return classify(StateNavigating, ErrNavigationTimeout, err)
	}

	if err := pause(ctx, c.timeouts.Settle); err != nil {
		return classify(StateNavigating, ErrNavigationTimeout, err)
	}

	logger.Debug("Profile DOM loaded")
	return nil
}

func (c *Controller) connect(ctx context.Context, page browser.Page) error {
	if err := pause(ctx, c.timeouts.PreConnect); err != nil {
		return &Failure{State: StateConnecting, Kind: ErrUnexpected, Cause: err}
	}

	scanCtx, cancel := context.WithTimeout(ctx, c.timeouts.Connect)
	defer cancel()

	clicked, err := page.ActivateByLabel(scanCtx, c.match)
	if err != nil {
		return &Failure{State: StateConnecting, Kind: ErrUnexpected, Cause: err}
	}
	if !clicked {
		// Already connected, invitation pending, or a layout the label
		// scan does not cover.
		return &Failure{State: StateConnecting, Kind: ErrConnectControlNotFound}
	}

	logger.Info("Clicked Connect")
	return nil
}

func (c *Controller) composeNote(ctx context.Context, page browser.Page, message string) error {
	noteCtx, cancelNote := context.WithTimeout(ctx, c.timeouts.Note)
	err := page.ClickText(noteCtx, "button", addNotePattern)
	cancelNote()
	if err != nil {
		return classify(StateComposingNote, ErrNoteAffordanceNotFound, err)
	}
	logger.Debug("Clicked Add a note")

	sendCtx, cancelSend := context.WithTimeout(ctx, c.timeouts.Send)
	defer cancelSend()

	if err := page.Fill(sendCtx, noteFieldSelector, message); err != nil {
		return classify(StateComposingNote, ErrSendTimeout, err)
	}
	if err := page.ClickText(sendCtx, "button", sendPattern); err != nil {
		return classify(StateComposingNote, ErrSendTimeout, err)
	}

	logger.Info("Note sent", "length", len([]rune(message)))
	return nil
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
