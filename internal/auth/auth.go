package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/linkedin-connect/internal/browser"
	"github.com/yourusername/linkedin-connect/internal/logger"
)

const (
	LinkedInLoginURL = "https://www.linkedin.com/login"

	UsernameSelector = "input#username"
	PasswordSelector = "input#password"
	SubmitSelector   = "button[type='submit']"

	// LandmarkSelector is the global search bar, only rendered for a
	// signed-in member.
	LandmarkSelector = `input[placeholder="Search"]`
)

// Credentials are the LinkedIn account used for every session.
type Credentials struct {
	Email    string
	Password string
}

// String keeps credentials out of logs and error messages.
func (c Credentials) String() string {
	return "Credentials{redacted}"
}

// GoString keeps credentials out of %#v output.
func (c Credentials) GoString() string {
	return c.String()
}

// Validate checks that both values are present
func (c Credentials) Validate() error {
	if c.Email == "" {
		return errors.New("LinkedIn email is required")
	}
	if c.Password == "" {
		return errors.New("LinkedIn password is required")
	}
	return nil
}

// Bounds limits the two waits of the login flow.
type Bounds struct {
	// Form covers loading the login page and submitting the form.
	Form time.Duration
	// Landmark covers the wait for the signed-in home surface.
	Landmark time.Duration
}

// ErrLandmarkMissing is wrapped when the signed-in landmark never appears.
var ErrLandmarkMissing = errors.New("signed-in landmark did not appear")

// Login signs in on page and confirms it by waiting for the landmark.
func Login(ctx context.Context, page browser.Page, creds Credentials, b Bounds) error {
	logger.Debug("Navigating to LinkedIn login page")

	if err := submitForm(ctx, page, creds, b.Form); err != nil {
		return err
	}

	logger.Debug("Waiting for signed-in landmark", "selector", LandmarkSelector, "timeout", b.Landmark)
	landmarkCtx, cancel := context.WithTimeout(ctx, b.Landmark)
	defer cancel()

	if err := page.WaitVisible(landmarkCtx, LandmarkSelector); err != nil {
		return fmt.Errorf("%w: %w", ErrLandmarkMissing, err)
	}

	logger.Info("Logged in: search bar detected on home page")
	return nil
}

func submitForm(ctx context.Context, page browser.Page, creds Credentials, bound time.Duration) error {
	formCtx, cancel := context.WithTimeout(ctx, bound)
	defer cancel()

	if err := page.Navigate(formCtx, LinkedInLoginURL, browser.WaitLoad); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	if err := page.Fill(formCtx, UsernameSelector, creds.Email); err != nil {
		return fmt.Errorf("failed to fill email field: %w", err)
	}
	if err := page.Fill(formCtx, PasswordSelector, creds.Password); err != nil {
		return fmt.Errorf("failed to fill password field: %w", err)
	}

	logger.Debug("Clicking sign in button")
	if err := page.Click(formCtx, SubmitSelector); err != nil {
		return fmt.Errorf("failed to click sign in button: %w", err)
	}

	return nil
}
