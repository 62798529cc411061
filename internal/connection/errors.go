package connection

import (
	"context"
	"errors"
	"fmt"
)

// Failure kinds. Every failed attempt carries exactly one of them.
var (
	ErrAuthenticationTimeout  = errors.New("login landmark did not appear")
	ErrNavigationTimeout      = errors.New("profile page did not load")
	ErrConnectControlNotFound = errors.New("connect control not found")
	ErrNoteAffordanceNotFound = errors.New("add-a-note control not found")
	ErrSendTimeout            = errors.New("note could not be sent")
	ErrUnexpected             = errors.New("unexpected failure")
)

// ErrInvalidProfileURL is returned when a profile URL is not an absolute http(s) URL.
var ErrInvalidProfileURL = errors.New("invalid profile URL")

var reasons = []struct {
	kind error
	code string
}{
	{ErrAuthenticationTimeout, "authentication_timeout"},
	{ErrNavigationTimeout, "navigation_timeout"},
	{ErrConnectControlNotFound, "connect_control_not_found"},
	{ErrNoteAffordanceNotFound, "note_affordance_not_found"},
	{ErrSendTimeout, "send_timeout"},
	{ErrUnexpected, "unexpected"},
}

// Failure is the error of a failed attempt. State is the workflow state
// that was active when the attempt failed.
type Failure struct {
	State State
	Kind  error
	Cause error
}

func (f *Failure) Error() string {
	if f.Cause == nil {
		return fmt.Sprintf("%s: %v", f.State, f.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", f.State, f.Kind, f.Cause)
}

func (f *Failure) Unwrap() []error {
	if f.Cause == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Cause}
}

// Reason returns the stable code of the failure kind, e.g. "send_timeout".
func (f *Failure) Reason() string {
	return Reason(f)
}

// Reason maps an error to the code of the first failure kind it wraps.
// Errors that wrap none of them are "unexpected".
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.kind) {
			return r.code
		}
	}
	return "unexpected"
}

// classify attributes an expired bounded wait to kind and anything else to
// ErrUnexpected.
func classify(state State, kind, err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{State: state, Kind: kind, Cause: err}
	}
	return &Failure{State: state, Kind: ErrUnexpected, Cause: err}
}
