package core

import (
	"fmt"
	"time"
)

// StepError reports the failure of a non-optional step. It is surfaced as a
// field of Result rather than returned from the run, so callers always get a
// result object for ordinary login failures.
type StepError struct {
	Index       int    // 0-based position in the flow
	Description string // the step's description
	Cause       error  // underlying failure
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Description, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StepError) Unwrap() error {
	return e.Cause
}

// MFATimeoutError indicates no MFA code became available within a step's
// timeout: neither a pre-supplied code nor a code from the MFA provider.
type MFATimeoutError struct {
	Timeout time.Duration
}

func (e *MFATimeoutError) Error() string {
	return fmt.Sprintf("no MFA code available within %s", e.Timeout)
}

// SessionLaunchError indicates the browser session could not be acquired.
// It surfaces before any step runs and propagates as a returned error,
// since it signals an environment problem rather than a flow failure.
type SessionLaunchError struct {
	Cause error
}

func (e *SessionLaunchError) Error() string {
	return fmt.Sprintf("failed to launch browser session: %v", e.Cause)
}

func (e *SessionLaunchError) Unwrap() error {
	return e.Cause
}
