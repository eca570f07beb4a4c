package core

import (
	"context"
	"time"
)

// Context carries the mutable state of a single flow run. It is created
// fresh for every authentication call and discarded afterwards.
type Context struct {
	// OAuthURL is the starting authorization URL.
	OAuthURL string

	// Credentials maps credential keys (email, password, ...) to resolved
	// values. The MFA handler also writes the obtained code here under
	// the "mfa_code" key.
	Credentials map[string]string

	// MFACode is a pre-supplied MFA code, if the caller already has one.
	MFACode string

	// MFAProvider supplies an MFA code on demand (e.g. by polling an
	// inbox). Called at most once per handle_mfa step, bounded by the
	// step's timeout via the passed context.
	MFAProvider func(ctx context.Context) (string, error)

	// Captured accumulates values stored by evaluate/capture_url steps.
	Captured map[string]string
}

// NewContext builds a run context with initialized maps.
func NewContext(oauthURL string, credentials map[string]string) *Context {
	if credentials == nil {
		credentials = make(map[string]string)
	}
	return &Context{
		OAuthURL:    oauthURL,
		Credentials: credentials,
		Captured:    make(map[string]string),
	}
}

// StepStatus is the outcome of a single executed step.
type StepStatus string

// Step status values.
const (
	StatusPassed  StepStatus = "passed"
	StatusFailed  StepStatus = "failed"
	StatusSkipped StepStatus = "skipped" // optional step that errored
)

// StepOutcome records one step's execution for reporting.
type StepOutcome struct {
	Index       int           `json:"index"`
	Action      string        `json:"action"`
	Description string        `json:"description"`
	Status      StepStatus    `json:"status"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Result is the outcome of a single flow run. Immutable once returned.
type Result struct {
	Success  bool
	Captured map[string]string
	Err      *StepError // set when Success is false due to a step failure
	Steps    []StepOutcome
	Duration time.Duration
}

// Code returns the captured authorization code, looked up under the
// conventional "code" store key, or the empty string.
func (r *Result) Code() string {
	if r.Captured == nil {
		return ""
	}
	return r.Captured["code"]
}
