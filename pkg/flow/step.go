// Package flow handles parsing and representation of declarative OAuth
// login flow documents.
package flow

import (
	"fmt"
	"strconv"
	"time"
)

// Action identifies one kind of browser interaction. The set is closed:
// parsing rejects anything outside it, so the executor's dispatch is
// exhaustive by construction.
type Action string

// Action constants.
const (
	// Navigation
	ActionGoto       Action = "goto"
	ActionWaitForURL Action = "wait_for_url"

	// Element interaction
	ActionWaitForSelector Action = "wait_for_selector"
	ActionFill            Action = "fill"
	ActionClick           Action = "click"
	ActionPress           Action = "press"
	ActionSelectOption    Action = "select_option"
	ActionUploadFile      Action = "upload_file"

	// Assertions & capture
	ActionAssertURLContains Action = "assert_url_contains"
	ActionEvaluate          Action = "evaluate"
	ActionCaptureURL        Action = "capture_url"

	// Other
	ActionSleep     Action = "sleep"
	ActionHandleMFA Action = "handle_mfa"
)

// Known reports whether a is a member of the action vocabulary.
func (a Action) Known() bool {
	switch a {
	case ActionGoto, ActionWaitForURL, ActionWaitForSelector, ActionFill,
		ActionClick, ActionPress, ActionSelectOption, ActionUploadFile,
		ActionAssertURLContains, ActionEvaluate, ActionCaptureURL,
		ActionSleep, ActionHandleMFA:
		return true
	}
	return false
}

// DefaultTimeout applies to steps that do not set their own.
const DefaultTimeout = 10 * time.Second

// Step is one declarative browser action. Value type, never mutated after
// parse; validation happens at construction time, not at run time.
type Step struct {
	Action      Action `yaml:"action"`
	Description string `yaml:"description"`

	// Selector holds one or more fallback CSS/text selectors, tried in
	// order at execution time.
	Selector SelectorList `yaml:"selector"`

	// Value is a literal input: the text for fill, the URL for goto, the
	// key name for press, the duration in seconds for sleep.
	Value string `yaml:"value"`

	// CredentialKey names a resolved credential to use as the fill value
	// instead of a literal.
	CredentialKey string `yaml:"credential_key"`

	// WaitForSelector is a secondary pre-condition: the element that must
	// be visible before the step's own target is located.
	WaitForSelector string `yaml:"wait_for_selector"`

	// ExpectNavigation makes a click block until the next navigation
	// completes or the step timeout elapses.
	ExpectNavigation bool `yaml:"expect_navigation"`

	// Optional steps swallow their own failures; the flow proceeds.
	Optional bool `yaml:"optional"`

	// TimeoutSec bounds the step in seconds; 0 means DefaultTimeout.
	TimeoutSec float64 `yaml:"timeout"`

	URLSubstring string   `yaml:"url_substring"`
	StoreKey     string   `yaml:"store_key"`
	QueryParam   string   `yaml:"query_param"`
	JavaScript   string   `yaml:"javascript"`
	Options      []string `yaml:"options"`
	FilePaths    []string `yaml:"file_paths"`
}

// Timeout returns the step's effective timeout.
func (s Step) Timeout() time.Duration {
	if s.TimeoutSec > 0 {
		return time.Duration(s.TimeoutSec * float64(time.Second))
	}
	return DefaultTimeout
}

// SleepDuration parses the value of a sleep step as decimal seconds.
func (s Step) SleepDuration() (time.Duration, error) {
	secs, err := strconv.ParseFloat(s.Value, 64)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("sleep value %q is not a non-negative number of seconds", s.Value)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Describe returns a human-readable description for logs and reports.
func (s Step) Describe() string {
	if s.Description != "" {
		return s.Description
	}
	switch s.Action {
	case ActionGoto:
		if s.Value != "" {
			return "goto: " + s.Value
		}
		return "goto: oauth url"
	case ActionFill:
		if s.CredentialKey != "" {
			return "fill " + s.Selector.Describe() + " with credential " + s.CredentialKey
		}
		return "fill " + s.Selector.Describe()
	case ActionClick:
		return "click " + s.Selector.Describe()
	case ActionPress:
		return "press " + s.Value + " on " + s.Selector.Describe()
	case ActionWaitForSelector:
		return "wait for " + s.Selector.Describe()
	case ActionWaitForURL:
		return "wait for url containing " + strconv.Quote(s.URLSubstring)
	case ActionAssertURLContains:
		return "assert url contains " + strconv.Quote(s.URLSubstring)
	case ActionCaptureURL:
		return "capture url into " + s.StoreKey
	case ActionSleep:
		return "sleep " + s.Value + "s"
	default:
		return string(s.Action)
	}
}

// Validate checks that the step carries every field its action requires.
func (s Step) Validate() error {
	if !s.Action.Known() {
		return fmt.Errorf("unknown action %q", string(s.Action))
	}

	needSelector := func() error {
		if len(s.Selector) == 0 {
			return fmt.Errorf("%s requires a selector", s.Action)
		}
		return nil
	}

	switch s.Action {
	case ActionGoto, ActionHandleMFA:
		// goto falls back to the run's oauth url; handle_mfa's selector
		// is optional.
		return nil

	case ActionWaitForSelector, ActionClick:
		return needSelector()

	case ActionFill:
		if err := needSelector(); err != nil {
			return err
		}
		if s.Value == "" && s.CredentialKey == "" {
			return fmt.Errorf("fill requires value or credential_key")
		}
		return nil

	case ActionPress:
		if err := needSelector(); err != nil {
			return err
		}
		if s.Value == "" {
			return fmt.Errorf("press requires a key name in value")
		}
		return nil

	case ActionSelectOption:
		if err := needSelector(); err != nil {
			return err
		}
		if len(s.Options) == 0 {
			return fmt.Errorf("select_option requires options")
		}
		return nil

	case ActionUploadFile:
		if err := needSelector(); err != nil {
			return err
		}
		if len(s.FilePaths) == 0 {
			return fmt.Errorf("upload_file requires file_paths")
		}
		return nil

	case ActionSleep:
		if _, err := s.SleepDuration(); err != nil {
			return err
		}
		return nil

	case ActionWaitForURL, ActionAssertURLContains:
		if s.URLSubstring == "" {
			return fmt.Errorf("%s requires url_substring", s.Action)
		}
		return nil

	case ActionEvaluate:
		if s.JavaScript == "" {
			return fmt.Errorf("evaluate requires javascript")
		}
		return nil

	case ActionCaptureURL:
		if s.StoreKey == "" {
			return fmt.Errorf("capture_url requires store_key")
		}
		return nil
	}

	return nil
}
