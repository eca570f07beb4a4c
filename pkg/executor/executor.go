// Package executor interprets a provider's flow script against a live page:
// one ordered step list, strictly sequential, no branching beyond the
// optional escape hatch.
package executor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/weblab-dev/oauth-flow-runner/pkg/core"
	"github.com/weblab-dev/oauth-flow-runner/pkg/flow"
)

// MFACredentialKey is where an obtained MFA code is stored for a following
// fill step.
const MFACredentialKey = "mfa_code"

// Executor walks a flow's steps against a page.
type Executor struct {
	logger zerolog.Logger
}

// New creates an executor.
func New(logger zerolog.Logger) *Executor {
	return &Executor{logger: logger}
}

// Run executes every step of cfg against page. A failing non-optional step
// aborts the run with a populated StepError; a failing optional step is
// logged and skipped. All waits are bounded by their step's timeout.
func (e *Executor) Run(ctx context.Context, page core.Page, cfg *flow.Config, fc *core.Context) *core.Result {
	start := time.Now()
	if fc.Captured == nil {
		fc.Captured = make(map[string]string)
	}

	result := &core.Result{Captured: fc.Captured}

	for i, step := range cfg.Steps {
		stepStart := time.Now()

		var err error
		if ctx.Err() != nil {
			err = ctx.Err()
		} else {
			e.logger.Debug().Int("step", i).Str("action", string(step.Action)).Msg(step.Describe())
			err = e.runStep(ctx, page, step, fc)
		}

		outcome := core.StepOutcome{
			Index:       i,
			Action:      string(step.Action),
			Description: step.Describe(),
			Status:      core.StatusPassed,
			Duration:    time.Since(stepStart),
		}

		if err != nil {
			outcome.Error = err.Error()
			if step.Optional {
				outcome.Status = core.StatusSkipped
				result.Steps = append(result.Steps, outcome)
				e.logger.Warn().Int("step", i).Err(err).Msg("optional step skipped")
				continue
			}
			outcome.Status = core.StatusFailed
			result.Steps = append(result.Steps, outcome)
			result.Err = &core.StepError{Index: i, Description: step.Describe(), Cause: err}
			result.Duration = time.Since(start)
			e.logger.Error().Int("step", i).Err(err).Msg("flow aborted")
			return result
		}

		result.Steps = append(result.Steps, outcome)
	}

	if cfg.PostFlowSleep > 0 {
		sleepCtx(ctx, time.Duration(cfg.PostFlowSleep*float64(time.Second)))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// runStep dispatches one step by action kind. The switch is exhaustive over
// the Action vocabulary; parsing rejects anything outside it.
func (e *Executor) runStep(ctx context.Context, page core.Page, step flow.Step, fc *core.Context) error {
	switch step.Action {
	case flow.ActionGoto:
		target := fc.OAuthURL
		if step.Value != "" {
			target = step.Value
		}
		// A hung page load must not block past the step timeout.
		nctx, cancel := context.WithTimeout(ctx, step.Timeout())
		defer cancel()
		return page.Navigate(nctx, target)

	case flow.ActionWaitForSelector:
		_, err := e.locate(ctx, page, step)
		return err

	case flow.ActionClick:
		el, err := e.locate(ctx, page, step)
		if err != nil {
			return err
		}
		if step.ExpectNavigation {
			wait := page.ExpectNavigation(ctx, step.Timeout())
			if err := el.Click(); err != nil {
				return err
			}
			return wait()
		}
		return el.Click()

	case flow.ActionFill:
		value, err := fillValue(step, fc)
		if err != nil {
			return err
		}
		el, err := e.locate(ctx, page, step)
		if err != nil {
			return err
		}
		return el.Type(value)

	case flow.ActionPress:
		el, err := e.locate(ctx, page, step)
		if err != nil {
			return err
		}
		return el.Press(step.Value)

	case flow.ActionSelectOption:
		el, err := e.locate(ctx, page, step)
		if err != nil {
			return err
		}
		return el.SelectOptions(step.Options)

	case flow.ActionUploadFile:
		el, err := e.locate(ctx, page, step)
		if err != nil {
			return err
		}
		return el.SetFiles(step.FilePaths)

	case flow.ActionSleep:
		d, err := step.SleepDuration()
		if err != nil {
			return err
		}
		sleepCtx(ctx, d)
		return ctx.Err()

	case flow.ActionWaitForURL:
		return page.WaitURLContains(ctx, step.URLSubstring, step.Timeout())

	case flow.ActionAssertURLContains:
		current, err := page.CurrentURL()
		if err != nil {
			return err
		}
		if !strings.Contains(current, step.URLSubstring) {
			return fmt.Errorf("url %q does not contain %q", current, step.URLSubstring)
		}
		return nil

	case flow.ActionEvaluate:
		out, err := page.Evaluate(ctx, step.JavaScript)
		if err != nil {
			return err
		}
		if step.StoreKey != "" {
			fc.Captured[step.StoreKey] = out
		}
		return nil

	case flow.ActionCaptureURL:
		current, err := page.CurrentURL()
		if err != nil {
			return err
		}
		if step.QueryParam == "" {
			fc.Captured[step.StoreKey] = current
			return nil
		}
		parsed, err := url.Parse(current)
		if err != nil {
			return fmt.Errorf("failed to parse current url %q: %w", current, err)
		}
		fc.Captured[step.StoreKey] = parsed.Query().Get(step.QueryParam)
		return nil

	case flow.ActionHandleMFA:
		return e.handleMFA(ctx, page, step, fc)
	}

	// Unreachable: parse-time validation admits only known actions.
	return fmt.Errorf("unhandled action %q", string(step.Action))
}

// locate finds the step's target element, honoring the wait_for_selector
// pre-condition and trying each fallback selector within the step timeout.
func (e *Executor) locate(ctx context.Context, page core.Page, step flow.Step) (core.Element, error) {
	if step.WaitForSelector != "" {
		if _, err := page.FindVisible(ctx, []string{step.WaitForSelector}, step.Timeout()); err != nil {
			return nil, fmt.Errorf("pre-condition %q: %w", step.WaitForSelector, err)
		}
	}
	return page.FindVisible(ctx, step.Selector, step.Timeout())
}

// fillValue resolves the text for a fill step from the literal value or the
// named credential.
func fillValue(step flow.Step, fc *core.Context) (string, error) {
	if step.Value != "" {
		return step.Value, nil
	}
	value, ok := fc.Credentials[step.CredentialKey]
	if !ok {
		return "", fmt.Errorf("credential %q not resolved", step.CredentialKey)
	}
	return value, nil
}

// handleMFA obtains a code from the run context or its provider, stores it
// under the mfa_code credential key, and fills it directly when the step
// carries a selector.
func (e *Executor) handleMFA(ctx context.Context, page core.Page, step flow.Step, fc *core.Context) error {
	code, err := e.obtainMFACode(ctx, step.Timeout(), fc)
	if err != nil {
		return err
	}
	fc.Credentials[MFACredentialKey] = code

	if len(step.Selector) == 0 {
		return nil
	}
	el, err := e.locate(ctx, page, step)
	if err != nil {
		return err
	}
	return el.Type(code)
}

func (e *Executor) obtainMFACode(ctx context.Context, timeout time.Duration, fc *core.Context) (string, error) {
	if fc.MFACode != "" {
		return fc.MFACode, nil
	}
	if fc.MFAProvider == nil {
		return "", &core.MFATimeoutError{Timeout: timeout}
	}

	type supplied struct {
		code string
		err  error
	}

	mctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The provider may not honor its context; the select guarantees the
	// step's bound regardless.
	ch := make(chan supplied, 1)
	go func() {
		code, err := fc.MFAProvider(mctx)
		ch <- supplied{code: code, err: err}
	}()

	select {
	case <-mctx.Done():
		return "", &core.MFATimeoutError{Timeout: timeout}
	case s := <-ch:
		if s.err != nil {
			return "", fmt.Errorf("mfa provider failed: %w", s.err)
		}
		if s.code == "" {
			return "", &core.MFATimeoutError{Timeout: timeout}
		}
		return s.code, nil
	}
}

// sleepCtx pauses for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
