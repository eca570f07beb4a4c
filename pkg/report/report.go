// Package report renders flow run results as JSON documents and console
// summaries.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/weblab-dev/oauth-flow-runner/pkg/core"
)

// Version is the report schema version.
const Version = "1.0.0"

// Run describes one authentication flow run.
type Run struct {
	ID         string            `json:"id"`
	Version    string            `json:"version"`
	Provider   string            `json:"provider"`
	OAuthURL   string            `json:"oauthUrl"`
	StartTime  time.Time         `json:"startTime"`
	DurationMs int64             `json:"durationMs"`
	Success    bool              `json:"success"`
	Captured   map[string]string `json:"captured,omitempty"`
	Error      *RunError         `json:"error,omitempty"`
	Steps      []Step            `json:"steps"`
}

// RunError identifies the step that aborted the flow.
type RunError struct {
	StepIndex   int    `json:"stepIndex"`
	Description string `json:"description"`
	Cause       string `json:"cause"`
}

// Step is one executed step's outcome.
type Step struct {
	Index       int    `json:"index"`
	Action      string `json:"action"`
	Description string `json:"description"`
	Status      string `json:"status"`
	DurationMs  int64  `json:"durationMs"`
	Error       string `json:"error,omitempty"`
}

// NewRun builds a report from an execution result.
func NewRun(providerName, oauthURL string, result *core.Result) *Run {
	run := &Run{
		ID:         uuid.NewString(),
		Version:    Version,
		Provider:   providerName,
		OAuthURL:   oauthURL,
		StartTime:  time.Now().Add(-result.Duration),
		DurationMs: result.Duration.Milliseconds(),
		Success:    result.Success,
		Captured:   result.Captured,
		Steps:      make([]Step, 0, len(result.Steps)),
	}

	if result.Err != nil {
		run.Error = &RunError{
			StepIndex:   result.Err.Index,
			Description: result.Err.Description,
			Cause:       result.Err.Cause.Error(),
		}
	}

	for _, s := range result.Steps {
		run.Steps = append(run.Steps, Step{
			Index:       s.Index,
			Action:      s.Action,
			Description: s.Description,
			Status:      string(s.Status),
			DurationMs:  s.Duration.Milliseconds(),
			Error:       s.Error,
		})
	}
	return run
}

// WriteJSON writes the run to <dir>/<run-id>.json and returns the path.
func WriteJSON(dir string, run *Run) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	path := filepath.Join(dir, run.ID+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// Summary writes a human-readable outcome to w.
func Summary(w io.Writer, run *Run) {
	status := "PASSED"
	if !run.Success {
		status = "FAILED"
	}
	fmt.Fprintf(w, "%s  provider=%s  steps=%d  duration=%dms\n", status, run.Provider, len(run.Steps), run.DurationMs)
	for _, s := range run.Steps {
		marker := "ok"
		switch s.Status {
		case string(core.StatusFailed):
			marker = "FAIL"
		case string(core.StatusSkipped):
			marker = "skip"
		}
		fmt.Fprintf(w, "  [%s] step %d: %s (%dms)\n", marker, s.Index, s.Description, s.DurationMs)
		if s.Error != "" {
			fmt.Fprintf(w, "        %s\n", s.Error)
		}
	}
	if run.Error != nil {
		fmt.Fprintf(w, "error: step %d (%s): %s\n", run.Error.StepIndex, run.Error.Description, run.Error.Cause)
	}
	if len(run.Captured) > 0 {
		fmt.Fprintf(w, "captured:\n")
		for k, v := range run.Captured {
			fmt.Fprintf(w, "  %s=%s\n", k, v)
		}
	}
}
