package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/weblab-dev/oauth-flow-runner/pkg/core"
)

func sampleResult() *core.Result {
	return &core.Result{
		Success:  true,
		Captured: map[string]string{"code": "abc"},
		Duration: 1200 * time.Millisecond,
		Steps: []core.StepOutcome{
			{Index: 0, Action: "goto", Description: "goto: oauth url", Status: core.StatusPassed, Duration: 300 * time.Millisecond},
			{Index: 1, Action: "click", Description: "click #submit", Status: core.StatusSkipped, Duration: 100 * time.Millisecond, Error: "not found"},
		},
	}
}

func TestNewRun(t *testing.T) {
	run := NewRun("github", "https://auth", sampleResult())

	if run.ID == "" {
		t.Error("expected generated run id")
	}
	if !run.Success || run.DurationMs != 1200 {
		t.Errorf("unexpected run %+v", run)
	}
	if len(run.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(run.Steps))
	}
	if run.Steps[1].Status != "skipped" || run.Steps[1].Error != "not found" {
		t.Errorf("unexpected step %+v", run.Steps[1])
	}
}

func TestNewRun_FailedFlow(t *testing.T) {
	result := &core.Result{
		Err: &core.StepError{Index: 2, Description: "click #submit", Cause: errors.New("not visible")},
		Steps: []core.StepOutcome{
			{Index: 0, Status: core.StatusPassed},
		},
	}

	run := NewRun("github", "https://auth", result)
	if run.Error == nil {
		t.Fatal("expected run error")
	}
	if run.Error.StepIndex != 2 || run.Error.Cause != "not visible" {
		t.Errorf("unexpected error %+v", run.Error)
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	run := NewRun("github", "https://auth", sampleResult())

	path, err := WriteJSON(dir, run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Run
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid json: %v", err)
	}
	if decoded.ID != run.ID || decoded.Provider != "github" {
		t.Errorf("unexpected decoded run %+v", decoded)
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	Summary(&buf, NewRun("github", "https://auth", sampleResult()))

	out := buf.String()
	if !strings.Contains(out, "PASSED") {
		t.Errorf("expected PASSED in %q", out)
	}
	if !strings.Contains(out, "code=abc") {
		t.Errorf("expected captured values in %q", out)
	}
	if !strings.Contains(out, "[skip]") {
		t.Errorf("expected skip marker in %q", out)
	}
}
