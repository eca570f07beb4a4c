package flow

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_SimpleFlow(t *testing.T) {
	doc := `
provider: authkit
steps:
  - action: goto
  - action: fill
    selector: "input[type=email]"
    credential_key: email
  - action: click
    selector: "button[type=submit]"
    expect_navigation: true
`
	cfg, err := Parse([]byte(doc), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider != "authkit" {
		t.Errorf("expected provider authkit, got %q", cfg.Provider)
	}
	if len(cfg.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(cfg.Steps))
	}
	if cfg.Steps[0].Action != ActionGoto {
		t.Errorf("expected goto, got %q", cfg.Steps[0].Action)
	}
	if cfg.Steps[1].CredentialKey != "email" {
		t.Errorf("expected credential_key email, got %q", cfg.Steps[1].CredentialKey)
	}
	if got := cfg.Steps[1].Selector; len(got) != 1 || got[0] != "input[type=email]" {
		t.Errorf("unexpected selector %v", got)
	}
	if !cfg.Steps[2].ExpectNavigation {
		t.Error("expected expect_navigation on click step")
	}
}

func TestParse_SelectorFallbacks(t *testing.T) {
	doc := `
provider: google
steps:
  - action: click
    selector:
      - "#identifierNext button"
      - "button[jsname=LgbsSe]"
`
	cfg, err := Parse([]byte(doc), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sel := cfg.Steps[0].Selector
	if len(sel) != 2 {
		t.Fatalf("expected 2 selectors, got %d", len(sel))
	}
	if sel[0] != "#identifierNext button" {
		t.Errorf("unexpected first selector %q", sel[0])
	}
}

func TestParse_UnknownActionRejected(t *testing.T) {
	doc := `
provider: authkit
steps:
  - action: goto
  - action: swipe
    selector: "#x"
`
	_, err := Parse([]byte(doc), "flows/authkit.yaml")
	if err == nil {
		t.Fatal("expected error for unknown action")
	}

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %T", err)
	}
	if perr.Path != "flows/authkit.yaml" {
		t.Errorf("unexpected path %q", perr.Path)
	}
	if perr.Line != 5 {
		t.Errorf("expected line 5, got %d", perr.Line)
	}
	if !strings.Contains(perr.Message, `unknown action "swipe"`) {
		t.Errorf("unexpected message %q", perr.Message)
	}
}

func TestParse_MissingProvider(t *testing.T) {
	doc := `
steps:
  - action: goto
`
	_, err := Parse([]byte(doc), "test.yaml")
	if err == nil || !strings.Contains(err.Error(), "provider") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestParse_NoSteps(t *testing.T) {
	_, err := Parse([]byte("provider: authkit\n"), "test.yaml")
	if err == nil || !strings.Contains(err.Error(), "no steps") {
		t.Fatalf("expected no-steps error, got %v", err)
	}
}

func TestParse_BrowserOptions(t *testing.T) {
	doc := `
provider: authkit
browser_kwargs:
  headless: false
  slow_mo: 250
page_kwargs:
  width: 1280
  height: 800
post_flow_sleep: 1.5
steps:
  - action: goto
`
	cfg, err := Parse([]byte(doc), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BrowserOptions.IsHeadless() {
		t.Error("expected headless=false")
	}
	if cfg.BrowserOptions.SlowMoMs != 250 {
		t.Errorf("expected slow_mo 250, got %d", cfg.BrowserOptions.SlowMoMs)
	}
	if cfg.PageOptions.Width != 1280 || cfg.PageOptions.Height != 800 {
		t.Errorf("unexpected page size %dx%d", cfg.PageOptions.Width, cfg.PageOptions.Height)
	}
	if cfg.PostFlowSleep != 1.5 {
		t.Errorf("expected post_flow_sleep 1.5, got %v", cfg.PostFlowSleep)
	}
}

func TestParseDirectory(t *testing.T) {
	dir := t.TempDir()

	writeFlow := func(name, provider string) {
		doc := "provider: " + provider + "\nsteps:\n  - action: goto\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeFlow("a.yaml", "authkit")
	writeFlow("b.yml", "github")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	configs, err := ParseDirectory(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(configs))
	}
}

func TestParseDirectory_InvalidFileFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("provider: x\nsteps:\n  - action: nope\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ParseDirectory(dir)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
