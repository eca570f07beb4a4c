package automator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/weblab-dev/oauth-flow-runner/pkg/core"
	"github.com/weblab-dev/oauth-flow-runner/pkg/credentials"
	"github.com/weblab-dev/oauth-flow-runner/pkg/flow"
	"github.com/weblab-dev/oauth-flow-runner/pkg/page/memory"
	"github.com/weblab-dev/oauth-flow-runner/pkg/provider"
)

type mapEnv map[string]string

func (m mapEnv) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapEnv) Set(key, value string) error {
	m[key] = value
	return nil
}

func testResolver(t *testing.T, env mapEnv) *credentials.Resolver {
	t.Helper()
	return credentials.NewResolver(filepath.Join(t.TempDir(), ".env"),
		credentials.WithEnv(env),
		credentials.WithAutoPrompt(false),
	)
}

func loginRegistry(t *testing.T) *provider.Registry {
	t.Helper()
	r := provider.NewRegistry()
	err := r.Register(&flow.Config{
		Provider: "acme",
		Steps: []flow.Step{
			{Action: flow.ActionGoto},
			{Action: flow.ActionFill, Selector: flow.SelectorList{"#email"}, CredentialKey: "email", TimeoutSec: 0.5},
			{Action: flow.ActionClick, Selector: flow.SelectorList{"#submit"}, TimeoutSec: 0.5},
			{Action: flow.ActionCaptureURL, StoreKey: "code", QueryParam: "code"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestAuthenticate_EndToEnd(t *testing.T) {
	page := memory.NewPage()
	email := page.AddElement("#email")
	page.AddElement("#submit").ClickRedirects("https://app/callback?code=OK42")
	launcher := &memory.Launcher{Session: &memory.Session{P: page}}

	env := mapEnv{"OAUTH_ACME_EMAIL": "qa@example.com"}
	auto := New(loginRegistry(t), testResolver(t, env), launcher, zerolog.Nop())

	result, err := auto.Authenticate(context.Background(), "https://auth/authorize", "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("flow failed: %v", result.Err)
	}
	if result.Code() != "OK42" {
		t.Errorf("expected code OK42, got %q", result.Code())
	}
	if email.TypedValue != "qa@example.com" {
		t.Errorf("credential not filled, got %q", email.TypedValue)
	}
	if launcher.Session.Closed != 1 {
		t.Errorf("session must be closed exactly once, got %d", launcher.Session.Closed)
	}
}

func TestAuthenticate_UnknownProviderBeforeLaunch(t *testing.T) {
	launcher := &memory.Launcher{}
	auto := New(provider.NewRegistry(), testResolver(t, mapEnv{}), launcher, zerolog.Nop())

	_, err := auto.Authenticate(context.Background(), "https://auth", "nope")
	var nf *provider.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if launcher.Launches != 0 {
		t.Errorf("browser must not launch for unknown provider, launches=%d", launcher.Launches)
	}
}

func TestAuthenticate_MissingCredentialsBeforeLaunch(t *testing.T) {
	launcher := &memory.Launcher{}
	auto := New(loginRegistry(t), testResolver(t, mapEnv{}), launcher, zerolog.Nop())

	_, err := auto.Authenticate(context.Background(), "https://auth", "acme")
	var merr *credentials.MissingCredentialsError
	if !errors.As(err, &merr) {
		t.Fatalf("expected MissingCredentialsError, got %v", err)
	}
	if launcher.Launches != 0 {
		t.Errorf("browser must not launch without credentials, launches=%d", launcher.Launches)
	}
}

func TestAuthenticate_LaunchErrorPropagates(t *testing.T) {
	launcher := &memory.Launcher{Err: fmt.Errorf("chromium not found")}
	env := mapEnv{"OAUTH_ACME_EMAIL": "qa@example.com"}
	auto := New(loginRegistry(t), testResolver(t, env), launcher, zerolog.Nop())

	_, err := auto.Authenticate(context.Background(), "https://auth", "acme")
	var lerr *core.SessionLaunchError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected SessionLaunchError, got %v", err)
	}
}

func TestAuthenticate_StepFailureReturnsResultNotError(t *testing.T) {
	page := memory.NewPage() // no elements, fill will time out
	launcher := &memory.Launcher{Session: &memory.Session{P: page}}
	env := mapEnv{"OAUTH_ACME_EMAIL": "qa@example.com"}
	auto := New(loginRegistry(t), testResolver(t, env), launcher, zerolog.Nop())

	result, err := auto.Authenticate(context.Background(), "https://auth", "acme")
	if err != nil {
		t.Fatalf("step failures belong in the result, got error %v", err)
	}
	if result.Success {
		t.Fatal("expected failed result")
	}
	if result.Err == nil || result.Err.Index != 1 {
		t.Errorf("expected failure at step 1, got %+v", result.Err)
	}
	if launcher.Session.Closed != 1 {
		t.Errorf("session must be closed on failure too, got %d", launcher.Session.Closed)
	}
}

func TestAuthenticate_CredentialOverrides(t *testing.T) {
	page := memory.NewPage()
	email := page.AddElement("#email")
	page.AddElement("#submit")
	launcher := &memory.Launcher{Session: &memory.Session{P: page}}

	env := mapEnv{"OAUTH_ACME_EMAIL": "env@example.com"}
	auto := New(loginRegistry(t), testResolver(t, env), launcher, zerolog.Nop())

	result, err := auto.Authenticate(context.Background(), "https://auth", "acme",
		WithCredentialOverrides(map[string]string{"email": "override@example.com"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("flow failed: %v", result.Err)
	}
	if email.TypedValue != "override@example.com" {
		t.Errorf("override not applied, got %q", email.TypedValue)
	}
}

func TestAuthenticate_MFACodeSkipsCredentialResolution(t *testing.T) {
	page := memory.NewPage()
	code := page.AddElement("#totp")
	launcher := &memory.Launcher{Session: &memory.Session{P: page}}

	r := provider.NewRegistry()
	err := r.Register(&flow.Config{
		Provider: "mfaonly",
		Steps: []flow.Step{
			{Action: flow.ActionGoto},
			{Action: flow.ActionHandleMFA, Selector: flow.SelectorList{"#totp"}, TimeoutSec: 0.5},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	auto := New(r, testResolver(t, mapEnv{}), launcher, zerolog.Nop())
	result, err := auto.Authenticate(context.Background(), "https://auth", "mfaonly", WithMFACode("112233"))
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("flow failed: %v", result.Err)
	}
	if code.TypedValue != "112233" {
		t.Errorf("mfa code not typed, got %q", code.TypedValue)
	}
}
