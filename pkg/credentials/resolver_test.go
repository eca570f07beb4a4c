package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mapEnv is an in-memory Env.
type mapEnv map[string]string

func (m mapEnv) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapEnv) Set(key, value string) error {
	m[key] = value
	return nil
}

// fakePrompter returns scripted answers and records what it was asked.
type fakePrompter struct {
	answers map[string]string
	asked   []string
	masked  map[string]bool
	err     error
}

func (p *fakePrompter) Prompt(key string, masked bool) (string, error) {
	p.asked = append(p.asked, key)
	if p.masked == nil {
		p.masked = make(map[string]bool)
	}
	p.masked[key] = masked
	if p.err != nil {
		return "", p.err
	}
	return p.answers[key], nil
}

func newTestResolver(t *testing.T, env mapEnv, prompter *fakePrompter, autoPrompt bool) *Resolver {
	t.Helper()
	envFile := filepath.Join(t.TempDir(), ".env")
	return NewResolver(envFile,
		WithEnv(env),
		WithPrompter(prompter),
		WithAutoPrompt(autoPrompt),
	)
}

func TestResolve_Precedence(t *testing.T) {
	env := mapEnv{
		"OAUTH_AUTHKIT_EMAIL":    "env-scoped@example.com",
		"OAUTH_EMAIL":            "env-generic@example.com",
		"OAUTH_AUTHKIT_PASSWORD": "env-password",
	}
	prompter := &fakePrompter{}
	r := newTestResolver(t, env, prompter, true)

	got, err := r.Resolve("authkit",
		map[string]string{"email": "", "password": ""},
		map[string]string{"email": "override@example.com"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["email"] != "override@example.com" {
		t.Errorf("override should win, got %q", got["email"])
	}
	if got["password"] != "env-password" {
		t.Errorf("expected env password, got %q", got["password"])
	}
	if len(prompter.asked) != 0 {
		t.Errorf("nothing should be prompted, asked %v", prompter.asked)
	}
}

func TestResolve_ProviderScopedBeatsGeneric(t *testing.T) {
	env := mapEnv{
		"OAUTH_AUTHKIT_PASSWORD": "scoped",
		"OAUTH_PASSWORD":         "generic",
	}
	r := newTestResolver(t, env, &fakePrompter{}, true)

	got, err := r.Resolve("authkit", map[string]string{"password": ""}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got["password"] != "scoped" {
		t.Errorf("expected provider-scoped value, got %q", got["password"])
	}
}

func TestResolve_ExplicitFallbackEnv(t *testing.T) {
	env := mapEnv{"GITHUB_USERNAME": "octocat"}
	r := newTestResolver(t, env, &fakePrompter{}, true)

	got, err := r.Resolve("github", map[string]string{"email": "GITHUB_USERNAME"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got["email"] != "octocat" {
		t.Errorf("expected fallback env value, got %q", got["email"])
	}
}

func TestResolve_MissingWithoutPrompting(t *testing.T) {
	r := newTestResolver(t, mapEnv{}, &fakePrompter{}, false)

	_, err := r.Resolve("authkit", map[string]string{"email": "", "password": ""}, nil)
	var merr *MissingCredentialsError
	if !errors.As(err, &merr) {
		t.Fatalf("expected MissingCredentialsError, got %v", err)
	}
	if merr.Provider != "authkit" {
		t.Errorf("unexpected provider %q", merr.Provider)
	}
	if len(merr.Missing) != 2 {
		t.Fatalf("expected 2 missing keys, got %v", merr.Missing)
	}

	msg := err.Error()
	for _, want := range []string{"OAUTH_AUTHKIT_EMAIL", "OAUTH_EMAIL", "OAUTH_AUTHKIT_PASSWORD"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in error message %q", want, msg)
		}
	}
}

func TestResolve_PromptStoresAndPersists(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	env := mapEnv{}
	prompter := &fakePrompter{answers: map[string]string{"password": "hunter2"}}

	r := NewResolver(envFile, WithEnv(env), WithPrompter(prompter), WithAutoPrompt(true))
	got, err := r.Resolve("authkit", map[string]string{"password": ""}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["password"] != "hunter2" {
		t.Errorf("unexpected value %q", got["password"])
	}
	if !prompter.masked["password"] {
		t.Error("password prompt should be masked")
	}

	data, err := os.ReadFile(envFile)
	if err != nil {
		t.Fatalf("env file not written: %v", err)
	}
	if !strings.Contains(string(data), "OAUTH_AUTHKIT_PASSWORD=hunter2") {
		t.Errorf("env file missing persisted entry: %q", string(data))
	}

	// A fresh resolver over the same file resolves without prompting.
	prompter2 := &fakePrompter{}
	r2 := NewResolver(envFile, WithEnv(mapEnv{}), WithPrompter(prompter2), WithAutoPrompt(true))
	got2, err := r2.Resolve("authkit", map[string]string{"password": ""}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got2["password"] != "hunter2" {
		t.Errorf("expected persisted value, got %q", got2["password"])
	}
	if len(prompter2.asked) != 0 {
		t.Errorf("fresh resolver should not prompt, asked %v", prompter2.asked)
	}
}

func TestResolve_EmptyPromptValue(t *testing.T) {
	prompter := &fakePrompter{answers: map[string]string{}}
	r := newTestResolver(t, mapEnv{}, prompter, true)

	_, err := r.Resolve("authkit", map[string]string{"email": ""}, nil)
	var eerr *EmptyCredentialError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected EmptyCredentialError, got %v", err)
	}
	if eerr.Key != "email" {
		t.Errorf("unexpected key %q", eerr.Key)
	}
}

func TestResolve_PromptError(t *testing.T) {
	prompter := &fakePrompter{err: fmt.Errorf("stdin closed")}
	r := newTestResolver(t, mapEnv{}, prompter, true)

	_, err := r.Resolve("authkit", map[string]string{"email": ""}, nil)
	if err == nil || !strings.Contains(err.Error(), "stdin closed") {
		t.Fatalf("expected prompt error, got %v", err)
	}
}

func TestResolve_UnmaskedForNonSecretKey(t *testing.T) {
	prompter := &fakePrompter{answers: map[string]string{"email": "a@b.c"}}
	r := newTestResolver(t, mapEnv{}, prompter, true)

	if _, err := r.Resolve("authkit", map[string]string{"email": ""}, nil); err != nil {
		t.Fatal(err)
	}
	if prompter.masked["email"] {
		t.Error("email prompt should not be masked")
	}
}
