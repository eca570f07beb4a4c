// Package credentials resolves the credential values a login flow needs,
// from caller overrides, environment variables, or interactive prompting.
package credentials

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Env abstracts the process environment so resolution is testable without
// touching real environment variables.
type Env interface {
	Lookup(key string) (string, bool)
	Set(key, value string) error
}

type osEnv struct{}

func (osEnv) Lookup(key string) (string, bool) { return os.LookupEnv(key) }
func (osEnv) Set(key, value string) error      { return os.Setenv(key, value) }

// OSEnv returns the real process environment.
func OSEnv() Env { return osEnv{} }

// Prompter asks the user for a credential value interactively.
type Prompter interface {
	// Prompt asks for key; masked hides the typed input.
	Prompt(key string, masked bool) (string, error)
}

// MissingKey describes one unresolved credential and the environment
// variables that would have satisfied it, in probe order.
type MissingKey struct {
	Key        string
	Candidates []string
}

// MissingCredentialsError reports keys that could not be resolved while
// auto-prompting is disabled.
type MissingCredentialsError struct {
	Provider string
	Missing  []MissingKey
}

func (e *MissingCredentialsError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		parts[i] = fmt.Sprintf("%s (set %s)", m.Key, strings.Join(m.Candidates, " or "))
	}
	return fmt.Sprintf("missing credentials for provider %q: %s", e.Provider, strings.Join(parts, "; "))
}

// EmptyCredentialError reports an empty value entered at a prompt.
type EmptyCredentialError struct {
	Key string
}

func (e *EmptyCredentialError) Error() string {
	return fmt.Sprintf("empty value entered for credential %q", e.Key)
}

// Resolver resolves credential keys to values. The environment accessor,
// prompter and env-file path are injected so resolution is deterministic in
// tests. A single mutex serializes env-file writes; the file itself is not
// safe for unsynchronized concurrent read-modify-write.
type Resolver struct {
	env        Env
	prompter   Prompter
	envFile    string
	autoPrompt bool
	logger     zerolog.Logger

	mu sync.Mutex
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithEnv injects an environment accessor.
func WithEnv(env Env) Option { return func(r *Resolver) { r.env = env } }

// WithPrompter injects a prompter.
func WithPrompter(p Prompter) Option { return func(r *Resolver) { r.prompter = p } }

// WithAutoPrompt enables or disables interactive prompting for missing keys.
func WithAutoPrompt(on bool) Option { return func(r *Resolver) { r.autoPrompt = on } }

// WithLogger sets the resolver's logger.
func WithLogger(l zerolog.Logger) Option { return func(r *Resolver) { r.logger = l } }

// NewResolver builds a resolver persisting to envFile. Values already in the
// env file are loaded into the environment accessor up front, so credentials
// persisted by earlier runs resolve without prompting.
func NewResolver(envFile string, opts ...Option) *Resolver {
	r := &Resolver{
		env:        OSEnv(),
		prompter:   NewTerminalPrompter(),
		envFile:    envFile,
		autoPrompt: true,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.bootstrap()
	return r
}

// bootstrap merges env-file entries into the environment accessor without
// overriding values that are already set.
func (r *Resolver) bootstrap() {
	if r.envFile == "" {
		return
	}
	values, err := godotenv.Read(r.envFile)
	if err != nil {
		// A missing env file is the normal first-run state.
		return
	}
	for key, value := range values {
		if _, ok := r.env.Lookup(key); !ok {
			if err := r.env.Set(key, value); err != nil {
				r.logger.Warn().Err(err).Str("key", key).Msg("failed to import env file entry")
			}
		}
	}
}

// envCandidates returns the environment variable names probed for a key, in
// order: provider-scoped, generic, then the explicit fallback if any.
func envCandidates(provider, key, fallback string) []string {
	names := []string{
		fmt.Sprintf("OAUTH_%s_%s", strings.ToUpper(provider), strings.ToUpper(key)),
		fmt.Sprintf("OAUTH_%s", strings.ToUpper(key)),
	}
	if fallback != "" {
		names = append(names, fallback)
	}
	return names
}

// Resolve produces a value for every required key. required maps each key to
// an optional explicit fallback environment variable ("" for none).
// Precedence per key: overrides, then environment candidates in order, then
// an interactive prompt when auto-prompting is enabled. Prompted values are
// persisted to the env file and set in the environment accessor so later
// resolutions in the same process do not prompt again.
func (r *Resolver) Resolve(provider string, required map[string]string, overrides map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(required))

	keys := make([]string, 0, len(required))
	for key := range required {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var missing []MissingKey
	for _, key := range keys {
		if value, ok := overrides[key]; ok {
			resolved[key] = value
			continue
		}

		candidates := envCandidates(provider, key, required[key])
		found := false
		for _, name := range candidates {
			if value, ok := r.env.Lookup(name); ok && value != "" {
				resolved[key] = value
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, MissingKey{Key: key, Candidates: candidates})
		}
	}

	if len(missing) == 0 {
		return resolved, nil
	}

	if !r.autoPrompt {
		return nil, &MissingCredentialsError{Provider: provider, Missing: missing}
	}

	for _, m := range missing {
		value, err := r.prompter.Prompt(m.Key, isSecretKey(m.Key))
		if err != nil {
			return nil, fmt.Errorf("failed to prompt for %q: %w", m.Key, err)
		}
		if value == "" {
			return nil, &EmptyCredentialError{Key: m.Key}
		}

		envName := fmt.Sprintf("OAUTH_%s_%s", strings.ToUpper(provider), strings.ToUpper(m.Key))
		if err := r.persist(envName, value); err != nil {
			return nil, err
		}
		if err := r.env.Set(envName, value); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", envName, err)
		}
		r.logger.Info().Str("key", m.Key).Str("env", envName).Msg("credential stored")
		resolved[m.Key] = value
	}

	return resolved, nil
}

// persist writes KEY=VALUE into the env file, updating an existing line in
// place or appending a new one. Writes are serialized; concurrent resolvers
// sharing one file must share one Resolver.
func (r *Resolver) persist(key, value string) error {
	if r.envFile == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := upsertEnvLine(r.envFile, key, value); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

// isSecretKey reports whether a credential key should be masked at the
// prompt.
func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "password") ||
		strings.Contains(lower, "secret") ||
		strings.Contains(lower, "token")
}
