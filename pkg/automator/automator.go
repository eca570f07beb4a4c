// Package automator ties the provider registry, credential resolver, browser
// launcher, and step executor into a single entry point for driving an OAuth
// authorization flow end to end.
package automator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/weblab-dev/oauth-flow-runner/pkg/core"
	"github.com/weblab-dev/oauth-flow-runner/pkg/credentials"
	"github.com/weblab-dev/oauth-flow-runner/pkg/executor"
	"github.com/weblab-dev/oauth-flow-runner/pkg/flow"
	"github.com/weblab-dev/oauth-flow-runner/pkg/provider"
)

// Automator authenticates against OAuth providers by replaying their
// registered flow scripts in a browser session.
type Automator struct {
	registry *provider.Registry
	resolver *credentials.Resolver
	launcher core.Launcher
	exec     *executor.Executor
	logger   zerolog.Logger
}

// New creates an automator.
func New(registry *provider.Registry, resolver *credentials.Resolver, launcher core.Launcher, logger zerolog.Logger) *Automator {
	return &Automator{
		registry: registry,
		resolver: resolver,
		launcher: launcher,
		exec:     executor.New(logger),
		logger:   logger,
	}
}

type runOptions struct {
	overrides   map[string]string
	mfaCode     string
	mfaProvider func(ctx context.Context) (string, error)
}

// RunOption customizes a single Authenticate call.
type RunOption func(*runOptions)

// WithCredentialOverrides supplies credential values that take precedence
// over the environment and any stored env file.
func WithCredentialOverrides(overrides map[string]string) RunOption {
	return func(o *runOptions) { o.overrides = overrides }
}

// WithMFACode supplies a known one-time code for the flow's MFA step.
func WithMFACode(code string) RunOption {
	return func(o *runOptions) { o.mfaCode = code }
}

// WithMFAProvider supplies a callback that produces a one-time code on
// demand, e.g. by polling a test inbox.
func WithMFAProvider(fn func(ctx context.Context) (string, error)) RunOption {
	return func(o *runOptions) { o.mfaProvider = fn }
}

// Authenticate runs providerName's flow against oauthURL. Failures before a
// browser exists (unknown provider, unresolvable credentials, launch errors)
// are returned as errors; step-level failures are reported inside the
// Result.
func (a *Automator) Authenticate(ctx context.Context, oauthURL, providerName string, opts ...RunOption) (*core.Result, error) {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	cfg, err := a.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	creds, err := a.resolveCredentials(cfg, &ro)
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("provider", cfg.Provider).
		Str("url", oauthURL).
		Int("steps", len(cfg.Steps)).
		Msg("starting authentication flow")

	session, err := a.launcher.Launch(ctx, cfg.BrowserOptions, cfg.PageOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			a.logger.Warn().Err(cerr).Msg("failed to close browser session")
		}
	}()

	fc := core.NewContext(oauthURL, creds)
	fc.MFACode = ro.mfaCode
	fc.MFAProvider = ro.mfaProvider

	result := a.exec.Run(ctx, session.Page(), cfg, fc)
	if result.Success {
		a.logger.Info().
			Str("provider", cfg.Provider).
			Dur("duration", result.Duration).
			Msg("authentication flow completed")
	}
	return result, nil
}

// resolveCredentials builds the flow's required credential set and resolves
// it. The mfa_code key is excluded when the flow handles MFA itself or a
// code source was supplied for this run.
func (a *Automator) resolveCredentials(cfg *flow.Config, ro *runOptions) (map[string]string, error) {
	required := make(map[string]string)
	for _, key := range cfg.RequiredCredentials() {
		if key == executor.MFACredentialKey && (cfg.HasMFAStep() || ro.mfaCode != "" || ro.mfaProvider != nil) {
			continue
		}
		required[key] = cfg.CredentialEnv[key]
	}

	creds, err := a.resolver.Resolve(cfg.Provider, required, ro.overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credentials: %w", err)
	}
	return creds, nil
}
