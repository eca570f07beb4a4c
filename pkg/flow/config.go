package flow

import (
	"fmt"

	"github.com/weblab-dev/oauth-flow-runner/pkg/core"
)

// Config is one provider's complete login flow: an ordered script of steps
// plus the browser/page launch options to run it with. Constructed once at
// registration time and reused read-only across every run.
type Config struct {
	Provider string `yaml:"provider"`
	Steps    []Step `yaml:"steps"`

	BrowserOptions core.BrowserOptions `yaml:"browser_kwargs"`
	PageOptions    core.PageOptions    `yaml:"page_kwargs"`

	// PostFlowSleep pauses for the given seconds after the last step,
	// letting late redirects land before the session closes.
	PostFlowSleep float64 `yaml:"post_flow_sleep"`

	// CredentialEnv optionally maps a credential key to an explicit
	// fallback environment variable, probed after the OAUTH_* convention.
	CredentialEnv map[string]string `yaml:"credential_env"`
}

// Validate checks the config and every step in it.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("flow config requires a provider name")
	}
	if len(c.Steps) == 0 {
		return fmt.Errorf("flow config for %q has no steps", c.Provider)
	}
	for i, step := range c.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// RequiredCredentials returns the distinct credential keys referenced across
// the steps, in first-seen order.
func (c *Config) RequiredCredentials() []string {
	var keys []string
	seen := make(map[string]bool)
	for _, step := range c.Steps {
		if step.CredentialKey == "" || seen[step.CredentialKey] {
			continue
		}
		seen[step.CredentialKey] = true
		keys = append(keys, step.CredentialKey)
	}
	return keys
}

// HasMFAStep reports whether the flow contains a handle_mfa step. When it
// does, the "mfa_code" credential is supplied at run time rather than
// resolved up front.
func (c *Config) HasMFAStep() bool {
	for _, step := range c.Steps {
		if step.Action == ActionHandleMFA {
			return true
		}
	}
	return false
}
