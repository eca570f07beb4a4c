package provider

import (
	"github.com/weblab-dev/oauth-flow-runner/pkg/flow"
)

// Builtin returns a registry pre-loaded with the stock provider flows.
// These scripts are data: overriding one is just registering a replacement
// under the same name.
func Builtin() *Registry {
	r := NewRegistry()
	for _, cfg := range []*flow.Config{
		authkitFlow(),
		githubFlow(),
		googleFlow(),
	} {
		// Built-in flows are validated by tests; Register only fails on
		// invalid configs.
		if err := r.Register(cfg); err != nil {
			panic(err)
		}
	}
	return r
}

func authkitFlow() *flow.Config {
	return &flow.Config{
		Provider: "authkit",
		Steps: []flow.Step{
			{Action: flow.ActionGoto, Description: "open authorization url"},
			{
				Action:        flow.ActionFill,
				Description:   "enter email",
				Selector:      flow.SelectorList{`input[name="email"]`, `#email`, `input[type="email"]`},
				CredentialKey: "email",
			},
			{
				Action:      flow.ActionClick,
				Description: "continue past email",
				Selector:    flow.SelectorList{`button[type="submit"]`},
				Optional:    true,
				TimeoutSec:  5,
			},
			{
				Action:        flow.ActionFill,
				Description:   "enter password",
				Selector:      flow.SelectorList{`input[name="password"]`, `#password`, `input[type="password"]`},
				CredentialKey: "password",
			},
			{
				Action:           flow.ActionClick,
				Description:      "submit login",
				Selector:         flow.SelectorList{`button[type="submit"]`},
				ExpectNavigation: true,
			},
			{
				Action:      flow.ActionHandleMFA,
				Description: "enter one-time code if prompted",
				Selector:    flow.SelectorList{`input[name="code"]`, `input[autocomplete="one-time-code"]`},
				Optional:    true,
				TimeoutSec:  15,
			},
			{
				Action:       flow.ActionWaitForURL,
				Description:  "wait for redirect to callback",
				URLSubstring: "callback",
				TimeoutSec:   30,
			},
			{
				Action:      flow.ActionCaptureURL,
				Description: "capture authorization code",
				StoreKey:    "code",
				QueryParam:  "code",
			},
		},
		PostFlowSleep: 1,
	}
}

func githubFlow() *flow.Config {
	return &flow.Config{
		Provider: "github",
		Steps: []flow.Step{
			{Action: flow.ActionGoto, Description: "open authorization url"},
			{
				Action:        flow.ActionFill,
				Description:   "enter login",
				Selector:      flow.SelectorList{`input#login_field`, `input[name="login"]`},
				CredentialKey: "email",
			},
			{
				Action:        flow.ActionFill,
				Description:   "enter password",
				Selector:      flow.SelectorList{`input#password`, `input[name="password"]`},
				CredentialKey: "password",
			},
			{
				Action:           flow.ActionClick,
				Description:      "sign in",
				Selector:         flow.SelectorList{`input[name="commit"]`, `button[type="submit"]`},
				ExpectNavigation: true,
			},
			{
				Action:      flow.ActionHandleMFA,
				Description: "enter two-factor code if prompted",
				Selector:    flow.SelectorList{`input#app_totp`, `input[name="otp"]`},
				Optional:    true,
				TimeoutSec:  20,
			},
			{
				Action:      flow.ActionClick,
				Description: "authorize application if prompted",
				Selector:    flow.SelectorList{`button[name="authorize"]`, `button[id="js-oauth-authorize-btn"]`},
				Optional:    true,
				TimeoutSec:  8,
			},
			{
				Action:       flow.ActionWaitForURL,
				Description:  "wait for redirect to callback",
				URLSubstring: "code=",
				TimeoutSec:   30,
			},
			{
				Action:      flow.ActionCaptureURL,
				Description: "capture authorization code",
				StoreKey:    "code",
				QueryParam:  "code",
			},
		},
		CredentialEnv: map[string]string{
			"email":    "GITHUB_USERNAME",
			"password": "GITHUB_PASSWORD",
		},
		PostFlowSleep: 1,
	}
}

func googleFlow() *flow.Config {
	return &flow.Config{
		Provider: "google",
		Steps: []flow.Step{
			{Action: flow.ActionGoto, Description: "open authorization url"},
			{
				Action:        flow.ActionFill,
				Description:   "enter account email",
				Selector:      flow.SelectorList{`input#identifierId`, `input[type="email"]`},
				CredentialKey: "email",
			},
			{
				Action:           flow.ActionClick,
				Description:      "next after email",
				Selector:         flow.SelectorList{`#identifierNext button`, `button[type="submit"]`},
				ExpectNavigation: true,
			},
			{
				Action:          flow.ActionFill,
				Description:     "enter password",
				Selector:        flow.SelectorList{`input[name="Passwd"]`, `input[type="password"]`},
				CredentialKey:   "password",
				WaitForSelector: `input[name="Passwd"]`,
				TimeoutSec:      20,
			},
			{
				Action:           flow.ActionClick,
				Description:      "next after password",
				Selector:         flow.SelectorList{`#passwordNext button`, `button[type="submit"]`},
				ExpectNavigation: true,
			},
			{
				Action:      flow.ActionHandleMFA,
				Description: "enter verification code if prompted",
				Selector:    flow.SelectorList{`input[name="totpPin"]`},
				Optional:    true,
				TimeoutSec:  20,
			},
			{
				Action:      flow.ActionClick,
				Description: "approve consent screen if prompted",
				Selector:    flow.SelectorList{`button[jsname="LgbsSe"]`, `#submit_approve_access button`},
				Optional:    true,
				TimeoutSec:  8,
			},
			{
				Action:       flow.ActionWaitForURL,
				Description:  "wait for redirect to callback",
				URLSubstring: "code=",
				TimeoutSec:   45,
			},
			{
				Action:      flow.ActionCaptureURL,
				Description: "capture authorization code",
				StoreKey:    "code",
				QueryParam:  "code",
			},
		},
		PostFlowSleep: 2,
	}
}
