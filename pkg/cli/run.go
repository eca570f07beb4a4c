package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/weblab-dev/oauth-flow-runner/pkg/automator"
	"github.com/weblab-dev/oauth-flow-runner/pkg/browser"
	"github.com/weblab-dev/oauth-flow-runner/pkg/config"
	"github.com/weblab-dev/oauth-flow-runner/pkg/credentials"
	"github.com/weblab-dev/oauth-flow-runner/pkg/flow"
	"github.com/weblab-dev/oauth-flow-runner/pkg/logger"
	"github.com/weblab-dev/oauth-flow-runner/pkg/provider"
	"github.com/weblab-dev/oauth-flow-runner/pkg/report"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run a provider's OAuth flow",
	ArgsUsage: "<provider>",
	Description: `Run the named provider's flow against an OAuth authorization URL.

The provider must be built in or registered from a flow file passed
with --flows. Credentials are resolved from run overrides, the
environment, and the env file, in that order; anything still missing
is prompted for interactively unless --no-input is set.

Examples:
  oauth-flow-runner run github --url "https://github.com/login/oauth/authorize?..."
  oauth-flow-runner run dex -f flows/dex.yaml --url "$AUTH_URL" -c username=admin
  oauth-flow-runner run authkit --url "$AUTH_URL" --headless=false --mfa-code 123456`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "url",
			Usage:    "OAuth authorization URL to start from",
			Required: true,
			EnvVars:  []string{"OAUTH_RUNNER_URL"},
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to workspace config.yaml",
		},
		&cli.StringSliceFlag{
			Name:    "credential",
			Aliases: []string{"c"},
			Usage:   "Credential override (KEY=VALUE, repeatable)",
		},
		&cli.StringFlag{
			Name:  "mfa-code",
			Usage: "One-time code for the flow's MFA step",
		},
		&cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the browser headless",
			Value: true,
		},
	},
	Action: runAction,
}

func runAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one provider argument, got %d", c.NArg())
	}
	providerName := c.Args().First()

	log := logger.New(c.Bool("verbose"))

	cfg, err := loadWorkspaceConfig(c)
	if err != nil {
		return err
	}
	applyWorkspaceEnv(log, cfg.Env)

	registry, err := buildRegistry(c, cfg)
	if err != nil {
		return err
	}

	envFile := c.String("env-file")
	if cfg.EnvFile != "" && !c.IsSet("env-file") {
		envFile = cfg.EnvFile
	}
	resolver := newResolver(log, envFile, c.Bool("no-input"))

	overrides, err := parseOverrides(c.StringSlice("credential"))
	if err != nil {
		return err
	}

	flowCfg, err := registry.Get(providerName)
	if err != nil {
		return err
	}
	if headless := headlessSetting(c, cfg); headless != nil {
		// Registered configs are read-only; overriding means registering
		// a replacement copy.
		flowCfg = overrideHeadless(flowCfg, *headless)
		if err := registry.Register(flowCfg); err != nil {
			return err
		}
	}

	auto := automator.New(registry, resolver, browser.NewLauncher(log), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []automator.RunOption{automator.WithCredentialOverrides(overrides)}
	if code := c.String("mfa-code"); code != "" {
		opts = append(opts, automator.WithMFACode(code))
	}

	result, err := auto.Authenticate(ctx, c.String("url"), providerName, opts...)
	if err != nil {
		return err
	}

	run := report.NewRun(flowCfg.Provider, c.String("url"), result)
	report.Summary(os.Stdout, run)

	outputDir := c.String("output")
	if cfg.OutputDir != "" && !c.IsSet("output") {
		outputDir = cfg.OutputDir
	}
	path, err := report.WriteJSON(outputDir, run)
	if err != nil {
		return err
	}
	log.Info().Str("report", path).Msg("report written")

	if !result.Success {
		return cli.Exit("flow failed", 1)
	}
	return nil
}

func newResolver(log zerolog.Logger, envFile string, noInput bool) *credentials.Resolver {
	return credentials.NewResolver(envFile,
		credentials.WithLogger(log),
		credentials.WithAutoPrompt(!noInput),
	)
}

// applyWorkspaceEnv exports the workspace env entries, never overriding
// variables already set in the process.
func applyWorkspaceEnv(log zerolog.Logger, entries map[string]string) {
	for k, v := range entries {
		if _, exists := os.LookupEnv(k); exists {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("failed to apply workspace env entry")
		}
	}
}

// headlessSetting returns the effective headless override: the CLI flag when
// given, the workspace config otherwise, nil when neither applies.
func headlessSetting(c *cli.Context, cfg *config.Config) *bool {
	if c.IsSet("headless") {
		headless := c.Bool("headless")
		return &headless
	}
	return cfg.Headless
}

// overrideHeadless returns a copy of cfg with the headless setting applied,
// leaving the original untouched.
func overrideHeadless(cfg *flow.Config, headless bool) *flow.Config {
	copied := *cfg
	copied.BrowserOptions.Headless = &headless
	return &copied
}

func loadWorkspaceConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadFromDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace config: %w", err)
	}
	return cfg, nil
}

// buildRegistry starts from the built-in provider flows and layers any
// flows named on the command line or in the workspace config on top.
func buildRegistry(c *cli.Context, cfg *config.Config) (*provider.Registry, error) {
	registry := provider.Builtin()

	paths := append([]string(nil), cfg.Flows...)
	paths = append(paths, c.StringSlice("flows")...)

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("flow path %s: %w", path, err)
		}
		if info.IsDir() {
			if err := registerFlowDir(registry, path); err != nil {
				return nil, err
			}
			continue
		}
		if err := registry.RegisterFile(path); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func registerFlowDir(registry *provider.Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read flow directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := registry.RegisterFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func parseOverrides(pairs []string) (map[string]string, error) {
	overrides := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid credential %q, expected KEY=VALUE", pair)
		}
		overrides[key] = value
	}
	return overrides, nil
}
