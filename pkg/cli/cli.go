// Package cli provides the command-line interface for oauth-flow-runner.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "env-file",
		Usage:   "Dotenv file holding stored credentials",
		Value:   ".env",
		EnvVars: []string{"OAUTH_RUNNER_ENV_FILE"},
	},
	&cli.StringSliceFlag{
		Name:    "flows",
		Aliases: []string{"f"},
		Usage:   "Flow file or directory with extra provider flows (repeatable)",
		EnvVars: []string{"OAUTH_RUNNER_FLOWS"},
	},
	&cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output directory for JSON run reports",
		Value:   "./reports",
		EnvVars: []string{"OAUTH_RUNNER_OUTPUT"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"OAUTH_RUNNER_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:    "no-input",
		Usage:   "Never prompt for missing credentials, fail instead",
		EnvVars: []string{"OAUTH_RUNNER_NO_INPUT"},
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "oauth-flow-runner",
		Usage:   "Browser automation runner for OAuth authorization flows",
		Version: Version,
		Description: `oauth-flow-runner replays declarative provider flow scripts in a
real browser to complete OAuth authorization for integration tests.

Examples:
  oauth-flow-runner run github --url "https://example.com/authorize?..."
  oauth-flow-runner run authkit --url "$AUTH_URL" --headless=false
  oauth-flow-runner validate flows/
  oauth-flow-runner providers`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			runCommand,
			validateCommand,
			providersCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
