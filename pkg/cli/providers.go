package cli

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/weblab-dev/oauth-flow-runner/pkg/config"
	"github.com/weblab-dev/oauth-flow-runner/pkg/provider"
)

var providersCommand = &cli.Command{
	Name:  "providers",
	Usage: "List registered providers",
	Description: `List every provider flow the runner knows about, including built-ins
and any flows registered with --flows or the workspace config.`,
	Action: providersAction,
}

func providersAction(c *cli.Context) error {
	cfg, err := loadWorkspaceConfig(c)
	if err != nil {
		// The listing should still work outside a workspace.
		cfg = &config.Config{}
	}

	registry, err := buildRegistry(c, cfg)
	if err != nil {
		return err
	}

	builtin := provider.Builtin()
	for _, name := range registry.Providers() {
		flowCfg, err := registry.Get(name)
		if err != nil {
			return err
		}
		origin := "registered"
		if builtin.Contains(name) {
			origin = "built-in"
		}
		required := strings.Join(flowCfg.RequiredCredentials(), ", ")
		if required == "" {
			required = "none"
		}
		fmt.Printf("%-12s %-10s steps=%-3d credentials: %s\n", name, origin, len(flowCfg.Steps), required)
	}
	return nil
}
