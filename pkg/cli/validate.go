package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/weblab-dev/oauth-flow-runner/pkg/flow"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Validate flow files without running them",
	ArgsUsage: "<flow-file-or-folder>...",
	Description: `Parse and validate provider flow files. Exits non-zero on the first
invalid file, printing the file, line, and reason.

Examples:
  oauth-flow-runner validate flows/github.yaml
  oauth-flow-runner validate flows/`,
	Action: validateAction,
}

func validateAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("expected at least one flow file or directory")
	}

	total := 0
	for _, path := range c.Args().Slice() {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("flow path %s: %w", path, err)
		}

		if info.IsDir() {
			configs, err := flow.ParseDirectory(path)
			if err != nil {
				return err
			}
			for _, cfg := range configs {
				fmt.Printf("ok: %s (%d steps)\n", cfg.Provider, len(cfg.Steps))
			}
			total += len(configs)
			continue
		}

		cfg, err := flow.ParseFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("ok: %s (%d steps)\n", cfg.Provider, len(cfg.Steps))
		total++
	}

	fmt.Printf("%d flow(s) valid\n", total)
	return nil
}
