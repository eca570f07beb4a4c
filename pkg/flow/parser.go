package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weblab-dev/oauth-flow-runner/pkg/core"
)

// ParseError reports a flow document error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ParseFile parses a single YAML flow document.
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is a user-provided flow file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses YAML flow document content. Unknown actions and steps missing
// fields required by their action are rejected here, never at run time.
func Parse(data []byte, sourcePath string) (*Config, error) {
	var raw struct {
		Provider       string              `yaml:"provider"`
		Steps          []yaml.Node         `yaml:"steps"`
		BrowserOptions core.BrowserOptions `yaml:"browser_kwargs"`
		PageOptions    core.PageOptions    `yaml:"page_kwargs"`
		PostFlowSleep  float64             `yaml:"post_flow_sleep"`
		CredentialEnv  map[string]string   `yaml:"credential_env"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{
			Path:    sourcePath,
			Message: fmt.Sprintf("invalid flow document: %v", err),
		}
	}

	cfg := &Config{
		Provider:       strings.TrimSpace(raw.Provider),
		BrowserOptions: raw.BrowserOptions,
		PageOptions:    raw.PageOptions,
		PostFlowSleep:  raw.PostFlowSleep,
		CredentialEnv:  raw.CredentialEnv,
	}

	if cfg.Provider == "" {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    1,
			Message: "flow document requires a provider name",
		}
	}
	if len(raw.Steps) == 0 {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    1,
			Message: "flow document has no steps",
		}
	}

	for i := range raw.Steps {
		step, err := parseStep(&raw.Steps[i], sourcePath)
		if err != nil {
			return nil, err
		}
		cfg.Steps = append(cfg.Steps, step)
	}

	return cfg, nil
}

func parseStep(node *yaml.Node, sourcePath string) (Step, error) {
	if node.Kind != yaml.MappingNode {
		return Step{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "step must be a mapping",
		}
	}

	var step Step
	if err := node.Decode(&step); err != nil {
		return Step{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: err.Error(),
		}
	}

	if err := step.Validate(); err != nil {
		return Step{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: err.Error(),
		}
	}

	return step, nil
}

// ParseDirectory parses every YAML flow document in a directory tree.
func ParseDirectory(dir string) ([]*Config, error) {
	var configs []*Config

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		cfg, parseErr := ParseFile(path)
		if parseErr != nil {
			return parseErr
		}
		configs = append(configs, cfg)
		return nil
	})

	return configs, err
}
