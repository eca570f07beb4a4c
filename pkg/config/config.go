// Package config handles workspace configuration for oauth-flow-runner.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	// Flow selection
	Flows []string `yaml:"flows"` // Extra flow files or directories to register

	// Credential settings
	EnvFile string `yaml:"envFile"` // Dotenv file for stored credentials

	// Browser settings
	Headless *bool `yaml:"headless"` // Overrides per-flow browser settings

	// Reporting
	OutputDir string `yaml:"outputDir"` // Directory for JSON run reports

	// Execution settings
	Env map[string]string `yaml:"env"` // Extra environment variables
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return empty config
	return &Config{}, nil
}
