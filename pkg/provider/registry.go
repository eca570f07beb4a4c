// Package provider maintains the lookup table from provider name to login
// flow configuration.
package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/weblab-dev/oauth-flow-runner/pkg/flow"
)

// NotFoundError is returned by Get for an unregistered provider. Its message
// enumerates the currently registered names; that listing is part of the
// contract.
type NotFoundError struct {
	Provider string
	Known    []string
}

func (e *NotFoundError) Error() string {
	known := "<none>"
	if len(e.Known) > 0 {
		known = strings.Join(e.Known, ", ")
	}
	return fmt.Sprintf("provider %q is not registered (registered providers: %s)", e.Provider, known)
}

// Registry maps lower-cased provider names to flow configs. Safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]*flow.Config
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]*flow.Config)}
}

// Register validates and stores a config, overwriting any existing entry for
// the same provider name (case-insensitive).
func (r *Registry) Register(cfg *flow.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[strings.ToLower(cfg.Provider)] = cfg
	return nil
}

// RegisterData registers a flow from an in-memory mapping, running it
// through the same validated parse path as external documents.
func (r *Registry) RegisterData(data map[string]interface{}) error {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode flow data: %w", err)
	}
	cfg, err := flow.Parse(raw, "<data>")
	if err != nil {
		return err
	}
	return r.Register(cfg)
}

// RegisterFile parses an external flow document and registers it.
func (r *Registry) RegisterFile(path string) error {
	cfg, err := flow.ParseFile(path)
	if err != nil {
		return err
	}
	return r.Register(cfg)
}

// Get returns the config for a provider name, case-insensitively.
func (r *Registry) Get(provider string) (*flow.Config, error) {
	r.mu.RLock()
	cfg, ok := r.configs[strings.ToLower(provider)]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Provider: provider, Known: r.Providers()}
	}
	return cfg, nil
}

// Contains reports whether a provider is registered.
func (r *Registry) Contains(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.configs[strings.ToLower(provider)]
	return ok
}

// Providers returns the sorted list of registered provider names.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
