package flow

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SelectorList holds one or more fallback selectors for a single step.
// The executor tries each in order until one resolves to a visible element.
type SelectorList []string

// UnmarshalYAML accepts either a single scalar selector or a sequence.
func (s *SelectorList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value != "" {
			*s = SelectorList{node.Value}
		}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		for _, sel := range list {
			if strings.TrimSpace(sel) == "" {
				return fmt.Errorf("selector list contains an empty entry")
			}
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("selector must be a string or a list of strings")
	}
}

// MarshalYAML emits a scalar for single-selector lists.
func (s SelectorList) MarshalYAML() (interface{}, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	return []string(s), nil
}

// Describe returns the primary selector, noting fallbacks.
func (s SelectorList) Describe() string {
	switch len(s) {
	case 0:
		return "<no selector>"
	case 1:
		return s[0]
	default:
		return fmt.Sprintf("%s (+%d fallbacks)", s[0], len(s)-1)
	}
}
