package fsm

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config carries inference hints for one controller. All fields are
// advisory except StateVar, which overrides candidate ranking.
type Config struct {
	StateVar        string              `yaml:"state_var" json:"state_var,omitempty"`
	ExplicitStates  []string            `yaml:"explicit_states" json:"explicit_states,omitempty"`
	TransitionHints map[string][]string `yaml:"transition_hints" json:"transition_hints,omitempty"`
}

// HintsFile maps controller names to inference hints. The entry named
// "default" applies to controllers with no entry of their own.
type HintsFile struct {
	Controllers map[string]Config `yaml:"controllers"`
}

// LoadHints reads a YAML hints file.
func LoadHints(path string) (*HintsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fsm hints: %w", err)
	}
	var hf HintsFile
	if err := yaml.Unmarshal(data, &hf); err != nil {
		return nil, fmt.Errorf("parsing fsm hints %s: %w", path, err)
	}
	return &hf, nil
}

// For returns the hints for a controller, falling back to the
// "default" entry, or nil when neither exists.
func (h *HintsFile) For(controller string) *Config {
	if h == nil {
		return nil
	}
	if cfg, ok := h.Controllers[controller]; ok {
		return &cfg
	}
	if cfg, ok := h.Controllers["default"]; ok {
		return &cfg
	}
	return nil
}

// Coverage reports how the inferred model lines up with the hints:
// what the hints expected but inference missed, and what inference
// found beyond the hints. It never alters the model.
type Coverage struct {
	MissingStates      []string `json:"missing_states,omitempty"`
	ExtraStates        []string `json:"extra_states,omitempty"`
	MissingTransitions []string `json:"missing_transitions,omitempty"`
	ExtraTransitions   []string `json:"extra_transitions,omitempty"`
}

func (c *Coverage) empty() bool {
	return len(c.MissingStates) == 0 && len(c.ExtraStates) == 0 &&
		len(c.MissingTransitions) == 0 && len(c.ExtraTransitions) == 0
}

// compareHints validates advisory hints against the inferred model.
func compareHints(m Model, cfg *Config) *Coverage {
	if len(cfg.ExplicitStates) == 0 && len(cfg.TransitionHints) == 0 {
		return nil
	}
	cov := &Coverage{}

	inferred := map[string]bool{}
	for _, s := range m.States {
		inferred[s.Name] = true
	}
	hinted := map[string]bool{}
	for _, s := range cfg.ExplicitStates {
		hinted[s] = true
		if !inferred[s] {
			cov.MissingStates = append(cov.MissingStates, s)
		}
	}
	if len(hinted) > 0 {
		for _, s := range m.States {
			if !hinted[s.Name] {
				cov.ExtraStates = append(cov.ExtraStates, s.Name)
			}
		}
	}

	inferredTr := map[string]bool{}
	for _, tr := range m.Transitions {
		inferredTr[tr.From+"->"+tr.To] = true
	}
	hintedTr := map[string]bool{}
	for from, tos := range cfg.TransitionHints {
		for _, to := range tos {
			key := from + "->" + to
			hintedTr[key] = true
			if !inferredTr[key] {
				cov.MissingTransitions = append(cov.MissingTransitions, key)
			}
		}
	}
	if len(hintedTr) > 0 {
		for key := range inferredTr {
			if !hintedTr[key] {
				cov.ExtraTransitions = append(cov.ExtraTransitions, key)
			}
		}
	}
	sort.Strings(cov.MissingStates)
	sort.Strings(cov.MissingTransitions)
	sort.Strings(cov.ExtraTransitions)
	if cov.empty() {
		return nil
	}
	return cov
}
