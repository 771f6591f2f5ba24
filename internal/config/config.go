package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the top-level configuration for crossplc
type Config struct {
	// Inputs declares where controller IR documents come from
	Inputs InputsConfig `json:"inputs,omitempty"`

	// Overlays is a list of glob patterns for overlay documents
	Overlays []string `json:"overlays,omitempty"`

	// StrictOverlays records a diagnostic for every controller without
	// a matching overlay
	StrictOverlays bool `json:"strictOverlays,omitempty"`

	// Audit contains audit rule configuration
	Audit AuditConfig `json:"audit,omitempty"`

	// FSM contains state machine inference options
	FSM FSMConfig `json:"fsm,omitempty"`

	// Analysis contains analysis options
	Analysis AnalysisConfig `json:"analysis,omitempty"`
}

// InputsConfig declares controller IR sources
type InputsConfig struct {
	// Controllers is a list of glob patterns for controller IR files
	Controllers []string `json:"controllers"`

	// Exclude is a list of glob patterns to drop from the expansion
	Exclude []string `json:"exclude,omitempty"`
}

// AuditConfig contains audit rule configuration
type AuditConfig struct {
	// Rules maps rule names to severity: "off", "info", "warning", "error"
	Rules map[string]string `json:"rules,omitempty"`

	// RulesDir holds additional .rego rule files
	RulesDir string `json:"rulesDir,omitempty"`
}

// FSMConfig contains state machine inference options
type FSMConfig struct {
	// HintsFile points at a YAML hints document
	HintsFile string `json:"hintsFile,omitempty"`
}

// CacheConfig controls the controller load cache
type CacheConfig struct {
	// Enabled turns on content-hash caching of validated controllers
	Enabled *bool `json:"enabled,omitempty"`

	// Dir is the cache directory (relative to project root if not absolute)
	Dir string `json:"dir,omitempty"`
}

// AnalysisConfig contains analysis options
type AnalysisConfig struct {
	// Cache controls the controller load cache
	Cache CacheConfig `json:"cache,omitempty"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Inputs: InputsConfig{
			Controllers: []string{"*.ir.json", "**/*.ir.json"},
		},
		Audit: AuditConfig{
			Rules: map[string]string{},
		},
		Analysis: AnalysisConfig{
			Cache: CacheConfig{
				Enabled: boolPtr(true),
				Dir:     ".crossplc_cache",
			},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// Load finds and loads the configuration file.
// Search order:
//  1. ./crossplc.json (current working directory)
//  2. ./.crossplc.json (current working directory)
//  3. <rootPath>/crossplc.json, <rootPath>/.crossplc.json (if different from cwd)
//  4. ~/.config/crossplc/config.json
//
// Returns DefaultConfig if no config file is found.
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "crossplc.json"),
		filepath.Join(cwd, ".crossplc.json"),
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(rootPath, "crossplc.json"),
				filepath.Join(rootPath, ".crossplc.json"),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "crossplc", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if len(c.Inputs.Controllers) == 0 {
		c.Inputs.Controllers = []string{"*.ir.json", "**/*.ir.json"}
	}

	if c.Audit.Rules == nil {
		c.Audit.Rules = make(map[string]string)
	}

	if c.Analysis.Cache.Dir == "" {
		c.Analysis.Cache.Dir = ".crossplc_cache"
	}
	if c.Analysis.Cache.Enabled == nil {
		c.Analysis.Cache.Enabled = boolPtr(true)
	}
}

// CacheDir returns the effective cache directory, or "" when the
// cache is disabled
func (c *Config) CacheDir(rootPath string) string {
	if c.Analysis.Cache.Enabled != nil && !*c.Analysis.Cache.Enabled {
		return ""
	}
	dir := c.Analysis.Cache.Dir
	if dir == "" {
		dir = ".crossplc_cache"
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(rootPath, dir)
	}
	return dir
}

// Severities splits the audit rule configuration into severity
// overrides and disabled rules
func (c *Config) Severities() (map[string]string, map[string]bool) {
	overrides := make(map[string]string)
	disabled := make(map[string]bool)
	for rule, sev := range c.Audit.Rules {
		if sev == "off" {
			disabled[rule] = true
			continue
		}
		overrides[rule] = sev
	}
	return overrides, disabled
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
