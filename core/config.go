// Package core provides the shared finding-governance pipeline for yavs.
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yavs-hq/yavs/core/findings"
)

// Config holds project-level governance configuration loaded from .yavs.yaml.
type Config struct {
	Baseline BaselineSettings `yaml:"baseline"`
	Policy   PolicySettings   `yaml:"policy"`
	Severity SeveritySettings `yaml:"severity"`
}

// BaselineSettings controls baseline comparison behavior.
type BaselineSettings struct {
	Path    string `yaml:"path"`     // baseline file location (default: .yavs/baseline.json)
	NewOnly bool   `yaml:"new_only"` // drop baselined findings from output
}

// PolicySettings lists the policy files and directories to evaluate.
type PolicySettings struct {
	Paths []string `yaml:"paths"`
}

// SeveritySettings remaps scanner-reported severity strings. The mapping is
// carried as explicit configuration, never as process-wide state.
type SeveritySettings struct {
	Mapping map[string]string `yaml:"mapping"`
}

// SeverityMapping converts the configured mapping to the findings package
// representation. Returns nil when no mapping is configured.
func (s SeveritySettings) SeverityMapping() findings.SeverityMapping {
	if len(s.Mapping) == 0 {
		return nil
	}
	m := make(findings.SeverityMapping, len(s.Mapping))
	for k, v := range s.Mapping {
		m[k] = findings.NormalizeSeverity(v, nil)
	}
	return m
}

// LoadConfig reads .yavs.yaml from root and returns the parsed config.
// If the file does not exist, a zero-value Config is returned with no error.
func LoadConfig(root string) (*Config, error) {
	path := filepath.Join(root, ".yavs.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &cfg, nil
}
