// Package policy implements the declarative finding-governance rule engine.
// Rules are loaded from YAML or JSON policy files, matched against findings
// with AND-combined conditions, and apply layered effects (suppress, fail,
// warn, tag, severity override) to the findings in place.
package policy

import "fmt"

// Operator identifies a condition comparison.
type Operator string

// Condition operator constants.
const (
	OpEquals   Operator = "equals"
	OpContains Operator = "contains"
	OpRegex    Operator = "regex"
	OpGT       Operator = "gt"
	OpLT       Operator = "lt"
	OpIn       Operator = "in"
)

var validOperators = map[Operator]bool{
	OpEquals:   true,
	OpContains: true,
	OpRegex:    true,
	OpGT:       true,
	OpLT:       true,
	OpIn:       true,
}

// Action identifies the effect a matching rule applies to a finding.
type Action string

// Rule action constants.
const (
	ActionSuppress Action = "suppress"
	ActionFail     Action = "fail"
	ActionWarn     Action = "warn"
	ActionTag      Action = "tag"
)

var validActions = map[Action]bool{
	ActionSuppress: true,
	ActionFail:     true,
	ActionWarn:     true,
	ActionTag:      true,
}

// Condition is a single field/operator/value test. All conditions within a
// rule must match for the rule to apply.
type Condition struct {
	Field         string   `yaml:"field" json:"field"`
	Operator      Operator `yaml:"operator" json:"operator"`
	Value         any      `yaml:"value" json:"value"`
	CaseSensitive *bool    `yaml:"case_sensitive" json:"case_sensitive"`
}

// IsCaseSensitive reports the case-sensitivity setting; unset means true.
func (c Condition) IsCaseSensitive() bool {
	return c.CaseSensitive == nil || *c.CaseSensitive
}

// Rule is one declarative governance rule: a condition set plus an effect.
// A rule with zero conditions never matches; matching everything must be
// expressed explicitly, not by omission.
type Rule struct {
	ID               string         `yaml:"id" json:"id"`
	Name             string         `yaml:"name" json:"name"`
	Description      string         `yaml:"description" json:"description,omitempty"`
	Enabled          *bool          `yaml:"enabled" json:"enabled"`
	Conditions       []Condition    `yaml:"conditions" json:"conditions"`
	Action           Action         `yaml:"action" json:"action"`
	ActionConfig     map[string]any `yaml:"action_config" json:"action_config,omitempty"`
	SeverityOverride string         `yaml:"severity_override" json:"severity_override,omitempty"`
	Tags             []string       `yaml:"tags" json:"tags,omitempty"`
	Owner            string         `yaml:"owner" json:"owner,omitempty"`
	Reason           string         `yaml:"reason" json:"reason,omitempty"`
}

// IsEnabled reports whether the rule is active; unset means enabled.
func (r Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// File is one loaded policy document: an ordered list of rules plus pack
// metadata. Evaluation honors file-load order, then rule-declaration order
// within a file.
type File struct {
	Version     string         `yaml:"version" json:"version"`
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description,omitempty"`
	Settings    map[string]any `yaml:"settings" json:"settings,omitempty"`
	Rules       []Rule         `yaml:"rules" json:"rules"`

	// Source is the path the file was loaded from. Not serialized.
	Source string `yaml:"-" json:"-"`
}

// applyDefaults fills schema defaults on a freshly parsed policy file.
func (f *File) applyDefaults() {
	if f.Version == "" {
		f.Version = "1.0"
	}
	for i := range f.Rules {
		r := &f.Rules[i]
		if r.Action == "" {
			r.Action = ActionSuppress
		}
		for j := range r.Conditions {
			if r.Conditions[j].Operator == "" {
				r.Conditions[j].Operator = OpEquals
			}
		}
	}
}

// validate checks schema constraints. A file failing validation is rejected
// as a whole; its sibling files still load.
func (f *File) validate() error {
	if f.Name == "" {
		return fmt.Errorf("policy name must not be empty")
	}
	for i, r := range f.Rules {
		if r.ID == "" {
			return fmt.Errorf("rule %d: id must not be empty", i)
		}
		if r.Name == "" {
			return fmt.Errorf("rule %q: name must not be empty", r.ID)
		}
		if !validActions[r.Action] {
			return fmt.Errorf("rule %q: invalid action %q", r.ID, r.Action)
		}
		for j, c := range r.Conditions {
			if c.Field == "" {
				return fmt.Errorf("rule %q condition %d: field must not be empty", r.ID, j)
			}
			if !validOperators[c.Operator] {
				return fmt.Errorf("rule %q condition %d: invalid operator %q", r.ID, j, c.Operator)
			}
		}
	}
	return nil
}
