package policy

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/yavs-hq/yavs/core/findings"
)

// Engine holds an ordered list of loaded policy files and evaluates their
// rules against findings. Evaluation order is file-load order, then
// rule-declaration order within each file; effects are applied to a finding
// in that same order, which gives last-write-wins semantics for suppression
// reasons and severity overrides.
type Engine struct {
	policies []*File
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for load and evaluation diagnostics.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New builds an Engine from the given policy file and directory paths.
// Files that fail to parse or validate are logged and skipped; the engine
// always constructs, possibly with reduced coverage.
func New(policyPaths []string, opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.policies = loadPaths(policyPaths, e.logger)
	return e
}

// Policies returns the loaded policy files in evaluation order.
func (e *Engine) Policies() []*File {
	return e.policies
}

// RuleCount returns the total number of rules across all loaded policies.
func (e *Engine) RuleCount() int {
	n := 0
	for _, p := range e.policies {
		n += len(p.Rules)
	}
	return n
}

// Evaluate applies all matching enabled rules to each finding in place and
// returns the slice in its original order. It never fails: malformed
// conditions degrade to non-matches.
func (e *Engine) Evaluate(ff []findings.Finding) []findings.Finding {
	for i := range ff {
		matched := e.matchingRules(&ff[i])
		if len(matched) > 0 {
			applyRules(&ff[i], matched)
		}
	}
	return ff
}

// matchingRules returns every enabled rule whose conditions all match the
// finding, preserving evaluation order.
func (e *Engine) matchingRules(f *findings.Finding) []Rule {
	var matched []Rule
	for _, p := range e.policies {
		for _, r := range p.Rules {
			if !r.IsEnabled() {
				continue
			}
			if e.ruleMatches(r, f) {
				matched = append(matched, r)
			}
		}
	}
	return matched
}

// ruleMatches reports whether all of a rule's conditions match (AND logic).
// A rule with zero conditions never matches.
func (e *Engine) ruleMatches(r Rule, f *findings.Finding) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	for _, c := range r.Conditions {
		if !e.conditionMatches(c, f) {
			return false
		}
	}
	return true
}

// conditionMatches evaluates a single condition against a finding. Absent
// fields match nothing.
func (e *Engine) conditionMatches(c Condition, f *findings.Finding) bool {
	v, ok := fieldValue(f, c.Field)
	if !ok || v == nil {
		return false
	}

	switch c.Operator {
	case OpEquals:
		return looseEqual(v, c.Value, c.IsCaseSensitive())
	case OpContains:
		haystack := stringify(v)
		needle := stringify(c.Value)
		if !c.IsCaseSensitive() {
			return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
		}
		return strings.Contains(haystack, needle)
	case OpRegex:
		re, err := regexp.Compile(stringify(c.Value))
		if err != nil {
			e.logger.Error("invalid regex pattern in policy condition", "pattern", c.Value, "error", err)
			return false
		}
		return re.MatchString(stringify(v))
	case OpGT:
		fv, cv, ok := numericPair(v, c.Value)
		return ok && fv > cv
	case OpLT:
		fv, cv, ok := numericPair(v, c.Value)
		return ok && fv < cv
	case OpIn:
		items, ok := c.Value.([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			if looseEqual(v, item, true) {
				return true
			}
		}
		return false
	}
	return false
}

// applyRules applies each matched rule's effect to the finding in order.
// Effects are additive across actions; suppression reason/id, policy_rule,
// and severity overrides are last-write-wins by construction.
func applyRules(f *findings.Finding, rules []Rule) {
	for _, r := range rules {
		switch r.Action {
		case ActionSuppress:
			f.Suppressed = true
			if r.Reason != "" {
				f.SuppressionReason = r.Reason
			} else {
				f.SuppressionReason = fmt.Sprintf("Policy: %s", r.Name)
			}
			f.SuppressedByPolicy = r.ID
		case ActionFail:
			f.PolicyViolation = true
			f.PolicyRule = r.ID
			f.FailBuild = failBuildSetting(r.ActionConfig)
		case ActionWarn:
			f.PolicyWarning = true
			f.PolicyRule = r.ID
		case ActionTag:
			if f.PolicyTags == nil {
				f.PolicyTags = []string{}
			}
			f.PolicyTags = append(f.PolicyTags, r.Tags...)
		}

		// Severity override is orthogonal to the action: every matching
		// rule that declares one applies it, last writer wins.
		if r.SeverityOverride != "" {
			f.Severity = findings.Severity(r.SeverityOverride)
		}
	}
}

// failBuildSetting reads action_config.fail_build, defaulting to true.
func failBuildSetting(cfg map[string]any) bool {
	if v, ok := cfg["fail_build"].(bool); ok {
		return v
	}
	return true
}

// looseEqual compares a field value against a condition value. Strings
// compare as strings, honoring the case-sensitivity flag; numeric values
// compare numerically across int/float representations, matching the
// behavior of dynamically typed policy sources where 5 == 5.0.
func looseEqual(a, b any, caseSensitive bool) bool {
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		if !caseSensitive {
			return strings.EqualFold(as, bs)
		}
		return as == bs
	}
	if aIsStr || bIsStr {
		// A string never equals a number; numeric-string coercion is
		// reserved for the ordering operators.
		return false
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
	}
	return false
}

// numericPair coerces both sides of an ordering comparison to float64.
// Either side failing to coerce makes the condition a non-match rather than
// an error.
func numericPair(a, b any) (float64, float64, bool) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return af, bf, aok && bok
}

// toFloat coerces numeric types and numeric strings to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// stringify renders a field or condition value for substring and regex
// matching. Non-string values use their natural formatting.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
