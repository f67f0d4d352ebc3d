package policy

import (
	"strings"

	"github.com/yavs-hq/yavs/core/findings"
)

// fieldValue resolves a dotted-path condition field against a finding. The
// first segment names a finding field; paths continuing past "metadata"
// traverse the nested metadata maps. The boolean return distinguishes
// "absent" from "present but nil": traversal through a non-map value or a
// missing key at any step reports absent, and an absent field matches no
// operator.
func fieldValue(f *findings.Finding, path string) (any, bool) {
	parts := strings.Split(path, ".")
	head, rest := parts[0], parts[1:]

	var v any
	switch head {
	case "tool":
		v = f.Tool
	case "category":
		v = f.Category
	case "severity":
		v = string(f.Severity)
	case "file":
		v = f.File
	case "line":
		v = f.Line
	case "rule_id":
		v = f.RuleID
	case "message":
		v = f.Message
	case "metadata":
		v = anyMap(f.Metadata)
	case "suppressed":
		v = f.Suppressed
	case "suppression_reason":
		v = f.SuppressionReason
	case "suppressed_by_policy":
		v = f.SuppressedByPolicy
	case "policy_violation":
		v = f.PolicyViolation
	case "policy_rule":
		v = f.PolicyRule
	case "fail_build":
		v = f.FailBuild
	case "policy_warning":
		v = f.PolicyWarning
	case "policy_tags":
		v = anySlice(f.PolicyTags)
	default:
		return nil, false
	}

	if len(rest) == 0 {
		return v, true
	}
	return traverse(v, rest)
}

// traverse walks the remaining path segments through nested generic maps.
func traverse(v any, parts []string) (any, bool) {
	for _, part := range parts {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

func anyMap(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}

func anySlice(s []string) any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
