// Package findings defines the canonical security findings model shared by
// every stage of the yavs governance pipeline. Upstream scanner adapters
// produce Finding values; the aggregator, baseline store, and policy engine
// consume and annotate them before they reach downstream reporters.
package findings

// Severity indicates how critical a finding is. Values are stored in their
// normalized upper-case form; use NormalizeSeverity when ingesting raw
// scanner output.
type Severity string

// Severity level constants ordered from most to least severe.
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
	SeverityUnknown  Severity = "UNKNOWN"
)

// Finding category constants. A finding with an unrecognized or absent
// category is bucketed under CategoryUnknown.
const (
	CategoryDependency = "dependency"
	CategorySAST       = "sast"
	CategoryCompliance = "compliance"
	CategorySecret     = "secret"
	CategoryLicense    = "license"
	CategoryConfig     = "config"
	CategoryIaC        = "iac"
	CategoryUnknown    = "unknown"
)

// Finding is a single normalized security or compliance observation. The
// scan-result fields (Tool through Metadata) are immutable once ingested;
// the annotation fields are written only by the policy engine. A finding's
// identity is always derived from the immutable fields, so re-running
// policy evaluation never changes a fingerprint.
type Finding struct {
	Tool     string         `json:"tool"`
	Category string         `json:"category,omitempty"`
	Severity Severity       `json:"severity,omitempty"`
	File     string         `json:"file,omitempty"`
	Line     int            `json:"line,omitempty"`
	RuleID   string         `json:"rule_id,omitempty"`
	Message  string         `json:"message,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// Annotations added by policy evaluation.
	Suppressed         bool     `json:"suppressed,omitempty"`
	SuppressionReason  string   `json:"suppression_reason,omitempty"`
	SuppressedByPolicy string   `json:"suppressed_by_policy,omitempty"`
	PolicyViolation    bool     `json:"policy_violation,omitempty"`
	PolicyRule         string   `json:"policy_rule,omitempty"`
	FailBuild          bool     `json:"fail_build,omitempty"`
	PolicyWarning      bool     `json:"policy_warning,omitempty"`
	PolicyTags         []string `json:"policy_tags,omitempty"`
}

// severityRank maps severity levels to numeric ranks for ordering.
// Lower rank = more severe. Unrecognized severities rank below INFO.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
	SeverityUnknown:  5,
}

const unknownRank = 5

// Rank returns the numeric ordering rank for a severity. Lower is more
// severe; anything outside the known set ranks last.
func Rank(s Severity) int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return unknownRank
}

// SeverityMapping remaps raw scanner-reported severity strings to canonical
// levels. Keys are matched case-insensitively. The mapping is passed
// explicitly into normalization rather than held as process-wide state so
// that pipelines with different mappings cannot interfere.
type SeverityMapping map[string]Severity

// NormalizeSeverity converts a raw severity string to its canonical form.
// The mapping, when non-nil, is consulted first; otherwise the value is
// upper-cased and validated. Absent or unrecognized values normalize to
// SeverityUnknown.
func NormalizeSeverity(raw string, mapping SeverityMapping) Severity {
	if mapping != nil {
		if mapped, ok := lookupMapping(mapping, raw); ok {
			return mapped
		}
	}
	upper := Severity(upperASCII(raw))
	if _, ok := severityRank[upper]; ok {
		return upper
	}
	return SeverityUnknown
}

// Normalize canonicalizes the severity of every finding in place and fills
// an absent category with CategoryUnknown. Tool is left as-is; the
// aggregator buckets an empty tool under "unknown" at reporting time.
func Normalize(ff []Finding, mapping SeverityMapping) {
	for i := range ff {
		ff[i].Severity = NormalizeSeverity(string(ff[i].Severity), mapping)
		if ff[i].Category == "" {
			ff[i].Category = CategoryUnknown
		}
	}
}

func lookupMapping(mapping SeverityMapping, raw string) (Severity, bool) {
	if s, ok := mapping[raw]; ok {
		return s, true
	}
	lowered := lowerASCII(raw)
	for k, s := range mapping {
		if lowerASCII(k) == lowered {
			return s, true
		}
	}
	return "", false
}

func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}
