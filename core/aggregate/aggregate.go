// Package aggregate collects normalized findings from multiple scanner runs
// into a single ordered set, tracking per-scanner execution metadata and
// providing deduplication, severity ordering, and summary statistics for
// downstream baseline comparison and policy evaluation.
package aggregate

import (
	"log/slog"
	"sort"

	"github.com/yavs-hq/yavs/core/findings"
)

// ScannerStatus describes the outcome of one scanner invocation.
type ScannerStatus string

// Scanner execution status constants.
const (
	StatusSuccess ScannerStatus = "success"
	StatusFailed  ScannerStatus = "failed"
	StatusSkipped ScannerStatus = "skipped"
)

// ScannerRun records execution metadata for one scanner tool, accumulated
// across every target the tool ran against.
type ScannerRun struct {
	Tool          string        `json:"tool"`
	Category      string        `json:"category"`
	FindingsCount int           `json:"findings_count"`
	Status        ScannerStatus `json:"status"`
	Error         string        `json:"error,omitempty"`
}

// Statistics summarizes an aggregated finding set. Buckets with no findings
// are absent from the maps rather than zero-filled.
type Statistics struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"`
	ByCategory map[string]int `json:"by_category"`
	ByTool     map[string]int `json:"by_tool"`
}

// Aggregator accumulates findings from multiple scanner invocations. It is
// not safe for concurrent use; aggregate each scan target into its own
// Aggregator and merge afterward with AddFindings.
type Aggregator struct {
	findings []findings.Finding
	scanners map[string]*ScannerRun
	order    []string
	logger   *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for aggregation diagnostics.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// New returns an empty Aggregator ready for use.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		scanners: make(map[string]*ScannerRun),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterScanner records that a scanner was executed or attempted. The
// first call for a tool creates its entry with a zero finding count;
// subsequent calls accumulate counts across targets. Any non-success status
// overwrites the stored status and error, so a tool that fails on a later
// target is reported as failed even if earlier targets succeeded.
func (a *Aggregator) RegisterScanner(tool, category string, count int, status ScannerStatus, errMsg string) {
	run, ok := a.scanners[tool]
	if !ok {
		run = &ScannerRun{
			Tool:     tool,
			Category: category,
			Status:   status,
			Error:    errMsg,
		}
		a.scanners[tool] = run
		a.order = append(a.order, tool)
		return
	}
	run.FindingsCount += count
	if status != StatusSuccess {
		run.Status = status
		if errMsg != "" {
			run.Error = errMsg
		}
	}
}

// AddFindings appends findings to the set. Previously added findings are
// never mutated.
func (a *Aggregator) AddFindings(ff []findings.Finding) {
	a.findings = append(a.findings, ff...)
	a.logger.Debug("added findings to aggregator", "count", len(ff))
}

// dedupKey is the structural identity used for cross-scanner deduplication.
// It deliberately omits tool and severity (unlike the baseline fingerprint)
// so that two scanners reporting the identical file/line/rule/message
// collapse to one finding.
type dedupKey struct {
	file    string
	line    int
	ruleID  string
	message string
}

// Deduplicate removes findings sharing the same (file, line, rule_id,
// message) key, keeping the first occurrence in insertion order. It returns
// the number of findings removed.
func (a *Aggregator) Deduplicate() int {
	seen := make(map[dedupKey]struct{}, len(a.findings))
	unique := make([]findings.Finding, 0, len(a.findings))
	for _, f := range a.findings {
		key := dedupKey{file: f.File, line: f.Line, ruleID: f.RuleID, message: f.Message}
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, f)
	}
	removed := len(a.findings) - len(unique)
	if removed > 0 {
		a.logger.Info("removed duplicate findings", "count", removed)
	}
	a.findings = unique
	return removed
}

// SortBySeverity orders findings from most to least severe. The sort is
// stable: findings of equal severity keep their insertion order, and
// unrecognized severities sort last.
func (a *Aggregator) SortBySeverity() {
	sort.SliceStable(a.findings, func(i, j int) bool {
		return findings.Rank(a.findings[i].Severity) < findings.Rank(a.findings[j].Severity)
	})
}

// Statistics returns summary counts for the current finding set. Findings
// missing a severity, category, or tool are bucketed under "UNKNOWN",
// "unknown", and "unknown" respectively.
func (a *Aggregator) Statistics() Statistics {
	stats := Statistics{
		Total:      len(a.findings),
		BySeverity: make(map[string]int),
		ByCategory: make(map[string]int),
		ByTool:     make(map[string]int),
	}
	for _, f := range a.findings {
		sev := string(f.Severity)
		if sev == "" {
			sev = string(findings.SeverityUnknown)
		}
		cat := f.Category
		if cat == "" {
			cat = findings.CategoryUnknown
		}
		tool := f.Tool
		if tool == "" {
			tool = "unknown"
		}
		stats.BySeverity[sev]++
		stats.ByCategory[cat]++
		stats.ByTool[tool]++
	}
	return stats
}

// Findings returns the current finding slice. The caller must not modify
// the returned slice while continuing to use the Aggregator.
func (a *Aggregator) Findings() []findings.Finding {
	return a.findings
}

// ExecutedScanners returns scanner execution metadata in registration order.
func (a *Aggregator) ExecutedScanners() []ScannerRun {
	out := make([]ScannerRun, 0, len(a.order))
	for _, tool := range a.order {
		out = append(out, *a.scanners[tool])
	}
	return out
}

// Clear removes all findings, keeping scanner registrations.
func (a *Aggregator) Clear() {
	a.findings = nil
}
