package aggregate

import (
	"reflect"
	"testing"

	"github.com/yavs-hq/yavs/core/findings"
)

// ---------------------------------------------------------------------------
// Scanner registry tests
// ---------------------------------------------------------------------------

func TestRegisterScanner_FirstCallStartsAtZero(t *testing.T) {
	t.Parallel()

	a := New()
	a.RegisterScanner("trivy", findings.CategoryDependency, 7, StatusSuccess, "")

	runs := a.ExecutedScanners()
	if len(runs) != 1 {
		t.Fatalf("expected 1 scanner, got %d", len(runs))
	}
	// The initial registration records the attempt, not the count; counts
	// accumulate from subsequent per-target registrations.
	if runs[0].FindingsCount != 0 {
		t.Fatalf("initial findings_count = %d, want 0", runs[0].FindingsCount)
	}
	if runs[0].Status != StatusSuccess {
		t.Fatalf("status = %q, want success", runs[0].Status)
	}
}

func TestRegisterScanner_AccumulatesAcrossTargets(t *testing.T) {
	t.Parallel()

	a := New()
	a.RegisterScanner("semgrep", findings.CategorySAST, 0, StatusSuccess, "")
	a.RegisterScanner("semgrep", findings.CategorySAST, 3, StatusSuccess, "")
	a.RegisterScanner("semgrep", findings.CategorySAST, 2, StatusSuccess, "")

	runs := a.ExecutedScanners()
	if len(runs) != 1 {
		t.Fatalf("expected 1 scanner entry, got %d", len(runs))
	}
	if runs[0].FindingsCount != 5 {
		t.Fatalf("findings_count = %d, want 5", runs[0].FindingsCount)
	}
}

func TestRegisterScanner_FailureOverwritesStatus(t *testing.T) {
	t.Parallel()

	a := New()
	a.RegisterScanner("checkov", findings.CategoryIaC, 0, StatusSuccess, "")
	a.RegisterScanner("checkov", findings.CategoryIaC, 1, StatusFailed, "exit status 2")
	a.RegisterScanner("checkov", findings.CategoryIaC, 1, StatusSuccess, "")

	runs := a.ExecutedScanners()
	if runs[0].Status != StatusFailed {
		t.Fatalf("status = %q, want failed after any failure", runs[0].Status)
	}
	if runs[0].Error != "exit status 2" {
		t.Fatalf("error = %q, want preserved failure message", runs[0].Error)
	}
}

func TestExecutedScanners_RegistrationOrder(t *testing.T) {
	t.Parallel()

	a := New()
	a.RegisterScanner("trivy", findings.CategoryDependency, 0, StatusSuccess, "")
	a.RegisterScanner("bandit", findings.CategorySAST, 0, StatusSkipped, "")
	a.RegisterScanner("gitleaks", findings.CategorySecret, 0, StatusSuccess, "")

	runs := a.ExecutedScanners()
	got := []string{runs[0].Tool, runs[1].Tool, runs[2].Tool}
	want := []string{"trivy", "bandit", "gitleaks"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("scanner order = %v, want %v", got, want)
	}
}

// ---------------------------------------------------------------------------
// Deduplication tests
// ---------------------------------------------------------------------------

func TestDeduplicate_CollapsesStructuralDuplicates(t *testing.T) {
	t.Parallel()

	a := New()
	a.AddFindings([]findings.Finding{
		{File: "a.py", Line: 10, RuleID: "R1", Message: "m"},
		{File: "a.py", Line: 10, RuleID: "R1", Message: "m"},
		{File: "a.py", Line: 20, RuleID: "R1", Message: "m"},
	})

	removed := a.Deduplicate()
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if len(a.Findings()) != 2 {
		t.Fatalf("expected 2 findings after dedup, got %d", len(a.Findings()))
	}
}

func TestDeduplicate_IgnoresToolAndSeverity(t *testing.T) {
	t.Parallel()

	// Two scanners reporting the identical file/line/rule/message collapse
	// to one finding even though tool and severity differ.
	a := New()
	a.AddFindings([]findings.Finding{
		{Tool: "bandit", Severity: findings.SeverityHigh, File: "x.py", Line: 1, RuleID: "R", Message: "m"},
		{Tool: "semgrep", Severity: findings.SeverityLow, File: "x.py", Line: 1, RuleID: "R", Message: "m"},
	})

	a.Deduplicate()
	ff := a.Findings()
	if len(ff) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(ff))
	}
	// First occurrence wins.
	if ff[0].Tool != "bandit" {
		t.Fatalf("kept tool = %q, want first occurrence bandit", ff[0].Tool)
	}
}

func TestDeduplicate_Idempotent(t *testing.T) {
	t.Parallel()

	a := New()
	a.AddFindings([]findings.Finding{
		{File: "a.go", Line: 1, RuleID: "R1", Message: "x"},
		{File: "a.go", Line: 1, RuleID: "R1", Message: "x"},
		{File: "b.go", Line: 2, RuleID: "R2", Message: "y"},
	})

	a.Deduplicate()
	once := append([]findings.Finding(nil), a.Findings()...)
	removed := a.Deduplicate()
	if removed != 0 {
		t.Fatalf("second dedup removed %d findings, want 0", removed)
	}
	if !reflect.DeepEqual(once, a.Findings()) {
		t.Fatal("dedup is not idempotent")
	}
}

// ---------------------------------------------------------------------------
// Sorting tests
// ---------------------------------------------------------------------------

func TestSortBySeverity_TotalOrderAndStability(t *testing.T) {
	t.Parallel()

	a := New()
	a.AddFindings([]findings.Finding{
		{Severity: findings.SeverityLow, Message: "low-1"},
		{Severity: findings.SeverityCritical, Message: "crit-1"},
		{Severity: "", Message: "blank-1"},
		{Severity: findings.SeverityLow, Message: "low-2"},
		{Severity: findings.SeverityHigh, Message: "high-1"},
		{Severity: findings.SeverityCritical, Message: "crit-2"},
	})
	a.SortBySeverity()

	ff := a.Findings()
	for i := 1; i < len(ff); i++ {
		if findings.Rank(ff[i-1].Severity) > findings.Rank(ff[i].Severity) {
			t.Fatalf("findings not ordered at index %d: %q after %q", i, ff[i].Severity, ff[i-1].Severity)
		}
	}

	// Equal severities keep insertion order.
	if ff[0].Message != "crit-1" || ff[1].Message != "crit-2" {
		t.Fatalf("critical tie order broken: %q, %q", ff[0].Message, ff[1].Message)
	}
	if ff[3].Message != "low-1" || ff[4].Message != "low-2" {
		t.Fatalf("low tie order broken: %q, %q", ff[3].Message, ff[4].Message)
	}
	// Unknown severities sort last.
	if ff[len(ff)-1].Message != "blank-1" {
		t.Fatalf("blank severity should sort last, got %q", ff[len(ff)-1].Message)
	}
}

// ---------------------------------------------------------------------------
// Statistics tests
// ---------------------------------------------------------------------------

func TestStatistics_BucketsAndDefaults(t *testing.T) {
	t.Parallel()

	a := New()
	a.AddFindings([]findings.Finding{
		{Tool: "trivy", Category: findings.CategoryDependency, Severity: findings.SeverityHigh},
		{Tool: "trivy", Category: findings.CategoryDependency, Severity: findings.SeverityHigh},
		{Tool: "bandit", Category: findings.CategorySAST, Severity: findings.SeverityLow},
		{}, // everything missing
	})

	stats := a.Statistics()
	if stats.Total != 4 {
		t.Fatalf("total = %d, want 4", stats.Total)
	}
	if stats.BySeverity["HIGH"] != 2 || stats.BySeverity["LOW"] != 1 || stats.BySeverity["UNKNOWN"] != 1 {
		t.Fatalf("by_severity = %v", stats.BySeverity)
	}
	if stats.ByCategory["dependency"] != 2 || stats.ByCategory["sast"] != 1 || stats.ByCategory["unknown"] != 1 {
		t.Fatalf("by_category = %v", stats.ByCategory)
	}
	if stats.ByTool["trivy"] != 2 || stats.ByTool["bandit"] != 1 || stats.ByTool["unknown"] != 1 {
		t.Fatalf("by_tool = %v", stats.ByTool)
	}
	// No zero-filled buckets.
	if _, ok := stats.BySeverity["CRITICAL"]; ok {
		t.Fatal("by_severity should not contain zero-filled buckets")
	}
}

func TestStatistics_Empty(t *testing.T) {
	t.Parallel()

	stats := New().Statistics()
	if stats.Total != 0 || len(stats.BySeverity) != 0 || len(stats.ByCategory) != 0 || len(stats.ByTool) != 0 {
		t.Fatalf("empty aggregator stats = %+v", stats)
	}
}
