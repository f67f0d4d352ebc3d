package baseline

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/yavs-hq/yavs/core/findings"
)

func finding(file string, line int, rule string, sev findings.Severity) findings.Finding {
	return findings.Finding{
		Tool:     "semgrep",
		Severity: sev,
		File:     file,
		Line:     line,
		RuleID:   rule,
		Message:  "issue in " + file,
	}
}

// ---------------------------------------------------------------------------
// Generate / Save / Load tests
// ---------------------------------------------------------------------------

func TestGenerate_RecordShape(t *testing.T) {
	t.Parallel()

	ff := []findings.Finding{
		finding("a.go", 1, "R1", findings.SeverityHigh),
		finding("b.go", 2, "R2", findings.SeverityHigh),
		finding("c.go", 3, "R3", findings.SeverityLow),
	}

	s := NewStore()
	rec := s.Generate(ff, map[string]any{"branch": "main"})

	if rec.Version != "1.0" {
		t.Fatalf("version = %q, want 1.0", rec.Version)
	}
	if rec.ID == "" {
		t.Fatal("record ID should be generated")
	}
	if rec.TotalFindings != 3 || len(rec.Fingerprints) != 3 {
		t.Fatalf("total = %d, fingerprints = %d, want 3 each", rec.TotalFindings, len(rec.Fingerprints))
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
	if rec.SeverityBreakdown["HIGH"] != 2 || rec.SeverityBreakdown["LOW"] != 1 {
		t.Fatalf("severity_breakdown = %v", rec.SeverityBreakdown)
	}
	if rec.Metadata["branch"] != "main" {
		t.Fatalf("metadata = %v", rec.Metadata)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "baseline.json")
	ff := []findings.Finding{finding("a.go", 1, "R1", findings.SeverityHigh)}

	s := NewStore()
	s.Generate(ff, nil)
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewStore()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 1 {
		t.Fatalf("known set size = %d, want 1", loaded.Len())
	}
	if !loaded.Known(findings.Fingerprint(ff[0], false)) {
		t.Fatal("loaded baseline does not know the generated fingerprint")
	}
}

func TestLoad_MergesSuppressedIntoKnownSet(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "baseline.json")
	baselined := finding("a.go", 1, "R1", findings.SeverityHigh)
	suppressed := finding("b.go", 2, "R2", findings.SeverityLow)

	s := NewStore()
	s.Generate([]findings.Finding{baselined}, nil)
	s.Suppress([]findings.Finding{suppressed})
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewStore()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// A suppressed finding is treated identically to a baselined one.
	cmp, err := loaded.Compare([]findings.Finding{baselined, suppressed})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp.NewCount != 0 || cmp.ExistingCount != 2 {
		t.Fatalf("new = %d, existing = %d, want 0 and 2", cmp.NewCount, cmp.ExistingCount)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	s := NewStore()
	if err := s.Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing baseline file")
	}
}

func TestSave_WithoutRecord(t *testing.T) {
	t.Parallel()

	s := NewStore()
	err := s.Save(filepath.Join(t.TempDir(), "baseline.json"))
	if !errors.Is(err, ErrNoBaseline) {
		t.Fatalf("err = %v, want ErrNoBaseline", err)
	}
}

// ---------------------------------------------------------------------------
// Compare tests
// ---------------------------------------------------------------------------

func TestCompare_NewExistingFixed(t *testing.T) {
	t.Parallel()

	f1 := finding("a.go", 1, "R1", findings.SeverityHigh)
	f2 := finding("b.go", 2, "R2", findings.SeverityCritical)

	s := NewStore()
	s.Generate([]findings.Finding{f1}, nil)

	cmp, err := s.Compare([]findings.Finding{f1, f2})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp.NewCount != 1 || cmp.FixedCount != 0 || cmp.ExistingCount != 1 {
		t.Fatalf("new/fixed/existing = %d/%d/%d, want 1/0/1", cmp.NewCount, cmp.FixedCount, cmp.ExistingCount)
	}
	if len(cmp.NewFindings) != 1 || cmp.NewFindings[0].RuleID != "R2" {
		t.Fatalf("new_findings = %+v", cmp.NewFindings)
	}
}

func TestCompare_PartitionIdentity(t *testing.T) {
	t.Parallel()

	baselineSet := []findings.Finding{
		finding("a.go", 1, "R1", findings.SeverityHigh),
		finding("b.go", 2, "R2", findings.SeverityLow),
		finding("c.go", 3, "R3", findings.SeverityMedium),
	}
	currentSet := []findings.Finding{
		finding("b.go", 2, "R2", findings.SeverityLow),      // existing
		finding("d.go", 4, "R4", findings.SeverityCritical), // new
		finding("e.go", 5, "R5", findings.SeverityInfo),     // new
	}

	s := NewStore()
	s.Generate(baselineSet, nil)
	cmp, err := s.Compare(currentSet)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if cmp.NewCount+cmp.ExistingCount != cmp.TotalCurrent {
		t.Fatalf("partition broken: new(%d) + existing(%d) != total_current(%d)",
			cmp.NewCount, cmp.ExistingCount, cmp.TotalCurrent)
	}
	if cmp.FixedCount+cmp.ExistingCount != cmp.TotalBaseline {
		t.Fatalf("partition broken: fixed(%d) + existing(%d) != total_baseline(%d)",
			cmp.FixedCount, cmp.ExistingCount, cmp.TotalBaseline)
	}
}

func TestCompare_SortsMostSevereFirst(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Generate(nil, nil)

	cmp, err := s.Compare([]findings.Finding{
		finding("a.go", 1, "R1", findings.SeverityLow),
		finding("b.go", 2, "R2", findings.SeverityCritical),
		finding("c.go", 3, "R3", findings.SeverityMedium),
	})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	got := []findings.Severity{cmp.NewFindings[0].Severity, cmp.NewFindings[1].Severity, cmp.NewFindings[2].Severity}
	if got[0] != findings.SeverityCritical || got[1] != findings.SeverityMedium || got[2] != findings.SeverityLow {
		t.Fatalf("new_findings severity order = %v", got)
	}
}

func TestCompare_DuplicateFingerprintsLastWins(t *testing.T) {
	t.Parallel()

	f := finding("a.go", 1, "R1", findings.SeverityHigh)
	dup := f
	dup.Message = "later occurrence, same identity"

	s := NewStore()
	s.Generate(nil, nil)

	cmp, err := s.Compare([]findings.Finding{f, dup})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	// Two findings, one fingerprint: the set sees one new entry, and the
	// last occurrence provides the finding body.
	if cmp.NewCount != 1 {
		t.Fatalf("new_count = %d, want 1", cmp.NewCount)
	}
	if cmp.NewFindings[0].Message != "later occurrence, same identity" {
		t.Fatalf("expected last occurrence to win, got %q", cmp.NewFindings[0].Message)
	}
	if cmp.TotalCurrent != 2 {
		t.Fatalf("total_current = %d, want 2", cmp.TotalCurrent)
	}
}

func TestCompare_WithoutBaseline(t *testing.T) {
	t.Parallel()

	s := NewStore()
	_, err := s.Compare([]findings.Finding{finding("a.go", 1, "R1", findings.SeverityHigh)})
	if !errors.Is(err, ErrNoBaseline) {
		t.Fatalf("err = %v, want ErrNoBaseline", err)
	}
}

// ---------------------------------------------------------------------------
// FilterNewOnly / Suppress tests
// ---------------------------------------------------------------------------

func TestFilterNewOnly_NoBaselinePassthrough(t *testing.T) {
	t.Parallel()

	ff := []findings.Finding{finding("a.go", 1, "R1", findings.SeverityHigh)}
	s := NewStore()

	// With no baseline, everything is new: the input comes back unchanged.
	got := s.FilterNewOnly(ff)
	if len(got) != 1 {
		t.Fatalf("expected passthrough, got %d findings", len(got))
	}
}

func TestFilterNewOnly_DropsKnownFindings(t *testing.T) {
	t.Parallel()

	known := finding("a.go", 1, "R1", findings.SeverityHigh)
	fresh := finding("b.go", 2, "R2", findings.SeverityLow)

	s := NewStore()
	s.Generate([]findings.Finding{known}, nil)

	got := s.FilterNewOnly([]findings.Finding{known, fresh})
	if len(got) != 1 || got[0].RuleID != "R2" {
		t.Fatalf("filtered = %+v, want only R2", got)
	}
}

func TestSuppress_Idempotent(t *testing.T) {
	t.Parallel()

	f := finding("a.go", 1, "R1", findings.SeverityHigh)

	s := NewStore()
	s.Generate(nil, nil)
	s.Suppress([]findings.Finding{f})
	s.Suppress([]findings.Finding{f})

	rec := s.Record()
	if len(rec.SuppressedFindings) != 1 {
		t.Fatalf("suppressed_findings = %d entries, want 1", len(rec.SuppressedFindings))
	}
	if !s.Known(findings.Fingerprint(f, false)) {
		t.Fatal("suppressed fingerprint should be in the known set")
	}
}

func TestSuppress_AlreadyBaselinedNotDuplicated(t *testing.T) {
	t.Parallel()

	f := finding("a.go", 1, "R1", findings.SeverityHigh)

	s := NewStore()
	s.Generate([]findings.Finding{f}, nil)
	s.Suppress([]findings.Finding{f})

	if n := len(s.Record().SuppressedFindings); n != 0 {
		t.Fatalf("baselined fingerprint was added to suppressed list (%d entries)", n)
	}
}
