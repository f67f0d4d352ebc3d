// Package baseline persists finding fingerprints between scans and diffs a
// current finding set against that snapshot, classifying findings as new,
// existing, or fixed. Baselines are stored as JSON with O(1) fingerprint
// lookup; suppressed fingerprints are folded into the known set at load
// time, so a suppressed finding compares identically to a baselined one.
package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yavs-hq/yavs/core/findings"
)

const recordVersion = "1.0"

// ErrNoBaseline is returned by Compare when no baseline has been loaded or
// generated. Silently returning an empty diff would hide a caller bug.
var ErrNoBaseline = errors.New("no baseline loaded: call Load or Generate first")

// Record is the persisted baseline snapshot.
type Record struct {
	ID                 string         `json:"id,omitempty"`
	Version            string         `json:"version"`
	CreatedAt          time.Time      `json:"created_at"`
	TotalFindings      int            `json:"total_findings"`
	Fingerprints       []string       `json:"fingerprints"`
	Metadata           map[string]any `json:"metadata"`
	SeverityBreakdown  map[string]int `json:"severity_breakdown"`
	SuppressedFindings []string       `json:"suppressed_findings,omitempty"`
}

// Comparison is the result of diffing a current finding set against a
// baseline. The set partition identities always hold:
// NewCount+ExistingCount == TotalCurrent and
// FixedCount+ExistingCount == TotalBaseline.
type Comparison struct {
	NewCount          int                `json:"new_count"`
	FixedCount        int                `json:"fixed_count"`
	ExistingCount     int                `json:"existing_count"`
	TotalCurrent      int                `json:"total_current"`
	TotalBaseline     int                `json:"total_baseline"`
	NewFindings       []findings.Finding `json:"new_findings"`
	ExistingFindings  []findings.Finding `json:"existing_findings"`
	FixedFingerprints []string           `json:"fixed_fingerprints"`
	ComparisonDate    time.Time          `json:"comparison_date"`
	BaselineCreated   time.Time          `json:"baseline_created"`
}

// Store manages one baseline snapshot. It starts empty; Load or Generate
// must succeed before Compare may be called. Not safe for concurrent use.
type Store struct {
	record *Record
	known  map[string]struct{}
	ready  bool
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for baseline diagnostics.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore returns an empty baseline store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		known:  make(map[string]struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads a previously persisted baseline from path. The effective known
// set becomes the union of the record's fingerprints and its suppressed
// fingerprints. Read and parse failures propagate to the caller.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading baseline %s: %w", path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("parsing baseline %s: %w", path, err)
	}

	s.record = &rec
	s.known = make(map[string]struct{}, len(rec.Fingerprints)+len(rec.SuppressedFindings))
	for _, fp := range rec.Fingerprints {
		s.known[fp] = struct{}{}
	}
	for _, fp := range rec.SuppressedFindings {
		s.known[fp] = struct{}{}
	}
	s.ready = true

	s.logger.Info("loaded baseline", "path", path, "fingerprints", len(s.known))
	return nil
}

// Generate builds a fresh baseline record from the given findings.
// Fingerprints are computed without the message component so that reworded
// scanner output does not churn the baseline. The store becomes ready for
// Compare immediately.
func (s *Store) Generate(ff []findings.Finding, metadata map[string]any) *Record {
	fps := make([]string, 0, len(ff))
	breakdown := make(map[string]int)
	known := make(map[string]struct{}, len(ff))
	for _, f := range ff {
		fp := findings.Fingerprint(f, false)
		fps = append(fps, fp)
		known[fp] = struct{}{}
		sev := findings.NormalizeSeverity(string(f.Severity), nil)
		breakdown[string(sev)]++
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	rec := &Record{
		ID:                uuid.NewString(),
		Version:           recordVersion,
		CreatedAt:         time.Now().UTC(),
		TotalFindings:     len(ff),
		Fingerprints:      fps,
		Metadata:          metadata,
		SeverityBreakdown: breakdown,
	}

	s.record = rec
	s.known = known
	s.ready = true
	return rec
}

// Save writes the current baseline record to path using atomic temp-file +
// rename. It fails with ErrNoBaseline if nothing has been loaded or
// generated.
func (s *Store) Save(path string) error {
	if s.record == nil {
		return ErrNoBaseline
	}

	data, err := json.MarshalIndent(s.record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling baseline: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating baseline directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".baseline-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming baseline file: %w", err)
	}

	return nil
}

// Record returns the current baseline record, or nil if none is held.
func (s *Store) Record() *Record {
	return s.record
}

// Known reports whether a fingerprint is in the known set.
func (s *Store) Known(fp string) bool {
	_, ok := s.known[fp]
	return ok
}

// Len returns the size of the known fingerprint set.
func (s *Store) Len() int {
	return len(s.known)
}

// Compare diffs the current findings against the known set. Within the
// current set, duplicate fingerprints collapse last-wins. New and existing
// findings are ordered most severe first; fixed findings are reported by
// fingerprint only, since the baseline does not retain finding bodies.
func (s *Store) Compare(current []findings.Finding) (*Comparison, error) {
	if !s.ready {
		return nil, ErrNoBaseline
	}

	// First-occurrence order with last-wins values keeps output
	// deterministic without changing the set semantics.
	currentByFP := make(map[string]findings.Finding, len(current))
	var fpOrder []string
	for _, f := range current {
		fp := findings.Fingerprint(f, false)
		if _, seen := currentByFP[fp]; !seen {
			fpOrder = append(fpOrder, fp)
		}
		currentByFP[fp] = f
	}

	cmp := &Comparison{
		TotalCurrent:   len(current),
		TotalBaseline:  len(s.known),
		ComparisonDate: time.Now().UTC(),
	}
	if s.record != nil {
		cmp.BaselineCreated = s.record.CreatedAt
	}

	for _, fp := range fpOrder {
		if _, ok := s.known[fp]; ok {
			cmp.ExistingFindings = append(cmp.ExistingFindings, currentByFP[fp])
		} else {
			cmp.NewFindings = append(cmp.NewFindings, currentByFP[fp])
		}
	}
	for fp := range s.known {
		if _, ok := currentByFP[fp]; !ok {
			cmp.FixedFingerprints = append(cmp.FixedFingerprints, fp)
		}
	}
	sort.Strings(cmp.FixedFingerprints)

	sortMostSevereFirst(cmp.NewFindings)
	sortMostSevereFirst(cmp.ExistingFindings)

	cmp.NewCount = len(cmp.NewFindings)
	cmp.ExistingCount = len(cmp.ExistingFindings)
	cmp.FixedCount = len(cmp.FixedFingerprints)
	return cmp, nil
}

// FilterNewOnly returns only the findings whose fingerprints are absent
// from the known set. With no baseline loaded the input is returned
// unchanged: everything is new.
func (s *Store) FilterNewOnly(ff []findings.Finding) []findings.Finding {
	if !s.ready {
		return ff
	}
	out := make([]findings.Finding, 0, len(ff))
	for _, f := range ff {
		if _, ok := s.known[findings.Fingerprint(f, false)]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// Suppress adds each finding's fingerprint to the known set and records it
// in the suppressed list, idempotently. Fingerprints already known are not
// duplicated.
func (s *Store) Suppress(ff []findings.Finding) {
	if s.record == nil {
		s.record = &Record{
			Version:   recordVersion,
			CreatedAt: time.Now().UTC(),
			Metadata:  map[string]any{},
		}
	}
	for _, f := range ff {
		fp := findings.Fingerprint(f, false)
		if _, ok := s.known[fp]; ok {
			continue
		}
		s.known[fp] = struct{}{}
		s.record.SuppressedFindings = append(s.record.SuppressedFindings, fp)
	}
	s.ready = true
}

func sortMostSevereFirst(ff []findings.Finding) {
	sort.SliceStable(ff, func(i, j int) bool {
		return findings.Rank(ff[i].Severity) < findings.Rank(ff[j].Severity)
	})
}

// DefaultPath returns the conventional baseline file location within a
// project.
func DefaultPath(root string) string {
	return filepath.Join(root, ".yavs", "baseline.json")
}
