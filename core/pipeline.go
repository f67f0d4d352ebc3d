package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yavs-hq/yavs/core/aggregate"
	"github.com/yavs-hq/yavs/core/baseline"
	"github.com/yavs-hq/yavs/core/findings"
	"github.com/yavs-hq/yavs/core/policy"
)

// Options holds optional parameters for Run. The zero value aggregates,
// deduplicates, and sorts with no baseline or policy stages.
type Options struct {
	// PolicyPaths are policy files or directories to evaluate, in order.
	PolicyPaths []string

	// BaselinePath is a previously generated baseline to compare against.
	// Empty disables the baseline stage.
	BaselinePath string

	// NewOnly drops findings already present in the baseline from the
	// result. Ignored when BaselinePath is empty.
	NewOnly bool

	// SeverityMapping remaps raw scanner severities during normalization.
	SeverityMapping findings.SeverityMapping

	// Logger receives pipeline diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Result holds the complete output of a governance pipeline run.
type Result struct {
	Findings   []findings.Finding
	Statistics aggregate.Statistics
	Comparison *baseline.Comparison // nil when no baseline stage ran
	FailBuild  bool
}

// Run executes the governance pipeline over the given findings files:
// aggregate and normalize, deduplicate, sort by severity, optionally diff
// against a baseline, and optionally evaluate policies. FailBuild is set
// when any unsuppressed finding carries a fail_build policy effect.
func Run(ctx context.Context, inputPaths []string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	agg, err := aggregate.LoadFiles(ctx, inputPaths, aggregate.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("loading findings: %w", err)
	}

	findings.Normalize(agg.Findings(), opts.SeverityMapping)
	agg.Deduplicate()
	agg.SortBySeverity()
	ff := agg.Findings()

	result := &Result{}

	if opts.BaselinePath != "" {
		store := baseline.NewStore(baseline.WithLogger(logger))
		if err := store.Load(opts.BaselinePath); err != nil {
			return nil, err
		}
		cmp, err := store.Compare(ff)
		if err != nil {
			return nil, err
		}
		result.Comparison = cmp
		if opts.NewOnly {
			ff = store.FilterNewOnly(ff)
		}
	}

	if len(opts.PolicyPaths) > 0 {
		engine := policy.New(opts.PolicyPaths, policy.WithLogger(logger))
		logger.Info("evaluating policies", "policies", len(engine.Policies()), "rules", engine.RuleCount())
		ff = engine.Evaluate(ff)
	}

	result.Findings = ff
	result.Statistics = statisticsFor(ff, logger)
	for _, f := range ff {
		if f.FailBuild && !f.Suppressed {
			result.FailBuild = true
			break
		}
	}
	return result, nil
}

// DiffScans diffs two findings files: a synthetic baseline is generated
// from the old results and the new results are compared against it.
func DiffScans(ctx context.Context, oldPath, newPath string, logger *slog.Logger) (*baseline.Comparison, error) {
	if logger == nil {
		logger = slog.Default()
	}

	oldAgg := aggregate.New(aggregate.WithLogger(logger))
	if err := oldAgg.ReadJSON(oldPath); err != nil {
		return nil, err
	}
	newAgg := aggregate.New(aggregate.WithLogger(logger))
	if err := newAgg.ReadJSON(newPath); err != nil {
		return nil, err
	}

	store := baseline.NewStore(baseline.WithLogger(logger))
	store.Generate(oldAgg.Findings(), nil)
	return store.Compare(newAgg.Findings())
}

func statisticsFor(ff []findings.Finding, logger *slog.Logger) aggregate.Statistics {
	agg := aggregate.New(aggregate.WithLogger(logger))
	agg.AddFindings(ff)
	return agg.Statistics()
}
