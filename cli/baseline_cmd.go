package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/yavs-hq/yavs/core/aggregate"
	"github.com/yavs-hq/yavs/core/baseline"
	"github.com/yavs-hq/yavs/core/findings"
)

func runBaseline(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: yavs baseline <generate|compare|show> [flags]")
		return 2
	}

	subcommand := args[0]
	remaining := args[1:]

	switch subcommand {
	case "generate":
		return baselineGenerate(remaining)
	case "compare":
		return baselineCompare(remaining)
	case "show":
		return baselineShow(remaining)
	default:
		fmt.Fprintf(os.Stderr, "unknown baseline subcommand: %s\n", subcommand)
		fmt.Fprintln(os.Stderr, "Usage: yavs baseline <generate|compare|show> [flags]")
		return 2
	}
}

func baselineGenerate(args []string) int {
	fs := flag.NewFlagSet("baseline generate", flag.ContinueOnError)
	var outputPath string
	fs.StringVar(&outputPath, "output", "", "baseline file path (default: .yavs/baseline.json)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: yavs baseline generate [flags] <results.json ...>")
		return 2
	}
	if outputPath == "" {
		outputPath = baseline.DefaultPath(".")
	}

	agg, err := aggregate.LoadFiles(context.Background(), inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	findings.Normalize(agg.Findings(), nil)
	agg.Deduplicate()

	store := baseline.NewStore()
	rec := store.Generate(agg.Findings(), map[string]any{"sources": inputs})
	if err := store.Save(outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	fmt.Printf("baseline: wrote %d fingerprint(s) to %s\n", len(rec.Fingerprints), outputPath)
	return 0
}

func baselineCompare(args []string) int {
	fs := flag.NewFlagSet("baseline compare", flag.ContinueOnError)
	var (
		baselinePath string
		jsonFlag     bool
	)
	fs.StringVar(&baselinePath, "baseline", "", "baseline file path (default: .yavs/baseline.json)")
	fs.BoolVar(&jsonFlag, "json", false, "output comparison as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: yavs baseline compare [flags] <results.json ...>")
		return 2
	}
	if baselinePath == "" {
		baselinePath = baseline.DefaultPath(".")
	}

	agg, err := aggregate.LoadFiles(context.Background(), inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	findings.Normalize(agg.Findings(), nil)
	agg.Deduplicate()

	store := baseline.NewStore()
	if err := store.Load(baselinePath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	cmp, err := store.Compare(agg.Findings())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cmp); err != nil {
			fmt.Fprintf(os.Stderr, "error: encoding comparison: %v\n", err)
			return 2
		}
	} else {
		fmt.Printf("baseline: %d new, %d existing, %d fixed (current: %d, baseline: %d)\n",
			cmp.NewCount, cmp.ExistingCount, cmp.FixedCount, cmp.TotalCurrent, cmp.TotalBaseline)
		for _, f := range cmp.NewFindings {
			fmt.Printf("  new: [%s] %s %s:%d %s\n", f.Severity, f.Tool, f.File, f.Line, f.RuleID)
		}
	}

	if cmp.NewCount > 0 {
		return 1
	}
	return 0
}

func baselineShow(args []string) int {
	fs := flag.NewFlagSet("baseline show", flag.ContinueOnError)
	var baselinePath string
	fs.StringVar(&baselinePath, "baseline", "", "baseline file path (default: .yavs/baseline.json)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if baselinePath == "" {
		baselinePath = baseline.DefaultPath(".")
	}

	store := baseline.NewStore()
	if err := store.Load(baselinePath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	rec := store.Record()
	fmt.Printf("baseline: %d finding(s), created %s (%s)\n",
		rec.TotalFindings, rec.CreatedAt.Format("2006-01-02 15:04:05 MST"), baselinePath)
	if len(rec.SuppressedFindings) > 0 {
		fmt.Printf("  suppressed: %d\n", len(rec.SuppressedFindings))
	}

	sevs := make([]string, 0, len(rec.SeverityBreakdown))
	for sev := range rec.SeverityBreakdown {
		sevs = append(sevs, sev)
	}
	sort.Slice(sevs, func(i, j int) bool {
		return findings.Rank(findings.Severity(sevs[i])) < findings.Rank(findings.Severity(sevs[j]))
	})
	for _, sev := range sevs {
		fmt.Printf("  %s: %d\n", sev, rec.SeverityBreakdown[sev])
	}
	return 0
}
