package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	yavs "github.com/yavs-hq/yavs/core"
	"github.com/yavs-hq/yavs/core/findings"
)

func runGovern(args []string) int {
	fs := flag.NewFlagSet("govern", flag.ContinueOnError)
	var (
		policyFlag   string
		baselineFlag string
		newOnlyFlag  bool
		jsonFlag     bool
		outputFlag   string
		quietFlag    bool
	)
	fs.StringVar(&policyFlag, "policy", "", "comma-separated policy files or directories")
	fs.StringVar(&baselineFlag, "baseline", "", "baseline file to compare against")
	fs.BoolVar(&newOnlyFlag, "new-only", false, "report only findings absent from the baseline")
	fs.BoolVar(&jsonFlag, "json", false, "print processed findings as JSON")
	fs.StringVar(&outputFlag, "output", "", "write processed findings to a JSON file")
	fs.BoolVar(&quietFlag, "quiet", false, "suppress summary output")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: yavs govern [flags] <results.json ...>")
		return 2
	}

	cfg, err := yavs.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	opts := yavs.Options{
		PolicyPaths:     cfg.Policy.Paths,
		BaselinePath:    cfg.Baseline.Path,
		NewOnly:         cfg.Baseline.NewOnly,
		SeverityMapping: cfg.Severity.SeverityMapping(),
	}
	// CLI flags take precedence over config values.
	if policyFlag != "" {
		opts.PolicyPaths = strings.Split(policyFlag, ",")
	}
	if baselineFlag != "" {
		opts.BaselinePath = baselineFlag
	}
	if newOnlyFlag {
		opts.NewOnly = true
	}

	result, err := yavs.Run(context.Background(), inputs, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if outputFlag != "" {
		if err := writeFindingsJSON(outputFlag, result.Findings); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
	}

	if jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Findings); err != nil {
			fmt.Fprintf(os.Stderr, "error: encoding findings: %v\n", err)
			return 2
		}
	} else if !quietFlag {
		printSummary(result)
	}

	if result.FailBuild {
		return 1
	}
	return 0
}

func printSummary(result *yavs.Result) {
	fmt.Printf("[results] %d finding(s)", result.Statistics.Total)
	if parts := severityParts(result.Statistics.BySeverity); len(parts) > 0 {
		fmt.Printf(" (%s)", strings.Join(parts, ", "))
	}
	fmt.Println()

	if cmp := result.Comparison; cmp != nil {
		fmt.Printf("[baseline] %d new, %d existing, %d fixed\n",
			cmp.NewCount, cmp.ExistingCount, cmp.FixedCount)
	}

	suppressed, violations, warnings := 0, 0, 0
	for _, f := range result.Findings {
		if f.Suppressed {
			suppressed++
		}
		if f.PolicyViolation {
			violations++
		}
		if f.PolicyWarning {
			warnings++
		}
	}
	if suppressed+violations+warnings > 0 {
		fmt.Printf("[policy] %d suppressed, %d violation(s), %d warning(s)\n",
			suppressed, violations, warnings)
	}

	if result.FailBuild {
		fmt.Println("[verdict] FAIL")
	} else {
		fmt.Println("[verdict] PASS")
	}
}

// severityParts renders per-severity counts in rank order.
func severityParts(bySeverity map[string]int) []string {
	keys := make([]string, 0, len(bySeverity))
	for k := range bySeverity {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return findings.Rank(findings.Severity(keys[i])) < findings.Rank(findings.Severity(keys[j]))
	})
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d %s", bySeverity[k], k))
	}
	return parts
}

func writeFindingsJSON(path string, ff []findings.Finding) error {
	if ff == nil {
		ff = []findings.Finding{}
	}
	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling findings: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
