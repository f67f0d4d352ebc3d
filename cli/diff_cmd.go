package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	yavs "github.com/yavs-hq/yavs/core"
)

func runDiff(args []string) int {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	var jsonFlag bool
	fs.BoolVar(&jsonFlag, "json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: yavs diff [flags] <old.json> <new.json>")
		return 2
	}
	oldPath, newPath := fs.Arg(0), fs.Arg(1)

	cmp, err := yavs.DiffScans(context.Background(), oldPath, newPath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cmp); err != nil {
			fmt.Fprintf(os.Stderr, "error: encoding diff: %v\n", err)
			return 2
		}
		return 0
	}

	fmt.Printf("diff: %d new, %d fixed, %d unchanged\n", cmp.NewCount, cmp.FixedCount, cmp.ExistingCount)
	for _, f := range cmp.NewFindings {
		fmt.Printf("  + [%s] %s %s:%d %s\n", f.Severity, f.Tool, f.File, f.Line, f.RuleID)
	}
	for _, fp := range cmp.FixedFingerprints {
		fmt.Printf("  - %s\n", fp)
	}

	if cmp.NewCount > 0 {
		return 1
	}
	return 0
}
