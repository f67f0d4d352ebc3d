// Package main is the entry point for the yavs CLI.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the exit code.
// 0 = pass, 1 = policy failure (fail_build), 2 = error.
func run(args []string) int {
	fs := flag.NewFlagSet("yavs", flag.ContinueOnError)

	var (
		verboseFlag bool
		versionFlag bool
	)
	fs.BoolVar(&verboseFlag, "verbose", false, "enable verbose logging")
	fs.BoolVar(&verboseFlag, "v", false, "enable verbose logging (shorthand)")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: yavs <command> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  govern <results.json ...>   Run the governance pipeline over findings files\n")
		fmt.Fprintf(os.Stderr, "  baseline <generate|compare|show>  Manage finding baselines\n")
		fmt.Fprintf(os.Stderr, "  diff <old.json> <new.json>  Diff two scan result files\n")
		fmt.Fprintf(os.Stderr, "  watch <results.json ...>    Re-run governance when inputs or policies change\n")
		fmt.Fprintf(os.Stderr, "  version                     Print version and exit\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	configureLogging(verboseFlag)

	if versionFlag {
		fmt.Printf("yavs %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		fs.Usage()
		return 2
	}

	command := remaining[0]
	switch command {
	case "govern":
		return runGovern(remaining[1:])
	case "baseline":
		return runBaseline(remaining[1:])
	case "diff":
		return runDiff(remaining[1:])
	case "watch":
		return runWatch(remaining[1:])
	case "version":
		fmt.Printf("yavs %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		fmt.Fprintln(os.Stderr, "Usage: yavs <command> [flags]")
		return 2
	}
}

// configureLogging sets the default slog handler. Warnings and errors always
// show; verbose mode adds info and debug output.
func configureLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
