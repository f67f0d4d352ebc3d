package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	yavs "github.com/yavs-hq/yavs/core"
)

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	var (
		policyFlag   string
		baselineFlag string
		debounce     time.Duration
	)
	fs.StringVar(&policyFlag, "policy", "", "comma-separated policy files or directories")
	fs.StringVar(&baselineFlag, "baseline", "", "baseline file to compare against")
	fs.DurationVar(&debounce, "debounce", 500*time.Millisecond, "debounce interval for file changes")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: yavs watch [flags] <results.json ...>")
		return 2
	}

	opts := yavs.Options{
		BaselinePath: baselineFlag,
	}
	if policyFlag != "" {
		opts.PolicyPaths = strings.Split(policyFlag, ",")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: creating watcher: %v\n", err)
		return 2
	}
	defer watcher.Close()

	// Watch the parent directories of the inputs (editors replace files by
	// rename, which drops watches on the files themselves) and every policy
	// path, so a rule edit re-evaluates just like a findings change.
	watched := make(map[string]struct{})
	addPath := func(p string) {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			p = filepath.Dir(p)
		}
		if _, ok := watched[p]; ok {
			return
		}
		if err := watcher.Add(p); err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot watch %s: %v\n", p, err)
			return
		}
		watched[p] = struct{}{}
	}
	for _, p := range inputs {
		addPath(p)
	}
	for _, p := range opts.PolicyPaths {
		addPath(p)
	}
	if baselineFlag != "" {
		addPath(baselineFlag)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Bulk operations (git checkout, formatter runs) can fire hundreds of
	// events; the limiter caps how often a full re-evaluation can start
	// even after debouncing.
	limiter := rate.NewLimiter(rate.Every(2*time.Second), 1)

	evaluate := func() {
		if !limiter.Allow() {
			return
		}
		result, err := yavs.Run(context.Background(), inputs, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		printSummary(result)
	}

	fmt.Printf("watch: governing %s (debounce: %s)\n", strings.Join(inputs, ", "), debounce)
	evaluate()

	var mu sync.Mutex
	var timer *time.Timer
	resetTimer := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() {
			fmt.Println("watch: re-evaluating")
			evaluate()
		})
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				resetTimer()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case <-sigCh:
			fmt.Println("\nwatch: stopped")
			return 0
		}
	}
}
