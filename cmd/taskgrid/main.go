// Command taskgrid is a terminal viewer for externally-synced task stores.
// It watches a JSONL or SQLite task file, detects external changes, and
// presents the tasks as a category grid with merged cells. Mutations are
// verified against the source before the grid unlocks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/x2605/taskgrid/internal/coordinator"
	"github.com/x2605/taskgrid/pkg/config"
	"github.com/x2605/taskgrid/pkg/debug"
	"github.com/x2605/taskgrid/pkg/source"
	"github.com/x2605/taskgrid/pkg/ui"
	"github.com/x2605/taskgrid/pkg/version"
	"github.com/x2605/taskgrid/pkg/watcher"
)

func main() {
	sourcePath := flag.String("source", "", "Path to the task store (tasks.jsonl or tasks.db); discovered in the current directory when empty")
	workspace := flag.String("workspace", "default", "Workspace name for per-workspace preferences")
	showCompleted := flag.Bool("show-completed", false, "Include completed tasks in the grid")
	maxDepth := flag.Int("max-depth", 0, "Category levels to render (0 = from config)")
	robotRows := flag.Bool("robot-rows", false, "Print the computed grid as JSON and exit")
	robotSnapshot := flag.Bool("robot-snapshot", false, "Print the lightweight snapshot as JSON and exit")
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *help {
		fmt.Println("Usage: taskgrid [options]")
		fmt.Println("\nA live grid viewer for synced task stores.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("taskgrid %s\n", version.Version)
		os.Exit(0)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		// Non-fatal: continue with defaults.
		debug.Log("config: %v", cfgErr)
		cfg = config.DefaultConfig()
	}

	store, storePath, err := openStore(*sourcePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening task store: %v\n", err)
		fmt.Fprintln(os.Stderr, "Point --source at a tasks.jsonl or tasks.db file, or run from a directory containing one.")
		os.Exit(1)
	}

	depth := cfg.UI.MaxDepth
	if *maxDepth > 0 {
		depth = *maxDepth
	}
	if depth <= 0 {
		depth = 2
	}

	prefs := cfg.PrefsFor(*workspace)
	show := prefs.ShowCompleted || *showCompleted

	if *robotRows {
		if err := printRobotRows(store, storePath, depth, show); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	if *robotSnapshot {
		if err := printRobotSnapshot(store, storePath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	w, err := watcher.New(storePath,
		watcher.WithDebounceDuration(cfg.Watch.Debounce()),
		watcher.WithPollInterval(cfg.Watch.PollInterval()),
		watcher.WithOnError(func(err error) { debug.Log("watcher: %v", err) }),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error watching %s: %v\n", storePath, err)
		os.Exit(1)
	}

	m := ui.New(nil, depth,
		ui.WithSourceLabel(storePath),
		ui.WithPrefsSink(func(showCompleted bool) {
			p := cfg.PrefsFor(*workspace)
			p.ShowCompleted = showCompleted
			cfg.SetPrefs(*workspace, p)
			if err := config.Save(cfg); err != nil {
				debug.Log("config save: %v", err)
			}
		}),
	)

	coord := coordinator.New(store,
		coordinator.WithNotifier(w),
		coordinator.WithRenderFunc(m.PushRows),
		coordinator.WithMaxDepth(depth),
		coordinator.WithShowCompleted(show),
		coordinator.WithDetectorConfig(cfg.Detector.ToDetect()),
		coordinator.WithVerifyBudget(cfg.Verify.Timeout(), cfg.Verify.PollInterval()),
		coordinator.WithOnError(func(err error) { debug.Log("coordinator: %v", err) }),
	)
	m.SetMutator(coord)

	if err := w.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting watcher: %v\n", err)
		os.Exit(1)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coordDone := make(chan error, 1)
	go func() { coordDone <- coord.Run(ctx) }()

	if err := runTUIProgram(m); err != nil {
		fmt.Fprintf(os.Stderr, "Error running taskgrid: %v\n", err)
		os.Exit(1)
	}

	cancel()
	if err := <-coordDone; err != nil && !errors.Is(err, context.Canceled) {
		debug.Log("coordinator exit: %v", err)
	}
}

// openStore resolves the backing store from the flag or by discovery in
// the current directory.
func openStore(path string) (source.Store, string, error) {
	if path != "" {
		s, err := source.Open(path)
		return s, path, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	s, err := source.Discover(cwd)
	if err != nil {
		return nil, "", err
	}
	type pathed interface{ Path() string }
	if p, ok := s.(pathed); ok {
		return s, p.Path(), nil
	}
	return s, cwd, nil
}

func runTUIProgram(m tea.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set TG_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("TG_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	return err
}
