package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/Versifine/strider/internal/config"
	"github.com/Versifine/strider/internal/debug"
	"github.com/Versifine/strider/internal/event"
	"github.com/Versifine/strider/internal/logger"
	"github.com/Versifine/strider/internal/scene"
	"github.com/Versifine/strider/internal/sim"
	"github.com/Versifine/strider/internal/watch"
)

const defaultConfigPath = "configs/config.yaml"

const usage = `usage: strider <command> [flags] [args]

commands:
  run      <scene.yaml>         run one scene and check its expectations
  batch    <scene|dir>...       run many scenes on a worker pool
  watch    <dir>...             re-run scenes whenever they or their scripts change
  console  <scene.yaml>         drive a scene's actor from the keyboard
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "run":
		err = runCmd(ctx, args)
	case "batch":
		err = batchCmd(ctx, args)
	case "watch":
		err = watchCmd(ctx, args)
	case "console":
		err = consoleCmd(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	_ = logger.Close()
	if err != nil {
		slog.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

type commonFlags struct {
	configPath string
	traceDir   string
}

func newFlagSet(name string, common *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&common.configPath, "config", "", "config file (default "+defaultConfigPath+" when present)")
	fs.StringVar(&common.traceDir, "trace", "", "directory for JSONL frame traces (overrides simulation.trace_dir)")
	return fs
}

// setup loads the config and installs the logger.
func setup(common commonFlags) (*config.Config, error) {
	cfg, err := loadConfig(common.configPath)
	if err != nil {
		return nil, err
	}
	if common.traceDir != "" {
		cfg.Simulation.TraceDir = common.traceDir
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err != nil {
			return config.Default(), nil
		}
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func batchOptions(cfg *config.Config, bus *event.Bus) sim.BatchOptions {
	return sim.BatchOptions{
		Workers:  cfg.Batch.Workers,
		Defaults: cfg,
		TraceDir: cfg.Simulation.TraceDir,
		Bus:      bus,
	}
}

// newBus logs movement events at debug level.
func newBus() *event.Bus {
	bus := event.NewBus()
	for _, name := range []string{event.EventJump, event.EventLand, event.EventSlideStart, event.EventSlideStop} {
		bus.Subscribe(name, func(raw any) {
			ev, ok := raw.(event.MovementEvent)
			if !ok {
				return
			}
			slog.Debug("Movement event",
				"event", name,
				"run_id", ev.RunID,
				"frame", ev.Frame,
				"pos", fmt.Sprintf("(%.3f,%.3f,%.3f)", ev.Position.X(), ev.Position.Y(), ev.Position.Z()),
				"slope", ev.SlopeAngle,
			)
		})
	}
	return bus
}

func runCmd(ctx context.Context, args []string) error {
	var common commonFlags
	fs := newFlagSet("run", &common)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("run takes exactly one scene file")
	}
	cfg, err := setup(common)
	if err != nil {
		return err
	}

	sum, err := sim.RunFile(ctx, fs.Arg(0), batchOptions(cfg, newBus()))
	printSummary(fs.Arg(0), sum, err)
	return err
}

func batchCmd(ctx context.Context, args []string) error {
	var common commonFlags
	fs := newFlagSet("batch", &common)
	workers := fs.Int("workers", 0, "worker pool size (overrides batch.workers)")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("batch needs at least one scene file or directory")
	}
	cfg, err := setup(common)
	if err != nil {
		return err
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}

	paths, err := collectScenes(fs.Args())
	if err != nil {
		return err
	}
	results, err := sim.RunBatch(ctx, paths, batchOptions(cfg, newBus()))
	for _, r := range results {
		printSummary(r.Path, r.Summary, r.Err)
	}
	if err != nil {
		return err
	}
	if sim.Failed(results) {
		return fmt.Errorf("%d of %d scenes failed (%d on expectations)",
			countFailed(results), len(results), sim.ExpectationFailures(results))
	}
	return nil
}

func watchCmd(ctx context.Context, args []string) error {
	var common commonFlags
	fs := newFlagSet("watch", &common)
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("watch needs at least one directory")
	}
	cfg, err := setup(common)
	if err != nil {
		return err
	}
	dirs := fs.Args()
	opts := batchOptions(cfg, newBus())

	watched, err := withSubdirs(dirs)
	if err != nil {
		return err
	}
	w, err := watch.NewWatcher(watched...)
	if err != nil {
		return fmt.Errorf("watch %v: %w", watched, err)
	}
	defer w.Close()

	rerun := func(paths []string) {
		for _, p := range paths {
			sum, err := sim.RunFile(ctx, p, opts)
			printSummary(p, sum, err)
		}
	}

	initial, err := collectScenes(dirs)
	if err != nil {
		return err
	}
	rerun(initial)
	slog.Info("Watching for changes", "dirs", watched)

	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-w.Events:
			if !ok {
				return nil
			}
			if watch.IsSceneFile(path) {
				if _, err := os.Stat(path); err != nil {
					slog.Info("Scene removed", "path", path)
					continue
				}
				rerun([]string{path})
				continue
			}
			// A script may be shared, so every scene in the watched dirs reruns.
			slog.Info("Script changed", "path", path)
			paths, err := collectScenes(dirs)
			if err != nil {
				slog.Warn("Failed to list scenes", "error", err)
				continue
			}
			rerun(paths)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "error", err)
		}
	}
}

func consoleCmd(ctx context.Context, args []string) error {
	var common commonFlags
	fs := newFlagSet("console", &common)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("console takes exactly one scene file")
	}
	cfg, err := setup(common)
	if err != nil {
		return err
	}

	s, err := scene.LoadWithDefaults(fs.Arg(0), cfg)
	if err != nil {
		return err
	}
	inst, err := s.Build()
	if err != nil {
		return err
	}

	var blocks debug.BlockQuerier
	if inst.Blocks != nil {
		blocks = inst.Blocks
	}
	console := debug.NewConsole(inst.Body, blocks)
	console.SetTiming(
		time.Duration(cfg.Console.TickIntervalMs)*time.Millisecond,
		time.Duration(cfg.Console.MovePulseMs)*time.Millisecond,
	)
	return console.Start(ctx)
}

// collectScenes expands directories into their scene files, sorted by name.
func collectScenes(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && watch.IsSceneFile(e.Name()) {
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}

// withSubdirs adds the direct subdirectories of dirs, where input scripts
// usually live.
func withSubdirs(dirs []string) ([]string, error) {
	out := slices.Clone(dirs)
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				out = append(out, filepath.Join(dir, e.Name()))
			}
		}
	}
	return out, nil
}

func printSummary(path string, sum sim.Summary, err error) {
	status := "ok"
	switch {
	case errors.Is(err, sim.ErrExpectation):
		status = "FAIL"
	case err != nil:
		status = "ERROR"
	}
	fmt.Printf("%-5s %s  frames=%d jumps=%d landings=%d slide=%d final=(%.3f,%.3f,%.3f) grounded=%t",
		status, path, sum.Frames, sum.Jumps, sum.Landings, sum.SlideFrames,
		sum.Final.X(), sum.Final.Y(), sum.Final.Z(), sum.FinalGrounded)
	if sum.TracePath != "" {
		fmt.Printf(" trace=%s", sum.TracePath)
	}
	fmt.Println()
	if err != nil {
		fmt.Printf("      %v\n", err)
	}
}

func countFailed(results []sim.Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
