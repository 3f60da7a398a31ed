package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Versifine/strider/internal/config"
	"github.com/Versifine/strider/internal/event"
	"github.com/Versifine/strider/internal/scene"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

type BatchOptions struct {
	Workers  int
	Defaults *config.Config
	TraceDir string
	Bus      *event.Bus
}

// Result is the outcome of one scene in a batch. Err covers load, build and
// run failures as well as failed expectations.
type Result struct {
	Path    string
	Summary Summary
	Err     error
}

// RunBatch runs every scene file on a worker pool. Each scene gets its own
// actor, so no state is shared between workers apart from the bus. Results
// are returned in the order of paths.
func RunBatch(ctx context.Context, paths []string, opts BatchOptions) ([]Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers,
		ants.WithPreAlloc(true),
		ants.WithPanicHandler(func(p any) {
			slog.Error("batch worker panicked", "panic", p)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("sim: create batch pool: %w", err)
	}
	defer pool.Release()

	results := make([]Result, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		results[i].Path = path
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					results[i].Err = fmt.Errorf("sim: scene %s panicked: %v", path, p)
				}
			}()
			results[i].Summary, results[i].Err = RunFile(ctx, path, opts)
		})
		if submitErr != nil {
			wg.Done()
			results[i].Err = fmt.Errorf("sim: submit %s: %w", path, submitErr)
		}
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	slog.Info("batch finished", "scenes", len(paths), "failed", failed, "workers", workers)
	return results, ctx.Err()
}

// RunFile loads, builds and runs one scene file and checks its expectations.
func RunFile(ctx context.Context, path string, opts BatchOptions) (Summary, error) {
	defaults := opts.Defaults
	if defaults == nil {
		defaults = config.Default()
	}
	s, err := scene.LoadWithDefaults(path, defaults)
	if err != nil {
		return Summary{}, err
	}
	inst, err := s.Build()
	if err != nil {
		return Summary{}, err
	}

	runID := uuid.NewString()
	runOpts := []Option{WithRunID(runID), WithBus(opts.Bus)}
	var trace *Trace
	if opts.TraceDir != "" {
		trace, err = CreateTrace(opts.TraceDir, s.Name, runID)
		if err != nil {
			return Summary{}, err
		}
		runOpts = append(runOpts, WithTrace(trace))
	}

	sum, runErr := NewRunner(inst, runOpts...).Run(ctx)
	closeErr := trace.Close()
	if runErr != nil {
		return sum, runErr
	}
	if closeErr != nil {
		return sum, fmt.Errorf("sim: close trace: %w", closeErr)
	}
	return sum, sum.Check(s.Expect)
}

// Failed reports whether any result carries an error.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// ExpectationFailures counts results that ran but did not meet expectations.
func ExpectationFailures(results []Result) int {
	n := 0
	for _, r := range results {
		if errors.Is(r.Err, ErrExpectation) {
			n++
		}
	}
	return n
}
