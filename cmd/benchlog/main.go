package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coffersTech/benchlog/internal/bench"
	"github.com/coffersTech/benchlog/internal/config"
	"github.com/coffersTech/benchlog/internal/coordinator"
	"github.com/coffersTech/benchlog/internal/logging"
	"github.com/coffersTech/benchlog/internal/workpool"
)

func main() {
	opts := CollectOptions()
	if msg, code := opts.Validate(); code != 0 {
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(code)
	}
	if !logging.SetLevel(opts.LogLevel) {
		fmt.Fprintf(os.Stderr, "error: unknown log level %q\n", opts.LogLevel)
		os.Exit(2)
	}
	os.Exit(run(opts))
}

func run(opts *Options) int {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		logging.Errorf("Failed to load benchmark config: %v", err)
		return 1
	}

	// Cancel pending tasks on interrupt; running parsers finish their file.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := workpool.New(opts.Workers)
	logging.Infof("benchlog started. Results: %s, Workers: %d", opts.Root, pool.Workers())

	c := coordinator.New(coordinator.Options{
		Root:        opts.Root,
		OutDir:      opts.OutDir,
		Requested:   opts.Range,
		MinLogStart: opts.MinLogStart,
		Benchmarks:  bench.FromConfig(cfg),
		Pool:        pool,
	})
	res, err := c.Run(ctx)
	for _, f := range res.Failures() {
		fmt.Fprintf(os.Stderr, "failed: %s\n", f.Path)
	}
	if err != nil {
		if errors.Is(err, coordinator.ErrNoResults) {
			logging.Errorf("No results found!")
		} else {
			logging.Errorf("%v", err)
		}
		return 1
	}

	fmt.Printf("Recommended time range: %g %g\n", res.Window.Start, res.Window.End)
	return 0
}
