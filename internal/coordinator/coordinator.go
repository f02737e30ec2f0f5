// Package coordinator drives the analysis of a results folder: every
// immediate sub-folder is one run, runs of the same benchmark scenario form
// a group, and each group is parsed, checked and summarized together.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/coffersTech/benchlog/internal/autorange"
	"github.com/coffersTech/benchlog/internal/bench"
	"github.com/coffersTech/benchlog/internal/logging"
	"github.com/coffersTech/benchlog/internal/model"
	"github.com/coffersTech/benchlog/internal/parser"
	"github.com/coffersTech/benchlog/internal/storage"
	"github.com/coffersTech/benchlog/internal/transform"
	"github.com/coffersTech/benchlog/internal/workpool"
)

var (
	ErrNoResults = errors.New("no results found")
	ErrNoWindow  = errors.New("no group produced a usable time range")
)

// RunError reports the run folder a failure belongs to.
type RunError struct {
	Path string
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Options configure a batch.
type Options struct {
	Root string
	// OutDir receives snapshots and report tables; defaults to Root.
	OutDir string
	// Requested replaces the detected window when set.
	Requested   *transform.Window
	MinLogStart bool
	Benchmarks  []bench.Benchmark
	Pool        *workpool.Pool
	// BatchID tags snapshots and log lines; generated when empty.
	BatchID string
}

// GroupResult is the outcome of one scenario group.
type GroupResult struct {
	Benchmark string
	Scenario  string
	Runs      []string
	Window    transform.Window
	Records   int
	// Failed lists the runs that aborted the group.
	Failed []*RunError
	// Err is set when the group stages failed after all runs succeeded.
	Err error
}

// OK reports whether the group was aggregated.
func (g GroupResult) OK() bool {
	return len(g.Failed) == 0 && g.Err == nil
}

// Result is the outcome of a batch.
type Result struct {
	BatchID string
	Groups  []GroupResult
	// Window is the intersection of all successful group windows.
	Window transform.Window
}

// Failures returns every failed run of the batch.
func (r Result) Failures() []*RunError {
	var out []*RunError
	for _, g := range r.Groups {
		out = append(out, g.Failed...)
	}
	return out
}

type Coordinator struct {
	opts Options
}

func New(opts Options) *Coordinator {
	if opts.OutDir == "" {
		opts.OutDir = opts.Root
	}
	if opts.Pool == nil {
		opts.Pool = workpool.New(0)
	}
	if opts.BatchID == "" {
		opts.BatchID = uuid.NewString()
	}
	return &Coordinator{opts: opts}
}

// run is one folder of a group.
type run struct {
	path     string
	scenario string
	clients  int
}

type group struct {
	bench    bench.Benchmark
	scenario string
	runs     []run
}

// Run processes every group under Root. It fails only when no group yields
// a window; failed runs are reported in the result.
func (c *Coordinator) Run(ctx context.Context) (Result, error) {
	res := Result{BatchID: c.opts.BatchID}
	groups, err := c.discover()
	if err != nil {
		return res, err
	}
	if err := os.MkdirAll(c.opts.OutDir, 0755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}

	logging.Infof("[Coordinator] batch %s: %d groups under %s", res.BatchID, len(groups), c.opts.Root)
	var window *transform.Window
	for _, g := range groups {
		gr := c.processGroup(ctx, g)
		res.Groups = append(res.Groups, gr)
		if !gr.OK() {
			continue
		}
		if window == nil {
			w := gr.Window
			window = &w
		} else {
			*window = window.Intersect(gr.Window)
		}
	}

	if window == nil {
		return res, ErrNoWindow
	}
	res.Window = *window
	return res, nil
}

// discover groups the immediate sub-folders of Root by benchmark and
// scenario.
func (c *Coordinator) discover() ([]*group, error) {
	entries, err := os.ReadDir(c.opts.Root)
	if err != nil {
		return nil, fmt.Errorf("read results folder: %w", err)
	}

	byKey := make(map[string]*group)
	var keys []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		b, scenario, clients, ok := bench.Match(c.opts.Benchmarks, e.Name())
		if !ok {
			logging.Warnf("[Coordinator] Skipping folder %s", e.Name())
			continue
		}
		key := b.Name() + "\x00" + scenario
		g, ok := byKey[key]
		if !ok {
			g = &group{bench: b, scenario: scenario}
			byKey[key] = g
			keys = append(keys, key)
		}
		g.runs = append(g.runs, run{
			path:     filepath.Join(c.opts.Root, e.Name()),
			scenario: scenario,
			clients:  clients,
		})
	}
	if len(keys) == 0 {
		return nil, ErrNoResults
	}

	sort.Strings(keys)
	out := make([]*group, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out, nil
}

// processGroup parses and checks every run of g, then summarizes the group
// if no run failed.
func (c *Coordinator) processGroup(ctx context.Context, g *group) GroupResult {
	gr := GroupResult{Benchmark: g.bench.Name(), Scenario: g.scenario}
	for _, r := range g.runs {
		gr.Runs = append(gr.Runs, filepath.Base(r.path))
	}
	logging.Infof("[Coordinator] group %s/%s: %d runs", gr.Benchmark, gr.Scenario, len(g.runs))

	parsed, failed := c.parseRuns(ctx, g)
	type checked struct {
		records []*model.Record
		window  transform.Window
	}
	var todo []int
	for i := range g.runs {
		if failed[i] == nil {
			todo = append(todo, i)
		}
	}
	results := workpool.Map(ctx, c.opts.Pool, todo, func(_ context.Context, i int) (checked, error) {
		records, w, err := c.rangeAndFilter(g.bench, g.runs[i], parsed[i])
		return checked{records, w}, err
	})

	var bundle []*model.Record
	var window *transform.Window
	for k, res := range results {
		i := todo[k]
		if res.Err != nil {
			failed[i] = &RunError{Path: g.runs[i].path, Err: res.Err}
			continue
		}
		bundle = append(bundle, res.Value.records...)
		if window == nil {
			w := res.Value.window
			window = &w
		} else {
			*window = window.Intersect(res.Value.window)
		}
	}

	for _, f := range failed {
		if f != nil {
			logging.Errorf("[Coordinator] Error while processing %s: %v", f.Path, f.Err)
			gr.Failed = append(gr.Failed, f)
		}
	}
	if len(gr.Failed) > 0 {
		logging.Errorf("[Coordinator] group %s/%s skipped: %d of %d runs failed",
			gr.Benchmark, gr.Scenario, len(gr.Failed), len(g.runs))
		return gr
	}
	gr.Window = *window

	stages := g.bench.GroupTransformers(g.scenario)
	stages = append(stages,
		transform.ApplyFilter(transform.CutFilter{}),
		storage.SnapshotWriter{
			Path: filepath.Join(c.opts.OutDir, "parsed-"+g.scenario+storage.BundleExt),
			Meta: storage.Meta{
				BatchID:   c.opts.BatchID,
				Benchmark: gr.Benchmark,
				Scenario:  g.scenario,
				Runs:      gr.Runs,
				CreatedAt: time.Now().UTC(),
			},
		},
		storage.NewReportWriter(c.opts.OutDir),
	)
	out, err := transform.Chain(bundle, gr.Window, stages...)
	if err != nil {
		gr.Err = fmt.Errorf("group %s/%s: %w", gr.Benchmark, gr.Scenario, err)
		logging.Errorf("[Coordinator] %v", gr.Err)
		return gr
	}
	gr.Records = len(out)
	logging.Infof("[Coordinator] group %s/%s done: %d records in %s", gr.Benchmark, gr.Scenario, gr.Records, gr.Window)
	return gr
}

// parseFile is one parse task.
type parseFile struct {
	run  int
	name string
	path string
}

// parseRuns parses all files of all runs of g in parallel. A file that
// fails to parse is reported and left out of its run; a missing source is
// caught later by auto-ranging or the filters. Only an unreadable run
// folder marks the run failed.
func (c *Coordinator) parseRuns(ctx context.Context, g *group) ([][]*model.Record, []*RunError) {
	parsed := make([][]*model.Record, len(g.runs))
	failed := make([]*RunError, len(g.runs))

	var files []parseFile
	for i, r := range g.runs {
		entries, err := os.ReadDir(r.path)
		if err != nil {
			failed[i] = &RunError{Path: r.path, Err: err}
			continue
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				files = append(files, parseFile{run: i, name: e.Name(), path: filepath.Join(r.path, e.Name())})
			}
		}
	}

	results := workpool.Map(ctx, c.opts.Pool, files, func(_ context.Context, f parseFile) (*model.Record, error) {
		r := g.runs[f.run]
		p, ok := parser.Find(g.bench.Parsers(r.scenario), f.name)
		if !ok {
			return nil, nil
		}
		rec, err := p.Parse(f.path)
		if err != nil {
			return nil, err
		}
		rec.SetScenario(r.scenario, r.clients)
		return rec, nil
	})

	for k, res := range results {
		i := files[k].run
		switch {
		case res.Err != nil && ctx.Err() != nil && errors.Is(res.Err, ctx.Err()):
			if failed[i] == nil {
				failed[i] = &RunError{Path: g.runs[i].path, Err: res.Err}
			}
		case res.Err != nil:
			logging.Errorf("[Coordinator] Error while parsing %s: %v", files[k].path, res.Err)
		case res.Value != nil:
			parsed[i] = append(parsed[i], res.Value)
		}
	}
	return parsed, failed
}

// rangeAndFilter derives the window of one run and runs its filter chain.
func (c *Coordinator) rangeAndFilter(b bench.Benchmark, r run, records []*model.Record) ([]*model.Record, transform.Window, error) {
	auto, err := autorange.Detect(records, b.IsReference, c.opts.MinLogStart)
	if err != nil {
		return nil, transform.Window{}, err
	}
	if c.opts.Requested == nil {
		logging.Infof("[Coordinator] Auto range %.3g %.3g for %s", auto.Start, auto.End, r.path)
	}
	for _, rec := range records {
		rec.SetTimeOrigin(auto.Base)
	}

	w, err := autorange.Merge(auto, c.opts.Requested)
	if err != nil {
		return nil, transform.Window{}, err
	}

	filters, err := b.Filters(r.scenario)
	if err != nil {
		return nil, transform.Window{}, err
	}
	stages := []transform.Transformer{transform.ApplyFilter(transform.BaseTime{})}
	stages = append(stages, filters...)
	stages = append(stages, transform.ApplyFilter(transform.WarningReporter{}))

	out, err := transform.Chain(records, w, stages...)
	if err != nil {
		return nil, transform.Window{}, err
	}
	return out, w, nil
}
