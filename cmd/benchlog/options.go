package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/coffersTech/benchlog/internal/transform"
)

// Options holds CLI options after parsing flags and env defaults.
type Options struct {
	Root        string
	OutDir      string
	ConfigPath  string
	Range       *transform.Window
	MinLogStart bool
	Workers     int
	LogLevel    string
}

// rangeFlag parses "START,END".
type rangeFlag struct {
	w **transform.Window
}

func (f rangeFlag) String() string {
	if f.w == nil || *f.w == nil {
		return ""
	}
	return fmt.Sprintf("%g,%g", (*f.w).Start, (*f.w).End)
}

func (f rangeFlag) Set(s string) error {
	w, err := ParseRange(s)
	if err != nil {
		return err
	}
	*f.w = &w
	return nil
}

// ParseRange parses "START,END" in seconds relative to the run start.
func ParseRange(s string) (transform.Window, error) {
	startStr, endStr, ok := strings.Cut(s, ",")
	if !ok {
		return transform.Window{}, fmt.Errorf("invalid range %q; expected START,END", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return transform.Window{}, fmt.Errorf("invalid range start: %w", err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return transform.Window{}, fmt.Errorf("invalid range end: %w", err)
	}
	return transform.Window{Start: float64(start), End: float64(end)}, nil
}

// CollectOptions parses flags with environment-backed defaults and returns Options.
func CollectOptions() *Options {
	o := &Options{
		ConfigPath: os.Getenv("BENCHLOG_CONFIG"),
		OutDir:     os.Getenv("BENCHLOG_OUT"),
		LogLevel:   "info",
	}
	if v := os.Getenv("BENCHLOG_LOG_LEVEL"); v != "" {
		o.LogLevel = v
	}
	if v, err := strconv.Atoi(os.Getenv("BENCHLOG_WORKERS")); err == nil {
		o.Workers = v
	}

	flag.Var(rangeFlag{&o.Range}, "range", "Use range between START and END seconds from results, as START,END")
	flag.BoolVar(&o.MinLogStart, "min-log-start", false,
		"Use the minimal log start as range limit instead of the maximum; useful when not all clients are active at the same time")
	flag.StringVar(&o.ConfigPath, "config", o.ConfigPath, "Benchmark rule set JSON (default: built-in)")
	flag.StringVar(&o.OutDir, "out", o.OutDir, "Directory for snapshots and report tables (default: results folder)")
	flag.IntVar(&o.Workers, "workers", o.Workers, "Parallel workers (0: one per CPU)")
	flag.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level: debug, info, warn or error")
	flag.Parse()

	o.Root = "."
	if flag.NArg() > 0 {
		o.Root = flag.Arg(0)
	}
	return o
}

// Validate checks option values. It returns an error message and exit code.
func (o *Options) Validate() (string, int) {
	if flag.NArg() > 1 {
		return "error: only one results folder may be given", 2
	}
	if o.Workers < 0 {
		return "error: -workers must not be negative", 2
	}
	if o.Range != nil && o.Range.End <= o.Range.Start {
		return "error: -range END must be after START", 2
	}
	return "", 0
}
