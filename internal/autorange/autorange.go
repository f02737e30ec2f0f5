// Package autorange infers the analysis window of a run from its reference
// logs. Timestamps of different processes are only compared relative to the
// earliest reference entry, never as absolute clock values.
package autorange

import (
	"errors"
	"fmt"
	"math"

	"github.com/coffersTech/benchlog/internal/model"
	"github.com/coffersTech/benchlog/internal/stats"
	"github.com/coffersTech/benchlog/internal/transform"
)

const (
	// Slack is cut from the end of the run to drop partial measurement
	// buckets.
	Slack = 5.0
	// NonClientStartOffset is the start estimate of reference records that
	// do not report throughput.
	NonClientStartOffset = 5.0
	// MinWindow is the shortest accepted analysis window.
	MinWindow = 10.0
	// WarmupFraction of the median throughput marks the end of warm-up.
	WarmupFraction = 0.9
)

var (
	ErrRange            = errors.New("invalid time range")
	ErrNoReference      = fmt.Errorf("%w: no reference entries", ErrRange)
	ErrNoStart          = fmt.Errorf("%w: failed to find start", ErrRange)
	ErrOutsideAutoRange = fmt.Errorf("%w: requested window outside auto range", ErrRange)
	ErrWindowTooShort   = fmt.Errorf("%w: window too short", ErrRange)
)

// Range is the detected window. Start and End are relative to Base, the
// earliest reference timestamp.
type Range struct {
	Base  float64
	Start float64
	End   float64
}

// Window returns the relative window of r.
func (r Range) Window() transform.Window {
	return transform.Window{Start: r.Start, End: r.End}
}

// Detect computes the run window from the records selected by isReference.
// Per-record start estimates are merged with max, or with min when minStart
// is set.
func Detect(records []*model.Record, isReference func(*model.Record) bool, minStart bool) (Range, error) {
	base, rawEnd := math.Inf(1), math.Inf(-1)
	var refs []*model.Record
	for _, r := range records {
		if !isReference(r) {
			continue
		}
		refs = append(refs, r)
		for _, e := range r.Entries {
			if !e.HasTimestamp() {
				continue
			}
			ts := e.Timestamp()
			base = math.Min(base, ts)
			rawEnd = math.Max(rawEnd, ts)
		}
	}
	if math.IsInf(base, 1) {
		return Range{}, model.WrapFatal(ErrNoReference, "No reference entries to derive a time range from")
	}

	start := math.NaN()
	for _, r := range refs {
		estimate := base + NonClientStartOffset
		if r.Kind == "client" {
			ts, ok := FindWarmup(r)
			if !ok {
				return Range{}, model.WrapFatal(ErrNoStart, "Failed to find start in log %s", r.Origin).Attribute(r)
			}
			estimate = ts
		}
		switch {
		case math.IsNaN(start):
			start = estimate
		case minStart:
			start = math.Min(start, estimate)
		default:
			start = math.Max(start, estimate)
		}
	}

	return Range{Base: base, Start: start - base, End: rawEnd - Slack - base}, nil
}

// FindWarmup returns the timestamp of the first throughput measurement above
// WarmupFraction of the median throughput of r.
func FindWarmup(r *model.Record) (float64, bool) {
	data := r.Extract(model.FieldThroughput)[0]
	median, err := stats.Median(data)
	if err != nil {
		return 0, false
	}
	threshold := median * WarmupFraction
	for _, e := range r.Entries {
		tp, ok := e.Float(model.FieldThroughput)
		if ok && tp > threshold {
			return e.Timestamp(), true
		}
	}
	return 0, false
}

// Merge checks a requested window against the detected range. Without a
// request the detected window itself is checked and used.
func Merge(auto Range, requested *transform.Window) (transform.Window, error) {
	w := auto.Window()
	if requested != nil {
		w = *requested
	}
	if !(0 <= w.Start && w.Start < auto.End && w.Start < w.End && w.End <= auto.End) {
		return transform.Window{}, model.WrapFatal(ErrOutsideAutoRange,
			"Requested time interval outside auto range interval. Auto: [%g;%g[, Requested: [%g;%g[",
			auto.Start, auto.End, w.Start, w.End)
	}
	if w.End-w.Start < MinWindow {
		return transform.Window{}, model.WrapFatal(ErrWindowTooShort,
			"Selected time interval is less than %g seconds: Interval: [%g;%g[", MinWindow, w.Start, w.End)
	}
	return w, nil
}
