// Package transform contains the record pipeline: per-record filters and
// cross-record aggregators. Every stage returns new records and leaves its
// input untouched.
package transform

import (
	"fmt"

	"github.com/coffersTech/benchlog/internal/model"
)

// Window is the half-open analysis interval [Start, End) in seconds
// relative to the run's time origin.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether ts lies inside the window.
func (w Window) Contains(ts float64) bool {
	return w.Start <= ts && ts < w.End
}

// Intersect returns the overlap of two windows (latest start, earliest end).
func (w Window) Intersect(o Window) Window {
	out := w
	if o.Start > out.Start {
		out.Start = o.Start
	}
	if o.End < out.End {
		out.End = o.End
	}
	return out
}

// Duration returns End - Start.
func (w Window) Duration() float64 {
	return w.End - w.Start
}

func (w Window) String() string {
	return fmt.Sprintf("[%g;%g[", w.Start, w.End)
}

// Transformer is one pipeline stage.
type Transformer interface {
	Transform(records []*model.Record, w Window) ([]*model.Record, error)
}

// TransformerFunc adapts a function to Transformer.
type TransformerFunc func(records []*model.Record, w Window) ([]*model.Record, error)

func (f TransformerFunc) Transform(records []*model.Record, w Window) ([]*model.Record, error) {
	return f(records, w)
}

// Chain runs transformers in order, stopping at the first error.
func Chain(records []*model.Record, w Window, stages ...Transformer) ([]*model.Record, error) {
	var err error
	for _, s := range stages {
		records, err = s.Transform(records, w)
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}
