package transform

import (
	"errors"

	"github.com/coffersTech/benchlog/internal/logging"
	"github.com/coffersTech/benchlog/internal/model"
)

// Filter derives one record from one input record.
type Filter interface {
	// CanHandle selects the records the filter applies to; all others pass
	// through unchanged.
	CanHandle(r *model.Record) bool
	// Filter returns the derived record. Errors are fatal for the run.
	Filter(r *model.Record, w Window) (*model.Record, error)
}

// ApplyFilter turns a Filter into a pipeline stage.
func ApplyFilter(f Filter) Transformer {
	return filterStage{f}
}

type filterStage struct {
	f Filter
}

func (s filterStage) Transform(records []*model.Record, w Window) ([]*model.Record, error) {
	out := make([]*model.Record, 0, len(records))
	for _, r := range records {
		if !s.f.CanHandle(r) {
			out = append(out, r)
			continue
		}
		filtered, err := s.f.Filter(r, w)
		if err != nil {
			logging.Errorf("Error while processing %s %s %s", r.Kind, r.ID, r.Origin)
			var fe *model.FatalError
			if errors.As(err, &fe) {
				fe.Attribute(r)
			}
			return nil, err
		}
		out = append(out, filtered)
	}
	return out, nil
}

// Filters converts a list of filters into stages.
func Filters(fs ...Filter) []Transformer {
	out := make([]Transformer, len(fs))
	for i, f := range fs {
		out[i] = ApplyFilter(f)
	}
	return out
}

func kindIn(kind string, kinds []string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
