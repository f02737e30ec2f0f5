package transform

import (
	"math"
	"strconv"
	"strings"

	"github.com/coffersTech/benchlog/internal/logging"
	"github.com/coffersTech/benchlog/internal/model"
	"github.com/coffersTech/benchlog/internal/rules"
)

// BaseTime shifts every timestamp by the record's time origin.
type BaseTime struct{}

func (BaseTime) CanHandle(*model.Record) bool { return true }

func (BaseTime) Filter(r *model.Record, _ Window) (*model.Record, error) {
	out := r.Derive("")
	out.Entries = make([]model.Entry, 0, len(r.Entries))
	for _, e := range r.Entries {
		c := e.Clone()
		c[model.FieldTimestamp] = e.Timestamp() - r.TimeOrigin
		out.AddEntry(c)
	}
	return out, nil
}

// ClientFilter checks client throughput logs. Warnings absorbed by Ignore are
// dropped. The log must confirm its start before the window and carry one
// measurement per second of the window, give or take one.
type ClientFilter struct {
	Ignore []rules.Rule
}

func (f ClientFilter) CanHandle(r *model.Record) bool { return r.Kind == "client" }

func (f ClientFilter) Filter(r *model.Record, w Window) (*model.Record, error) {
	out := r.Derive("")
	checker := rules.NewChecker(f.Ignore, w.Start, w.End)
	hasStart := false
	dataPoints := 0

	for _, e := range r.Entries {
		ts := e.Timestamp()
		if text, ok := e.Warning(); ok {
			if !checker.Matches(ts, text) {
				out.AddEntry(e)
			}
			continue
		}
		out.AddEntry(e)
		// a start confirmation inside the window is too late
		if e.Has(model.FieldStarted) && ts < w.Start {
			hasStart = true
		}
		if e.Has(model.FieldThroughput) && w.Contains(ts) {
			dataPoints++
		}
	}

	if !hasStart {
		return nil, model.Fatalf("No or too late log start")
	}
	expected := int(math.Ceil(w.End - w.Start))
	if diff := expected - dataPoints; diff > 1 || diff < -1 {
		return nil, model.Fatalf("Unexpected log length, got %d expected %d", dataPoints, expected)
	}
	return out, nil
}

// ServerFilter checks replica event logs against ignore rules and rules
// that must fire at least once.
type ServerFilter struct {
	Ignore   []rules.Rule
	MustHave []rules.Rule
}

func (f ServerFilter) CanHandle(r *model.Record) bool { return r.Kind == "server" }

func (f ServerFilter) Filter(r *model.Record, w Window) (*model.Record, error) {
	out := r.Derive("")
	ignores := rules.NewChecker(f.Ignore, w.Start, w.End)
	mustHaves := rules.NewChecker(f.MustHave, w.Start, w.End)
	hasStart := false

	for _, e := range r.Entries {
		ts := e.Timestamp()
		if text, ok := e.Warning(); ok {
			mustHaves.Matches(ts, text)
			if !ignores.Matches(ts, text) {
				out.AddEntry(e)
			}
			continue
		}
		out.AddEntry(e)
		if e.Has(model.FieldStarted) && ts < w.Start {
			hasStart = true
		}
	}

	if !hasStart {
		return nil, model.Fatalf("No or too late log start")
	}
	if missing := mustHaves.Unmatched(); len(missing) > 0 {
		patterns := make([]string, len(missing))
		for i, m := range missing {
			patterns[i] = m.String()
		}
		return nil, model.Fatalf("Did not find expected patterns:\n    %s", strings.Join(patterns, "\n    "))
	}
	return out, nil
}

// FatalWarningFilter rejects any unstructured line in records of the given
// kinds. Machine-written logs have no expected noise.
type FatalWarningFilter struct {
	Kinds []string
}

func (f FatalWarningFilter) CanHandle(r *model.Record) bool { return kindIn(r.Kind, f.Kinds) }

func (f FatalWarningFilter) Filter(r *model.Record, _ Window) (*model.Record, error) {
	for _, e := range r.Entries {
		if e.IsWarning() {
			return nil, model.FatalOnEntry("Unexpected warning", e)
		}
	}
	out := r.Derive("")
	out.Entries = append(out.Entries, r.Entries...)
	return out, nil
}

// CutFilter keeps only entries inside the window.
type CutFilter struct{}

func (CutFilter) CanHandle(*model.Record) bool { return true }

func (CutFilter) Filter(r *model.Record, w Window) (*model.Record, error) {
	out := r.Derive("")
	for _, e := range r.Entries {
		if w.Contains(e.Timestamp()) {
			out.AddEntry(e)
		}
	}
	return out, nil
}

// DefaultWarningLimit is how many surfaced lines are printed per record.
const DefaultWarningLimit = 10

// WarningReporter prints the surfaced lines of every record for review.
// It never fails and passes records through unchanged.
type WarningReporter struct {
	Limit int
}

func (WarningReporter) CanHandle(*model.Record) bool { return true }

func (f WarningReporter) Filter(r *model.Record, _ Window) (*model.Record, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultWarningLimit
	}
	n := 0
	for _, e := range r.Entries {
		text, ok := e.Warning()
		if !ok {
			continue
		}
		n++
		switch {
		case n == 1:
			logging.Warnf("=== %s %s %s", r.Origin, r.Kind, r.ID)
			logging.Warnf("> %10.6f %s", e.Timestamp(), text)
		case n <= limit:
			logging.Warnf("> %10.6f %s", e.Timestamp(), text)
		case n == limit+1:
			logging.Warnf("... Only showing the first %d warnings", limit)
		}
	}
	return r, nil
}

// CountWarnings returns the number of unstructured entries in r.
func CountWarnings(r *model.Record) int {
	n := 0
	for _, e := range r.Entries {
		if e.IsWarning() {
			n++
		}
	}
	return n
}

// ChannelFilter turns message counter lines of channel destination replicas
// into data and appends the message throughput over the window.
type ChannelFilter struct {
	Scenario string
	IDs      []string
	Marker   string
}

// minChannelSpan is the shortest counter span that yields a throughput.
const minChannelSpan = 10

func (f ChannelFilter) CanHandle(r *model.Record) bool {
	return r.Kind == "server" && strings.Contains(r.Scenario, f.Scenario) && kindIn(r.ID, f.IDs)
}

func (f ChannelFilter) Filter(r *model.Record, w Window) (*model.Record, error) {
	out := r.Derive("")
	var first, last model.Entry
	for _, e := range r.Entries {
		text, ok := e.Warning()
		if !ok || !strings.Contains(text, f.Marker) {
			out.AddEntry(e)
			continue
		}
		fields := strings.Fields(text)
		messages, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			out.AddEntry(e)
			continue
		}
		d := out.AddData(e.Timestamp(), model.Entry{"messages": messages})
		if first == nil && d.Timestamp() >= w.Start {
			first = d
		}
		if d.Timestamp() < w.End {
			last = d
		}
	}

	var messageDelta, timeDelta, throughput float64
	if first != nil && last != nil && last.Timestamp()-first.Timestamp() > minChannelSpan {
		timeDelta = last.Timestamp() - first.Timestamp()
		lm, _ := last.Float("messages")
		fm, _ := first.Float("messages")
		messageDelta = lm - fm
		throughput = messageDelta / timeDelta
	}
	out.AddData((w.Start+w.End)/2, model.Entry{
		"message_delta":       messageDelta,
		"time_delta":          timeDelta,
		model.FieldThroughput: throughput,
	})
	return out, nil
}
