package transform

import (
	"errors"
	"sort"

	"github.com/coffersTech/benchlog/internal/model"
)

// Scope controls how many derived records an Aggregator emits per group.
type Scope int

const (
	// AcrossClientCounts emits one record per group with client count -1,
	// holding the summaries of every client count in ascending order.
	AcrossClientCounts Scope = iota
	// PerClientCount emits one record per group and client count.
	PerClientCount
)

// SummaryFunc computes the summary entries of the records sharing one group
// key and client count. Records are sorted by id.
type SummaryFunc func(records []*model.Record, clientCount int, w Window) ([]model.Entry, error)

// Aggregator groups records of one kind and appends derived summary records.
type Aggregator struct {
	Kind        string
	DerivedKind string
	// ID replaces the id of derived records when set.
	ID string
	// Key groups records; nil groups by record id.
	Key   func(r *model.Record) string
	Scope Scope
	// MinRecords skips buckets with fewer records.
	MinRecords int
	Summarize  SummaryFunc
}

// ByID and ByScenario are the common grouping keys.
func ByID(r *model.Record) string       { return r.ID }
func ByScenario(r *model.Record) string { return r.Scenario }

type bucketSet map[int][]*model.Record

// Transform returns the input records followed by the derived summaries.
func (a Aggregator) Transform(records []*model.Record, w Window) ([]*model.Record, error) {
	groups, err := a.group(records)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return records, nil
	}

	out := make([]*model.Record, len(records), len(records)+len(groups))
	copy(out, records)

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		buckets := groups[key]
		counts := make([]int, 0, len(buckets))
		for cc, recs := range buckets {
			if len(recs) < a.MinRecords {
				continue
			}
			sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
			counts = append(counts, cc)
		}
		if len(counts) == 0 {
			continue
		}
		sort.Ints(counts)

		var derived *model.Record
		for _, cc := range counts {
			recs := buckets[cc]
			if derived == nil || a.Scope == PerClientCount {
				derived = a.derive(recs[0])
				if a.Scope == AcrossClientCounts {
					derived.ClientCount = model.AggregateClientCount
				}
			}
			entries, err := a.Summarize(recs, cc, w)
			if err != nil {
				var fe *model.FatalError
				if errors.As(err, &fe) {
					fe.Attribute(recs[0])
				}
				return nil, err
			}
			for _, e := range entries {
				derived.AddEntry(e)
			}
			if a.Scope == PerClientCount {
				out = append(out, derived)
			}
		}
		if a.Scope == AcrossClientCounts {
			out = append(out, derived)
		}
	}
	return out, nil
}

// group buckets records by key and client count. Two records with the same
// id in one bucket mean the same configuration was measured twice.
func (a Aggregator) group(records []*model.Record) (map[string]bucketSet, error) {
	key := a.Key
	if key == nil {
		key = ByID
	}
	groups := make(map[string]bucketSet)
	for _, r := range records {
		if r.Kind != a.Kind {
			continue
		}
		k := key(r)
		buckets, ok := groups[k]
		if !ok {
			buckets = make(bucketSet)
			groups[k] = buckets
		}
		for _, other := range buckets[r.ClientCount] {
			if other.ID == r.ID {
				return nil, model.Fatalf("Multiple logs for one client count with logtype %s %s!", a.Kind, r.Origin).Attribute(r)
			}
		}
		buckets[r.ClientCount] = append(buckets[r.ClientCount], r)
	}
	return groups, nil
}

func (a Aggregator) derive(template *model.Record) *model.Record {
	d := template.Derive(a.DerivedKind)
	if a.ID != "" {
		d.ID = a.ID
	}
	return d
}
