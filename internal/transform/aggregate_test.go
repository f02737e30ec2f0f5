package transform

import (
	"errors"
	"strings"
	"testing"

	"github.com/coffersTech/benchlog/internal/model"
)

func countingAggregator(scope Scope) Aggregator {
	return Aggregator{
		Kind:        "latency",
		DerivedKind: "summary",
		Key:         ByScenario,
		Scope:       scope,
		Summarize: func(recs []*model.Record, cc int, _ Window) ([]model.Entry, error) {
			ids := make([]string, len(recs))
			for i, r := range recs {
				ids[i] = r.ID
			}
			return []model.Entry{{"client_count": float64(cc), "ids": strings.Join(ids, ",")}}, nil
		},
	}
}

func latencyRecord(id string, clients int) *model.Record {
	r := model.NewRecord("latency", id, "run-"+id)
	r.SetScenario("base", clients)
	return r
}

func TestAggregatorRejectsDuplicates(t *testing.T) {
	recs := []*model.Record{latencyRecord("client-0", 5), latencyRecord("client-0", 5)}
	_, err := RawLatencies().Transform(recs, Window{Start: 0, End: 10})
	var fe *model.FatalError
	if !errors.As(err, &fe) || !strings.Contains(fe.Reason, "Multiple logs for one client count") {
		t.Fatalf("error = %v, want duplicate failure", err)
	}
}

func TestAggregatorSeparatesClientCounts(t *testing.T) {
	recs := []*model.Record{
		latencyRecord("client-1", 10),
		latencyRecord("client-0", 5),
		latencyRecord("client-0", 10),
	}

	t.Run("across", func(t *testing.T) {
		out, err := countingAggregator(AcrossClientCounts).Transform(recs, Window{})
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != 4 {
			t.Fatalf("got %d records, want 4", len(out))
		}
		d := out[3]
		if d.Kind != "summary" || d.ClientCount != model.AggregateClientCount {
			t.Errorf("derived = %+v", d)
		}
		if len(d.Entries) != 2 {
			t.Fatalf("entries = %v", d.Entries)
		}
		if ids, _ := d.Entries[1].String("ids"); ids != "client-0,client-1" {
			t.Errorf("bucket 10 ids = %q", ids)
		}
		if cc, _ := d.Entries[0].Float("client_count"); cc != 5 {
			t.Errorf("client counts not ascending: %v", d.Entries)
		}
	})

	t.Run("per client count", func(t *testing.T) {
		out, err := countingAggregator(PerClientCount).Transform(recs, Window{})
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != 5 {
			t.Fatalf("got %d records, want 5", len(out))
		}
		if out[3].ClientCount != 5 || out[4].ClientCount != 10 {
			t.Errorf("client counts = %d, %d", out[3].ClientCount, out[4].ClientCount)
		}
	})

	t.Run("min records", func(t *testing.T) {
		a := countingAggregator(PerClientCount)
		a.MinRecords = 2
		out, err := a.Transform(recs, Window{})
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != 4 || out[3].ClientCount != 10 {
			t.Errorf("unexpected output %v", out)
		}
	})
}

func TestAggregatorAttributesSummaryErrors(t *testing.T) {
	a := countingAggregator(AcrossClientCounts)
	a.Summarize = func([]*model.Record, int, Window) ([]model.Entry, error) {
		return nil, model.Fatalf("no data")
	}
	_, err := a.Transform([]*model.Record{latencyRecord("client-0", 1)}, Window{})
	var fe *model.FatalError
	if !errors.As(err, &fe) || fe.ID != "client-0" {
		t.Errorf("error = %v", err)
	}
}
