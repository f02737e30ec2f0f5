package transform

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/coffersTech/benchlog/internal/model"
	"github.com/coffersTech/benchlog/internal/rules"
)

func clientRecord(from, to int, throughput float64) *model.Record {
	r := model.NewRecord("client", "client-0", "run/client-0.log")
	r.AddData(0, model.Entry{model.FieldStarted: 1})
	for i := from; i < to; i++ {
		r.AddData(float64(i), model.Entry{model.FieldThroughput: throughput, model.FieldLatency: 2.0})
	}
	return r
}

func TestBaseTimeDoesNotMutateInput(t *testing.T) {
	r := model.NewRecord("server", "server-0", "s.log")
	r.SetTimeOrigin(100)
	r.AddData(105, model.Entry{model.FieldStarted: 1})

	out, err := Chain([]*model.Record{r}, Window{}, ApplyFilter(BaseTime{}))
	if err != nil {
		t.Fatal(err)
	}
	if got := out[0].Entries[0].Timestamp(); got != 5 {
		t.Errorf("shifted timestamp = %v, want 5", got)
	}
	if got := r.Entries[0].Timestamp(); got != 105 {
		t.Errorf("input was modified: %v", got)
	}
}

func TestClientFilter(t *testing.T) {
	w := Window{Start: 5, End: 15}
	ignore := []rules.Rule{rules.MustRule("Reconnect", 1, false, false)}

	t.Run("ok", func(t *testing.T) {
		r := clientRecord(0, 20, 100)
		r.AddWarning(7, "Reconnect to server 2")
		r.AddWarning(8, "Reconnect to server 3")
		out, err := ClientFilter{Ignore: ignore}.Filter(r, w)
		if err != nil {
			t.Fatal(err)
		}
		if got := CountWarnings(out); got != 1 {
			t.Errorf("surfaced warnings = %d, want 1", got)
		}
		if out.Len() != r.Len()-1 {
			t.Errorf("derived record has %d entries, want %d", out.Len(), r.Len()-1)
		}
	})

	t.Run("off by one is tolerated", func(t *testing.T) {
		r := clientRecord(6, 20, 100)
		if _, err := (ClientFilter{}).Filter(r, w); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("too short", func(t *testing.T) {
		r := clientRecord(8, 20, 100)
		_, err := ClientFilter{}.Filter(r, w)
		var fe *model.FatalError
		if !errors.As(err, &fe) || !strings.Contains(fe.Reason, "Unexpected log length, got 7 expected 10") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("late start", func(t *testing.T) {
		r := model.NewRecord("client", "client-0", "c.log")
		r.AddData(6, model.Entry{model.FieldStarted: 1})
		_, err := ClientFilter{}.Filter(r, w)
		var fe *model.FatalError
		if !errors.As(err, &fe) || fe.Reason != "No or too late log start" {
			t.Errorf("error = %v", err)
		}
	})
}

func TestServerFilterMustHave(t *testing.T) {
	w := Window{Start: 5, End: 15}
	must := []rules.Rule{
		rules.MustRule("Leader elected", 0, false, false),
		rules.MustRule("Checkpoint", 0, false, false),
	}
	r := model.NewRecord("server", "server-1", "run/server-1.log")
	r.AddData(0, model.Entry{model.FieldStarted: 1})
	r.AddWarning(6, "Leader elected: 3")

	_, err := ServerFilter{MustHave: must}.Filter(r, w)
	var fe *model.FatalError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want FatalError", err)
	}
	if !strings.Contains(fe.Reason, "Checkpoint") || strings.Contains(fe.Reason, "Leader") {
		t.Errorf("reason = %q", fe.Reason)
	}

	r.AddWarning(9, "Checkpoint 12 stable")
	out, err := ServerFilter{MustHave: must}.Filter(r, w)
	if err != nil {
		t.Fatal(err)
	}
	// must-have lines are not ignored by themselves
	if CountWarnings(out) != 2 {
		t.Errorf("surfaced warnings = %d, want 2", CountWarnings(out))
	}
}

func TestApplyFilterAttributesErrors(t *testing.T) {
	ok := model.NewRecord("client", "client-0", "c.log")
	bad := model.NewRecord("latency", "client-1", "run/client-1.latency")
	bad.AddWarning(3, "garbage")

	out, err := ApplyFilter(FatalWarningFilter{Kinds: []string{"latency"}}).Transform([]*model.Record{bad}, Window{})
	if out != nil {
		t.Errorf("got records on error: %v", out)
	}
	var fe *model.FatalError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v", err)
	}
	if fe.Origin != bad.Origin || fe.Entry == nil {
		t.Errorf("fatal error not attributed: %+v", fe)
	}

	out, err = ApplyFilter(FatalWarningFilter{Kinds: []string{"latency"}}).Transform([]*model.Record{ok}, Window{})
	if err != nil || len(out) != 1 || out[0] != ok {
		t.Errorf("unhandled record did not pass through: %v %v", out, err)
	}
}

func TestCutFilterKeepsOrder(t *testing.T) {
	r := model.NewRecord("server", "server-0", "s.log")
	for _, ts := range []float64{1, 7, 6, 12, 9} {
		r.AddWarning(ts, "x")
	}
	out, _ := CutFilter{}.Filter(r, Window{Start: 5, End: 10})
	var got []float64
	for _, e := range out.Entries {
		got = append(got, e.Timestamp())
	}
	want := []float64{7, 6, 9}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestChannelFilter(t *testing.T) {
	f := ChannelFilter{Scenario: "channel-micro", IDs: []string{"server-4"}, Marker: "CMIC-DST:"}
	r := model.NewRecord("server", "server-4", "s.log")
	r.SetScenario("channel-micro-2", 1)
	other := r.Derive("")
	other.ID = "server-1"
	if f.CanHandle(other) {
		t.Errorf("filter handles unlisted replica")
	}
	if !f.CanHandle(r) {
		t.Fatalf("filter does not handle %s", r.ID)
	}

	for i := 0; i < 30; i++ {
		r.AddWarning(float64(i), "RPLC4-0 [EVENT] CMIC-DST: received "+strconv.Itoa(i*100))
	}
	r.AddWarning(3, "unrelated line")

	out, err := f.Filter(r, Window{Start: 5, End: 25})
	if err != nil {
		t.Fatal(err)
	}
	if CountWarnings(out) != 1 {
		t.Errorf("warnings = %d, want 1", CountWarnings(out))
	}
	summary := out.Entries[len(out.Entries)-1]
	if ts := summary.Timestamp(); ts != 15 {
		t.Errorf("summary timestamp = %v", ts)
	}
	// first counter at 5, last before 25 at 24
	if tp, _ := summary.Float(model.FieldThroughput); tp != 100 {
		t.Errorf("throughput = %v, want 100", tp)
	}
	if d, _ := summary.Float("time_delta"); d != 19 {
		t.Errorf("time delta = %v, want 19", d)
	}
}
