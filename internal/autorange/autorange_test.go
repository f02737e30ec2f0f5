package autorange

import (
	"errors"
	"testing"

	"github.com/coffersTech/benchlog/internal/model"
	"github.com/coffersTech/benchlog/internal/transform"
)

func steadyClient(id string, offset float64) *model.Record {
	r := model.NewRecord("client", id, id+".log")
	r.AddData(offset, model.Entry{model.FieldStarted: 1})
	for i := 0; i < 60; i++ {
		tp := 100.0
		if i < 5 {
			tp = 50
		}
		r.AddData(offset+float64(i), model.Entry{model.FieldThroughput: tp})
	}
	return r
}

func isClient(r *model.Record) bool { return r.Kind == "client" }

func TestDetectWarmup(t *testing.T) {
	got, err := Detect([]*model.Record{steadyClient("client-0", 1000)}, isClient, false)
	if err != nil {
		t.Fatal(err)
	}
	want := Range{Base: 1000, Start: 5, End: 54}
	if got != want {
		t.Fatalf("Detect = %+v, want %+v", got, want)
	}

	w, err := Merge(got, nil)
	if err != nil {
		t.Fatal(err)
	}
	if w != (transform.Window{Start: 5, End: 54}) {
		t.Errorf("Merge = %v", w)
	}
}

func TestDetectMergesStarts(t *testing.T) {
	late := steadyClient("client-1", 1000)
	// warm-up of client-1 ends three seconds later
	for i := 5; i < 8; i++ {
		late.Entries[i+1][model.FieldThroughput] = 50.0
	}
	records := []*model.Record{steadyClient("client-0", 1000), late}

	got, err := Detect(records, isClient, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Start != 8 {
		t.Errorf("max start = %v, want 8", got.Start)
	}

	got, err = Detect(records, isClient, true)
	if err != nil {
		t.Fatal(err)
	}
	if got.Start != 5 {
		t.Errorf("min start = %v, want 5", got.Start)
	}
}

func TestDetectNonClientReference(t *testing.T) {
	r := model.NewRecord("ping", "ping-0", "ping.log")
	for i := 0; i < 30; i++ {
		r.AddData(200+float64(i), model.Entry{"rtt": 1.0})
	}
	ignored := steadyClient("client-0", 0)

	got, err := Detect([]*model.Record{r, ignored}, func(r *model.Record) bool { return r.Kind == "ping" }, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != (Range{Base: 200, Start: 5, End: 24}) {
		t.Errorf("Detect = %+v", got)
	}
}

func TestDetectErrors(t *testing.T) {
	noThroughput := model.NewRecord("client", "client-0", "c.log")
	noThroughput.AddData(1, model.Entry{model.FieldStarted: 1})

	_, err := Detect([]*model.Record{noThroughput}, isClient, false)
	var fe *model.FatalError
	if !errors.Is(err, ErrNoStart) || !errors.As(err, &fe) || fe.ID != "client-0" {
		t.Errorf("error = %v, want attributed ErrNoStart", err)
	}

	_, err = Detect(nil, isClient, false)
	if !errors.Is(err, ErrNoReference) || !errors.Is(err, ErrRange) {
		t.Errorf("error = %v, want ErrNoReference", err)
	}
}

func TestMerge(t *testing.T) {
	auto := Range{Base: 1000, Start: 5, End: 54}
	tests := []struct {
		name string
		req  transform.Window
		want error
	}{
		{"inside", transform.Window{Start: 10, End: 40}, nil},
		{"before warm-up is allowed", transform.Window{Start: 0, End: 20}, nil},
		{"full", transform.Window{Start: 0, End: 54}, nil},
		{"negative start", transform.Window{Start: -1, End: 20}, ErrOutsideAutoRange},
		{"past end", transform.Window{Start: 10, End: 55}, ErrOutsideAutoRange},
		{"start at auto end", transform.Window{Start: 54, End: 54}, ErrOutsideAutoRange},
		{"start at auto end, end past it", transform.Window{Start: 54, End: 70}, ErrOutsideAutoRange},
		{"inverted", transform.Window{Start: 30, End: 20}, ErrOutsideAutoRange},
		{"too short", transform.Window{Start: 10, End: 19}, ErrWindowTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			got, err := Merge(auto, &req)
			if tt.want == nil {
				if err != nil || got != req {
					t.Errorf("Merge = %v, %v", got, err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Merge(Range{Start: 40, End: 45}, nil); !errors.Is(err, ErrWindowTooShort) {
		t.Errorf("short auto window: error = %v", err)
	}
}
