package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coffersTech/benchlog/internal/model"
)

func writeLog(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFind(t *testing.T) {
	tests := []struct {
		name string
		kind string
	}{
		{"client-3.log", "client"},
		{"client-3.latency", "latency"},
		{"server-1-resources.log", "resources"},
		{"server-12.log", "server"},
		{"client-0.ycsb", "latency"},
		{"client-3.log.bak", ""},
		{"servers", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Find(Defaults(), tt.name)
			if tt.kind == "" {
				if ok {
					t.Errorf("unexpected parser for %s", tt.name)
				}
				return
			}
			if !ok || p.(*Basic).Kind != tt.kind {
				t.Errorf("Find(%s) = %v, want kind %s", tt.name, p, tt.kind)
			}
		})
	}
}

func TestClient(t *testing.T) {
	path := writeLog(t, "client-2.log",
		"1600000000000000 main [EVENT] BENCH: loading",
		"1600000001000000 main [EVENT] BENCH: Startup delay 3000ms",
		"1600000002000000 CLNT2-0 [WARNG] RPNET: Lost connection to 1@host by 3",
		"1600000003000000 1 100 12 ( 3/ 40)",
		"     2 0 NaN (  0/  0)",
		"unexpected text without timestamp",
		"1600000005000000 main [EVENT] BENCH: END: 60s",
		"1600000006000000 3 100 12 ( 3/ 40)",
	)
	r, err := Client().Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if r.Kind != "client" || r.ID != "client-2" || r.Origin != path {
		t.Fatalf("identity = %s %s %s", r.Kind, r.ID, r.Origin)
	}
	if len(r.Entries) != 5 {
		t.Fatalf("got %d entries: %v", len(r.Entries), r.Entries)
	}

	started := r.Entries[0]
	if !started.Has(model.FieldStarted) || started.Timestamp() != 1600000001 {
		t.Errorf("start entry = %v", started)
	}
	if text, _ := r.Entries[1].Warning(); !strings.HasPrefix(text, "CLNT2-0 [WARNG]") {
		t.Errorf("warning = %q", text)
	}
	m := r.Entries[2]
	for field, want := range map[string]float64{"throughput": 100, "latency": 12, "latency_min": 3, "latency_max": 40} {
		if got, _ := m.Float(field); got != want {
			t.Errorf("%s = %v, want %v", field, got, want)
		}
	}
	if lat, _ := r.Entries[3].Float(model.FieldLatency); lat != -1 {
		t.Errorf("NaN latency = %v, want -1", lat)
	}
	// lines without a timestamp keep the last one
	if ts := r.Entries[4].Timestamp(); ts != 1600000003 {
		t.Errorf("inherited timestamp = %v", ts)
	}
}

func TestServer(t *testing.T) {
	path := writeLog(t, "server-0.log",
		"1600000000000000 main [EVENT] booting",
		"1600000001000000 main [EVENT] RPLCA: READY",
		"1600000002000000 RPLC0-0 [EVENT] EXCTR: Start time: 1.5s",
	)
	r, err := Server().Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Entries) != 2 || !r.Entries[0].Has(model.FieldStarted) {
		t.Fatalf("entries = %v", r.Entries)
	}
	if text, _ := r.Entries[1].Warning(); text != "RPLC0-0 [EVENT] EXCTR: Start time: 1.5s" {
		t.Errorf("warning = %q", text)
	}
}

func TestLatency(t *testing.T) {
	path := writeLog(t, "client-1.latency",
		"0 1600000000500000 1200 write",
		"1 1600000000700000 800 read",
		"garbage",
		"1 x 800 read",
	)
	r, err := Latency().Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Entries) != 4 || model.Select([]*model.Record{r}, "latency")[0] != r {
		t.Fatalf("entries = %v", r.Entries)
	}
	e := r.Entries[1]
	if c, _ := e.Float(model.FieldClient); c != 1 {
		t.Errorf("client = %v", c)
	}
	if tag, _ := e.String(model.FieldTag); tag != "read" {
		t.Errorf("tag = %q", tag)
	}
	if !r.Entries[2].IsWarning() || !r.Entries[3].IsWarning() {
		t.Errorf("malformed lines were not kept as warnings")
	}
	if ts := r.Entries[2].Timestamp(); ts != 1600000000.7 {
		t.Errorf("warning timestamp = %v", ts)
	}
}

func TestResourcesColumnsAndJSON(t *testing.T) {
	path := writeLog(t, "client-0-resources.log",
		"1600000000 12.5 40.1",
		`{"timestamp": 1600000001, "cpu_percent": 50, "memory_percent": 41.5}`,
		`{"cpu_percent": 50}`,
		"1600000002",
	)
	r, err := Resources().Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if r.ID != "client-0" || len(r.Entries) != 3 {
		t.Fatalf("record = %s %v", r.ID, r.Entries)
	}
	if cpu, _ := r.Entries[1].Float(FieldCPU); cpu != 50 {
		t.Errorf("json cpu = %v", cpu)
	}
	if !r.Entries[2].IsWarning() {
		t.Errorf("json line without timestamp not kept as warning")
	}
}

func TestYCSBRaw(t *testing.T) {
	path := writeLog(t, "client-0.ycsb",
		"READ latency raw data: op, timestamp(ms), latency(us)",
		"READ,1600000000123,530",
		"UPDATE,1600000000200,1200",
		"[OVERALL], RunTime(ms), 10",
	)
	r, err := YCSBRaw().Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Entries) != 3 {
		t.Fatalf("entries = %v", r.Entries)
	}
	if c, _ := r.Entries[0].Float(model.FieldClient); c != -1 {
		t.Errorf("client = %v", c)
	}
	if !r.Entries[2].IsWarning() {
		t.Errorf("summary line not kept as warning")
	}

	empty := writeLog(t, "client-1.ycsb")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := YCSBRaw().Parse(empty); err == nil {
		t.Errorf("empty ycsb log was accepted")
	}
}
