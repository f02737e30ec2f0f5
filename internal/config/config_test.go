package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(f.Benchmarks) != 1 || f.Benchmarks[0].Name != "refit" {
		t.Fatalf("benchmarks = %+v", f.Benchmarks)
	}
	b := f.Benchmarks[0]

	base, err := b.Rules("readwrite")
	if err != nil {
		t.Fatal(err)
	}
	fuzzy, err := b.Rules("fuzzy-readwrite")
	if err != nil {
		t.Fatal(err)
	}
	if len(fuzzy.ClientIgnores) != len(base.ClientIgnores)+1 {
		t.Errorf("fuzzy client rules = %d, base = %d", len(fuzzy.ClientIgnores), len(base.ClientIgnores))
	}
	if len(fuzzy.ServerIgnores) <= len(base.ServerIgnores) {
		t.Errorf("fuzzy server rules were not extended")
	}
	// scenario additions must not leak into the base slices
	again, _ := b.Rules("readwrite")
	if len(again.ClientIgnores) != len(base.ClientIgnores) {
		t.Errorf("base rules changed after a scenario lookup")
	}

	if kinds := b.ReferenceKindsFor("channel-micro-4"); len(kinds) != 1 || kinds[0] != "server" {
		t.Errorf("channel reference kinds = %v", kinds)
	}
	if kinds := b.ReferenceKindsFor("readwrite"); kinds[0] != "client" {
		t.Errorf("reference kinds = %v", kinds)
	}
}

func TestBudgetInf(t *testing.T) {
	f, err := Parse([]byte(`{"benchmarks": [{
		"name": "b", "folder_marker": "-b-", "reference_kinds": ["client"],
		"client_ignores": [{"pattern": "GC", "budget": "inf"}, {"pattern": "OK", "budget": 2}, {"pattern": "X"}]
	}]}`))
	if err != nil {
		t.Fatal(err)
	}
	specs := f.Benchmarks[0].ClientIgnores
	if !math.IsInf(float64(specs[0].Budget), 1) || specs[1].Budget != 2 || specs[2].Budget != 0 {
		t.Errorf("budgets = %v %v %v", specs[0].Budget, specs[1].Budget, specs[2].Budget)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"not json", `{`, "decode config"},
		{"no benchmarks", `{"benchmarks": []}`, "validate config"},
		{"unknown field", `{"benchmarks": [{"name": "b", "folder_marker": "-b-", "reference_kinds": [], "colour": 1}]}`, "validate config"},
		{"negative budget", `{"benchmarks": [{"name": "b", "folder_marker": "-b-", "reference_kinds": [],
			"server_ignores": [{"pattern": "x", "budget": -1}]}]}`, "validate config"},
		{"bad pattern", `{"benchmarks": [{"name": "b", "folder_marker": "-b-", "reference_kinds": [],
			"server_ignores": [{"pattern": "(x"}]}]}`, "benchmark b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.json")
	doc := `{"benchmarks": [{"name": "ping", "folder_marker": "-ping-", "reference_kinds": ["ping"]}]}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Benchmarks[0].FolderMarker != "-ping-" {
		t.Errorf("marker = %q", f.Benchmarks[0].FolderMarker)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Errorf("missing file was accepted")
	}
	if f, err := Load(""); err != nil || f.Benchmarks[0].Name != "refit" {
		t.Errorf("Load(\"\") = %v, %v", f, err)
	}
}
