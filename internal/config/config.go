// Package config loads benchmark rule sets. Documents are validated against
// an embedded JSON Schema before they are decoded.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/coffersTech/benchlog/internal/rules"
)

//go:embed benchmark.schema.json
var schemaJSON []byte

//go:embed benchmark.json
var defaultJSON []byte

const schemaURL = "mem://benchlog/benchmark.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// File is a benchmark configuration document.
type File struct {
	Benchmarks []Benchmark `json:"benchmarks"`
}

// Benchmark describes how the runs of one benchmark are recognized and
// checked.
type Benchmark struct {
	Name         string `json:"name"`
	FolderMarker string `json:"folder_marker"`
	// ReferenceKinds select the records that define the run window.
	ReferenceKinds     []string            `json:"reference_kinds"`
	ReferenceOverrides []ReferenceOverride `json:"reference_overrides,omitempty"`
	FatalWarningKinds  []string            `json:"fatal_warning_kinds,omitempty"`
	ClientIgnores      []RuleSpec          `json:"client_ignores,omitempty"`
	ServerIgnores      []RuleSpec          `json:"server_ignores,omitempty"`
	ServerMustHave     []RuleSpec          `json:"server_must_have,omitempty"`
	ScenarioRules      []ScenarioRules     `json:"scenario_rules,omitempty"`
	Channel            *Channel            `json:"channel,omitempty"`
}

// ReferenceOverride replaces the reference kinds of matching scenarios.
type ReferenceOverride struct {
	ScenarioContains string   `json:"scenario_contains"`
	Kinds            []string `json:"kinds"`
}

// ScenarioRules are appended to the base rules of scenarios whose name
// contains ScenarioContains.
type ScenarioRules struct {
	ScenarioContains string     `json:"scenario_contains"`
	ClientIgnores    []RuleSpec `json:"client_ignores,omitempty"`
	ServerIgnores    []RuleSpec `json:"server_ignores,omitempty"`
	ServerMustHave   []RuleSpec `json:"server_must_have,omitempty"`
}

// Channel configures message counting on channel destination replicas.
type Channel struct {
	ScenarioContains string   `json:"scenario_contains"`
	IDs              []string `json:"ids"`
	Marker           string   `json:"marker"`
}

// RuleSpec is the serialized form of rules.Rule.
type RuleSpec struct {
	Pattern           string `json:"pattern"`
	Budget            Budget `json:"budget,omitempty"`
	ExemptBeforeStart bool   `json:"exempt_before_start,omitempty"`
	ExemptAfterEnd    bool   `json:"exempt_after_end,omitempty"`
}

// Budget is a rule budget; "inf" in JSON means unlimited.
type Budget float64

func (b *Budget) UnmarshalJSON(data []byte) error {
	if string(data) == `"inf"` {
		*b = Budget(math.Inf(1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("budget: %w", err)
	}
	*b = Budget(v)
	return nil
}

func (b Budget) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(b), 1) {
		return []byte(`"inf"`), nil
	}
	return json.Marshal(float64(b))
}

// Rule compiles s into a classifier rule.
func (s RuleSpec) Rule() (rules.Rule, error) {
	return rules.NewRule(s.Pattern, float64(s.Budget), s.ExemptBeforeStart, s.ExemptAfterEnd)
}

// CompileRules compiles a rule list, keeping its order.
func CompileRules(specs []RuleSpec) ([]rules.Rule, error) {
	out := make([]rules.Rule, 0, len(specs))
	for _, s := range specs {
		r, err := s.Rule()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// RuleSet is the compiled rule set of one scenario.
type RuleSet struct {
	ClientIgnores  []rules.Rule
	ServerIgnores  []rules.Rule
	ServerMustHave []rules.Rule
}

// Rules returns the base rules plus every scenario addition that applies.
func (b Benchmark) Rules(scenario string) (RuleSet, error) {
	client, server, must := b.ClientIgnores, b.ServerIgnores, b.ServerMustHave
	for _, sr := range b.ScenarioRules {
		if !strings.Contains(scenario, sr.ScenarioContains) {
			continue
		}
		client = append(client[:len(client):len(client)], sr.ClientIgnores...)
		server = append(server[:len(server):len(server)], sr.ServerIgnores...)
		must = append(must[:len(must):len(must)], sr.ServerMustHave...)
	}

	var rs RuleSet
	var err error
	if rs.ClientIgnores, err = CompileRules(client); err != nil {
		return RuleSet{}, fmt.Errorf("%s client rules: %w", b.Name, err)
	}
	if rs.ServerIgnores, err = CompileRules(server); err != nil {
		return RuleSet{}, fmt.Errorf("%s server rules: %w", b.Name, err)
	}
	if rs.ServerMustHave, err = CompileRules(must); err != nil {
		return RuleSet{}, fmt.Errorf("%s must-have rules: %w", b.Name, err)
	}
	return rs, nil
}

// ReferenceKindsFor returns the reference kinds of a scenario.
func (b Benchmark) ReferenceKindsFor(scenario string) []string {
	for _, o := range b.ReferenceOverrides {
		if strings.Contains(scenario, o.ScenarioContains) {
			return o.Kinds
		}
	}
	return b.ReferenceKinds
}

// Default returns the built-in configuration.
func Default() (*File, error) {
	f, err := Parse(defaultJSON)
	if err != nil {
		return nil, fmt.Errorf("default config: %w", err)
	}
	return f, nil
}

// Load reads and validates a configuration file. An empty path loads the
// built-in configuration.
func Load(path string) (*File, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	f, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse validates raw against the schema, decodes it and compiles every
// rule once to report bad patterns early.
func Parse(raw []byte) (*File, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(payload); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	for _, b := range f.Benchmarks {
		all := append(append(append([]RuleSpec(nil), b.ClientIgnores...), b.ServerIgnores...), b.ServerMustHave...)
		for _, sr := range b.ScenarioRules {
			all = append(append(append(all, sr.ClientIgnores...), sr.ServerIgnores...), sr.ServerMustHave...)
		}
		if _, err := CompileRules(all); err != nil {
			return nil, fmt.Errorf("benchmark %s: %w", b.Name, err)
		}
	}
	return &f, nil
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}
