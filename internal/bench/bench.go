// Package bench describes benchmarks: how their run folders are named and
// which parsers, filters and summaries apply to a scenario.
package bench

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coffersTech/benchlog/internal/config"
	"github.com/coffersTech/benchlog/internal/model"
	"github.com/coffersTech/benchlog/internal/parser"
	"github.com/coffersTech/benchlog/internal/transform"
)

// Benchmark is the analysis contract of one benchmark.
type Benchmark interface {
	Name() string
	// ParseFolderName returns the scenario and client count encoded in a
	// run folder name, or ok=false if the folder belongs to another
	// benchmark.
	ParseFolderName(name string) (scenario string, clients int, ok bool)
	Parsers(scenario string) []parser.Parser
	// IsReference selects the records that define the run window.
	IsReference(r *model.Record) bool
	// Filters returns the per-run filter chain.
	Filters(scenario string) ([]transform.Transformer, error)
	// GroupTransformers returns the summaries computed over all runs of a
	// scenario.
	GroupTransformers(scenario string) []transform.Transformer
}

// Configured is a Benchmark driven by a rule set document.
type Configured struct {
	cfg     config.Benchmark
	parsers []parser.Parser
}

// New creates a benchmark from its configuration.
func New(cfg config.Benchmark) *Configured {
	return &Configured{cfg: cfg, parsers: parser.Defaults()}
}

// FromConfig creates one benchmark per configured entry, in order.
func FromConfig(f *config.File) []Benchmark {
	out := make([]Benchmark, 0, len(f.Benchmarks))
	for _, b := range f.Benchmarks {
		out = append(out, New(b))
	}
	return out
}

// Match returns the first benchmark that accepts the folder name.
func Match(benchmarks []Benchmark, folder string) (Benchmark, string, int, bool) {
	for _, b := range benchmarks {
		if scenario, clients, ok := b.ParseFolderName(folder); ok {
			return b, scenario, clients, true
		}
	}
	return nil, "", 0, false
}

func (c *Configured) Name() string { return c.cfg.Name }

// ParseFolderName reads "<prefix><marker><scenario>-<clients>-<duration>".
// The scenario may itself contain dashes and continue after the client
// count; the last integer chunk before the duration is the client count.
func (c *Configured) ParseFolderName(name string) (string, int, bool) {
	_, tail, found := strings.Cut(name, c.cfg.FolderMarker)
	if !found {
		return "", 0, false
	}
	chunks := strings.Split(tail, "-")
	chunks = chunks[:len(chunks)-1]

	clients := 0
	for i := len(chunks) - 1; i >= 0; i-- {
		n, err := strconv.Atoi(chunks[i])
		if err != nil {
			continue
		}
		clients = n
		chunks = append(chunks[:i:i], chunks[i+1:]...)
		break
	}
	return strings.Join(chunks, "-"), clients, true
}

func (c *Configured) Parsers(string) []parser.Parser {
	return c.parsers
}

func (c *Configured) IsReference(r *model.Record) bool {
	for _, k := range c.cfg.ReferenceKindsFor(r.Scenario) {
		if r.Kind == k {
			return true
		}
	}
	return false
}

func (c *Configured) Filters(scenario string) ([]transform.Transformer, error) {
	rs, err := c.cfg.Rules(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario, err)
	}
	filters := []transform.Filter{
		transform.ClientFilter{Ignore: rs.ClientIgnores},
		transform.FatalWarningFilter{Kinds: c.cfg.FatalWarningKinds},
		transform.ServerFilter{Ignore: rs.ServerIgnores, MustHave: rs.ServerMustHave},
	}
	if ch := c.cfg.Channel; ch != nil {
		filters = append(filters, transform.ChannelFilter{Scenario: ch.ScenarioContains, IDs: ch.IDs, Marker: ch.Marker})
	}
	return transform.Filters(filters...), nil
}

func (c *Configured) GroupTransformers(string) []transform.Transformer {
	return transform.StandardAggregators()
}
