package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/coffersTech/benchlog/internal/logging"
	"github.com/coffersTech/benchlog/internal/model"
	"github.com/coffersTech/benchlog/internal/transform"
)

// WriteTable writes the entries of r as a space separated table with a
// header line. keep selects entries; nil keeps all. Every kept entry must
// carry every column.
func WriteTable(path string, r *model.Record, columns []string, keep func(model.Entry) bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	w.WriteString(strings.Join(columns, " "))
	w.WriteByte('\n')

	cells := make([]string, len(columns))
	for i, e := range r.Entries {
		if keep != nil && !keep(e) {
			continue
		}
		for j, col := range columns {
			v, ok := e[col]
			if !ok {
				f.Close()
				return fmt.Errorf("%s: entry %d of %s %s has no %s", path, i, r.Kind, r.ID, col)
			}
			cells[j] = formatCell(v)
		}
		w.WriteString(strings.Join(cells, " "))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatCell(v any) string {
	switch v := v.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Table describes one report table written for every record of Kind.
type Table struct {
	Kind    string
	Name    func(r *model.Record) string
	Columns []string
	Keep    func(model.Entry) bool
}

// StandardTables are the report tables of client benchmarks.
func StandardTables() []Table {
	return []Table{
		{
			Kind: transform.KindClientLogAverages,
			Name: func(r *model.Record) string { return fmt.Sprintf("log-avgs-%s-%s.txt", r.Scenario, r.ID) },
			Columns: []string{"client_count", "throughput_average", "throughput_median", "throughput_stddev",
				"latency_average", "latency_median", "latency_stddev"},
		},
		{
			Kind: "client",
			Name: func(r *model.Record) string {
				return fmt.Sprintf("log-throughput-%s-%s-%d.txt", r.Scenario, r.ID, r.ClientCount)
			},
			Columns: []string{model.FieldTimestamp, model.FieldThroughput, model.FieldLatency, "latency_min", "latency_max"},
			Keep:    func(e model.Entry) bool { return e.Has(model.FieldThroughput) },
		},
		{
			Kind: transform.KindClientRawLatencies,
			Name: func(r *model.Record) string { return fmt.Sprintf("raw-latencies-%s-%s.txt", r.Scenario, r.ID) },
			Columns: []string{"client_count", model.FieldTag, "throughput_average", "throughput_median",
				"latency_average", "latency_50", "latency_90", "latency_99"},
		},
		{
			Kind: transform.KindClientRawThroughput,
			Name: func(r *model.Record) string {
				return fmt.Sprintf("raw-throughput-%s-%s-%d.txt", r.Scenario, r.ID, r.ClientCount)
			},
			Columns: []string{model.FieldTag, model.FieldTimestamp, model.FieldThroughput, model.FieldLatency},
		},
		{
			Kind: transform.KindClientRawAvgThroughput,
			Name: func(r *model.Record) string {
				return fmt.Sprintf("raw-avg-throughput-%s-%d.txt", r.Scenario, r.ClientCount)
			},
			Columns: []string{model.FieldTag, model.FieldTimestamp, model.FieldThroughput, model.FieldLatency},
		},
		{
			Kind:    transform.KindClientRawAverages,
			Name:    func(r *model.Record) string { return fmt.Sprintf("raw-averages-%s.txt", r.Scenario) },
			Columns: []string{"client_count", model.FieldTag, model.FieldThroughput, model.FieldLatency},
		},
	}
}

// ReportWriter is a pipeline stage writing tables into Dir. Records pass
// through unchanged.
type ReportWriter struct {
	Dir    string
	Tables []Table
}

// NewReportWriter writes the standard tables into dir.
func NewReportWriter(dir string) ReportWriter {
	return ReportWriter{Dir: dir, Tables: StandardTables()}
}

func (rw ReportWriter) Transform(records []*model.Record, _ transform.Window) ([]*model.Record, error) {
	for _, t := range rw.Tables {
		for _, r := range model.Select(records, t.Kind) {
			path := filepath.Join(rw.Dir, t.Name(r))
			if err := WriteTable(path, r, t.Columns, t.Keep); err != nil {
				return nil, err
			}
			logging.Debugf("[Report] wrote %s", path)
		}
	}
	return records, nil
}

// SnapshotWriter is a pipeline stage storing all records as a bundle.
type SnapshotWriter struct {
	Path string
	Meta Meta
}

func (sw SnapshotWriter) Transform(records []*model.Record, w transform.Window) ([]*model.Record, error) {
	meta := sw.Meta
	meta.Window = w
	if err := WriteBundle(sw.Path, Bundle{Meta: meta, Records: records}); err != nil {
		return nil, fmt.Errorf("write snapshot %s: %w", sw.Path, err)
	}
	logging.Infof("[Snapshot] %d records written to %s", len(records), sw.Path)
	return records, nil
}
