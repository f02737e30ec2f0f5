package parser

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/coffersTech/benchlog/internal/model"
)

const (
	clientStartMarker = "[EVENT] BENCH: Startup delay"
	clientEndMarker   = "main [EVENT] BENCH: END: "
	// prefixes below this many seconds are counters, not timestamps
	minTimestamp = 1000
)

var latencyRange = regexp.MustCompile(`^\( *(\d+)/ *(\d+)\)`)

// Client parses client-N.log throughput logs. Everything before the startup
// marker is skipped; the log ends at the end marker.
func Client() *Basic {
	return NewBasic("client", `(client-\d+)\.log`, readClient)
}

func readClient(r *model.Record, in io.Reader) error {
	atStart := true
	ts := 0.0
	return scanLines(in, func(line string) bool {
		if first, rest := cutField(line); rest != "" && isDigits(first) {
			if v, err := microsToSeconds(first); err == nil && v > minTimestamp {
				ts = v
				line = rest
			}
		}

		if atStart {
			if strings.Contains(line, clientStartMarker) {
				atStart = false
				r.AddData(ts, model.Entry{model.FieldStarted: 1})
			}
			return true
		}
		if strings.HasPrefix(line, clientEndMarker) {
			return false
		}

		if e, ok := parseMeasurement(line); ok {
			r.AddData(ts, e)
		} else {
			r.AddWarning(ts, line)
		}
		return true
	})
}

// parseMeasurement reads "<n> <throughput> <latency> (<min>/ <max>)".
// A NaN latency means no request completed in that second.
func parseMeasurement(line string) (model.Entry, bool) {
	n, rest := cutField(line)
	tp, rest := cutField(rest)
	lat, rest := cutField(rest)
	if rest == "" || !isDigits(n) || !isDigits(tp) {
		return nil, false
	}
	throughput, err := strconv.Atoi(tp)
	if err != nil {
		return nil, false
	}
	e := model.Entry{model.FieldThroughput: throughput}
	switch {
	case lat == "NaN":
		e[model.FieldLatency], e["latency_min"], e["latency_max"] = -1, -1, -1
	case isDigits(lat):
		m := latencyRange.FindStringSubmatch(rest)
		if m == nil {
			return nil, false
		}
		latency, _ := strconv.Atoi(lat)
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		e[model.FieldLatency], e["latency_min"], e["latency_max"] = latency, lo, hi
	default:
		return nil, false
	}
	return e, true
}
