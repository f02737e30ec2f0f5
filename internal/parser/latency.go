package parser

import (
	"io"
	"strconv"
	"strings"

	"github.com/coffersTech/benchlog/internal/model"
)

// Latency parses client-N.latency raw request traces with lines
// "<client> <reply time us> <latency us> <tag>".
func Latency() *Basic {
	return NewBasic("latency", `(client-\d+)\.latency`, readLatency)
}

func readLatency(r *model.Record, in io.Reader) error {
	ts := 0.0
	return scanLines(in, func(line string) bool {
		parts := strings.Fields(line)
		if len(parts) != 4 {
			r.AddWarning(ts, line)
			return true
		}
		reply, err := microsToSeconds(parts[1])
		if err != nil {
			r.AddWarning(ts, line)
			return true
		}
		client, err1 := strconv.Atoi(parts[0])
		latency, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil {
			r.AddWarning(ts, line)
			return true
		}
		ts = reply
		r.AddData(ts, model.Entry{
			model.FieldClient:  client,
			model.FieldLatency: latency,
			model.FieldTag:     parts[3],
		})
		return true
	})
}

// YCSBRaw parses client-N.ycsb raw measurement exports with lines
// "<op>,<timestamp ms>,<latency us>". The client of every request is -1.
func YCSBRaw() *Basic {
	return NewBasic("latency", `(client-\d+)\.ycsb`, readYCSB)
}

const ycsbHeaderSuffix = " latency raw data: op, timestamp(ms), latency(us)"

var ycsbOps = []string{"READ", "VERIFY", "UPDATE", "CLEANUP"}

func readYCSB(r *model.Record, in io.Reader) error {
	ts := 0.0
	empty := true
	err := scanLines(in, func(line string) bool {
		empty = false
		parts := strings.Split(line, ",")
		if len(parts) != 3 || strings.Contains(line, "latency raw data") {
			if !isYCSBHeader(line) {
				r.AddWarning(ts, line)
			}
			return true
		}
		ms, err1 := strconv.ParseInt(parts[1], 10, 64)
		latency, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil {
			r.AddWarning(ts, line)
			return true
		}
		ts = float64(ms) / 1e3
		r.AddData(ts, model.Entry{
			model.FieldClient:  -1,
			model.FieldLatency: latency,
			model.FieldTag:     parts[0],
		})
		return true
	})
	if err != nil {
		return err
	}
	if empty {
		return model.Fatalf("Broken logfile %s", r.Origin)
	}
	return nil
}

func isYCSBHeader(line string) bool {
	for _, op := range ycsbOps {
		if line == op+ycsbHeaderSuffix {
			return true
		}
	}
	return false
}
