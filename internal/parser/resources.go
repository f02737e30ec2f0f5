package parser

import (
	"io"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/coffersTech/benchlog/internal/model"
)

// Resource sample fields.
const (
	FieldCPU    = "cpu_percent"
	FieldMemory = "memory_percent"
)

// Resources parses (client|server)-N-resources.log samples. A line is either
// "<ts seconds> <cpu %> <memory %>" or a JSON object with the fields
// timestamp, cpu_percent and memory_percent.
func Resources() *Basic {
	var pool fastjson.ParserPool
	return NewBasic("resources", `((?:client|server)-\d+)-resources\.log`, func(r *model.Record, in io.Reader) error {
		return readResources(r, in, &pool)
	})
}

func readResources(r *model.Record, in io.Reader, pool *fastjson.ParserPool) error {
	p := pool.Get()
	defer pool.Put(p)

	ts := 0.0
	return scanLines(in, func(line string) bool {
		if line[0] == '{' {
			v, err := p.Parse(line)
			if err != nil || !v.Exists(model.FieldTimestamp) {
				r.AddWarning(ts, line)
				return true
			}
			ts = v.GetFloat64(model.FieldTimestamp)
			r.AddData(ts, model.Entry{
				FieldCPU:    v.GetFloat64(FieldCPU),
				FieldMemory: v.GetFloat64(FieldMemory),
			})
			return true
		}

		parts := strings.Fields(line)
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			r.AddWarning(ts, line)
			return true
		}
		ts = v
		// the last line of a log may be cut off after the timestamp
		if len(parts) == 1 {
			return true
		}
		if len(parts) != 3 {
			r.AddWarning(ts, line)
			return true
		}
		cpu, err1 := strconv.ParseFloat(parts[1], 64)
		mem, err2 := strconv.ParseFloat(parts[2], 64)
		if err1 != nil || err2 != nil {
			r.AddWarning(ts, line)
			return true
		}
		r.AddData(ts, model.Entry{FieldCPU: cpu, FieldMemory: mem})
		return true
	})
}
