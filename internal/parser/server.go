package parser

import (
	"io"

	"github.com/coffersTech/benchlog/internal/model"
)

const serverReadyMarker = "main [EVENT] RPLCA: READY"

// Server parses server-N.log replica logs. After the ready marker every
// line is kept as a warning for the rule classifier.
func Server() *Basic {
	return NewBasic("server", `(server-\d+)\.log`, readServer)
}

func readServer(r *model.Record, in io.Reader) error {
	atStart := true
	ts := 0.0
	return scanLines(in, func(line string) bool {
		if first, rest := cutField(line); rest != "" && isDigits(first) {
			if v, err := microsToSeconds(first); err == nil {
				ts = v
				line = rest
			}
		}
		if atStart {
			if line == serverReadyMarker {
				atStart = false
				r.AddData(ts, model.Entry{model.FieldStarted: 1})
			}
			return true
		}
		r.AddWarning(ts, line)
		return true
	})
}
