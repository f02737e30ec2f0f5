package model

// AggregateClientCount marks a record that summarizes all client counts of a scenario.
const AggregateClientCount = -1

// Record is one normalized log source, either parsed from a file or derived
// by a transformer. Entries keep file order.
type Record struct {
	Kind        string  `json:"kind"`
	ID          string  `json:"id"`
	Origin      string  `json:"origin"`
	Scenario    string  `json:"scenario"`
	ClientCount int     `json:"client_count"`
	TimeOrigin  float64 `json:"time_origin"`
	Entries     []Entry `json:"entries"`
}

// NewRecord creates an empty record.
func NewRecord(kind, id, origin string) *Record {
	return &Record{
		Kind:    kind,
		ID:      id,
		Origin:  origin,
		Entries: make([]Entry, 0, 64),
	}
}

// AddData appends a measurement entry. The fields map is copied.
func (r *Record) AddData(ts float64, fields Entry) Entry {
	e := make(Entry, len(fields)+1)
	for k, v := range fields {
		e[k] = normalizeValue(v)
	}
	e[FieldTimestamp] = ts
	r.Entries = append(r.Entries, e)
	return e
}

// AddWarning appends an unstructured line.
func (r *Record) AddWarning(ts float64, text string) Entry {
	e := Entry{FieldTimestamp: ts, FieldWarning: text}
	r.Entries = append(r.Entries, e)
	return e
}

// AddEntry appends an existing entry without copying it.
// Entries are never modified once they belong to a record.
func (r *Record) AddEntry(e Entry) {
	r.Entries = append(r.Entries, e)
}

// SetScenario assigns the run identity shared by all records of a run.
func (r *Record) SetScenario(scenario string, clientCount int) {
	r.Scenario = scenario
	r.ClientCount = clientCount
}

// SetTimeOrigin sets the absolute time zero of the run.
func (r *Record) SetTimeOrigin(origin float64) {
	r.TimeOrigin = origin
}

// Len returns the number of entries.
func (r *Record) Len() int {
	return len(r.Entries)
}

// Derive returns a new record with the same run metadata and no entries.
// An empty kind keeps the kind and origin of r.
func (r *Record) Derive(kind string) *Record {
	var out *Record
	if kind == "" {
		out = NewRecord(r.Kind, r.ID, r.Origin)
	} else {
		out = NewRecord(kind, r.ID, "derived from "+r.Origin)
	}
	out.SetScenario(r.Scenario, r.ClientCount)
	out.SetTimeOrigin(r.TimeOrigin)
	return out
}

// Extract returns one column per field, using only entries that carry all
// requested numeric fields.
func (r *Record) Extract(fields ...string) [][]float64 {
	cols := make([][]float64, len(fields))
	for _, e := range r.Entries {
		row := make([]float64, len(fields))
		ok := true
		for i, f := range fields {
			v, has := e.Float(f)
			if !has {
				ok = false
				break
			}
			row[i] = v
		}
		if !ok {
			continue
		}
		for i := range fields {
			cols[i] = append(cols[i], row[i])
		}
	}
	return cols
}

// Select returns the records of the given kind, keeping input order.
func Select(records []*Record, kind string) []*Record {
	var out []*Record
	for _, r := range records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
