package model

// Well-known entry fields.
const (
	FieldTimestamp  = "timestamp"
	FieldWarning    = "warning"
	FieldStarted    = "started"
	FieldThroughput = "throughput"
	FieldLatency    = "latency"
	FieldClient     = "client"
	FieldTag        = "tag"
)

// Entry is one observation of a record. Values are float64 or string.
type Entry map[string]any

// Timestamp returns the entry time in seconds, 0 if unset.
func (e Entry) Timestamp() float64 {
	v, _ := e.Float(FieldTimestamp)
	return v
}

// HasTimestamp reports whether the entry carries a timestamp.
func (e Entry) HasTimestamp() bool {
	_, ok := e.Float(FieldTimestamp)
	return ok
}

// Has reports whether the field is present.
func (e Entry) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Float returns a numeric field.
func (e Entry) Float(field string) (float64, bool) {
	switch v := e[field].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// String returns a text field.
func (e Entry) String(field string) (string, bool) {
	v, ok := e[field].(string)
	return v, ok
}

// Warning returns the raw text of an unstructured entry.
func (e Entry) Warning() (string, bool) {
	return e.String(FieldWarning)
}

// IsWarning reports whether the entry is an unstructured line.
func (e Entry) IsWarning() bool {
	return e.Has(FieldWarning)
}

// Clone returns a shallow copy; values are immutable scalars.
func (e Entry) Clone() Entry {
	c := make(Entry, len(e))
	for k, v := range e {
		c[k] = v
	}
	return c
}

func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}
