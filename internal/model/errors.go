package model

import "fmt"

// FatalError aborts the processing of a run. It names the record it was
// raised for so the failure can be traced back to a file.
type FatalError struct {
	Reason string
	Entry  Entry
	// Err is the condition class, if any.
	Err error

	Kind   string
	ID     string
	Origin string
}

// Fatalf creates a FatalError without record identity.
func Fatalf(format string, args ...any) *FatalError {
	return &FatalError{Reason: fmt.Sprintf(format, args...)}
}

// WrapFatal creates a FatalError of class err. The reason should mention err.
func WrapFatal(err error, format string, args ...any) *FatalError {
	return &FatalError{Reason: fmt.Sprintf(format, args...), Err: err}
}

// FatalOnEntry creates a FatalError for a specific entry.
func FatalOnEntry(reason string, e Entry) *FatalError {
	return &FatalError{Reason: reason, Entry: e}
}

// Attribute fills in the record identity unless it is already set.
func (e *FatalError) Attribute(r *Record) *FatalError {
	if e.Kind == "" && e.ID == "" && e.Origin == "" {
		e.Kind, e.ID, e.Origin = r.Kind, r.ID, r.Origin
	}
	return e
}

func (e *FatalError) Error() string {
	msg := e.Reason
	if e.Entry != nil {
		msg = fmt.Sprintf("%s on entry %v", e.Reason, map[string]any(e.Entry))
	}
	if e.Origin != "" || e.Kind != "" {
		return fmt.Sprintf("%s %s (%s): %s", e.Kind, e.ID, e.Origin, msg)
	}
	return msg
}

func (e *FatalError) Unwrap() error { return e.Err }
