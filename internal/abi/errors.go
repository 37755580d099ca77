package abi

import (
	"fmt"
	"unicode/utf8"
)

// SchemaErrorCode classifies a failed load.
type SchemaErrorCode string

const (
	// NotASequence: the top-level value is not an array.
	NotASequence SchemaErrorCode = "not_a_sequence"
	// InvalidJSON: the payload is not parsable JSON.
	InvalidJSON SchemaErrorCode = "invalid_json"
)

// fragmentLimit bounds how much of the offending payload is kept for display.
const fragmentLimit = 160

// SchemaError is a fatal load error. Fragment holds the start of the
// offending payload.
type SchemaError struct {
	Code     SchemaErrorCode
	Fragment string
	Err      error
}

func (e *SchemaError) Error() string {
	var msg string
	switch e.Code {
	case NotASequence:
		msg = "interface description must be a JSON array of entries"
	case InvalidJSON:
		msg = "interface description is not valid JSON"
	default:
		msg = "invalid interface description"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Fragment != "" {
		msg += fmt.Sprintf(" (near %q)", e.Fragment)
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// fragment keeps at most fragmentLimit bytes of b, cut on a rune boundary.
func fragment(b []byte) string {
	if len(b) <= fragmentLimit {
		return string(b)
	}
	cut := fragmentLimit
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut]) + "..."
}
