// Package abi holds the validated, immutable model of a contract interface
// description and the boundary parser that builds it from untyped JSON.
//
// Nothing outside this package inspects raw ABI values: the parser is the
// single point where loosely shaped input becomes typed entries.
package abi

import (
	"bytes"
	"encoding/json"

	"github.com/matthewbaird/abiconsole/internal/typemap"
)

// Kind discriminates interface entries.
type Kind string

const (
	KindFunction    Kind = "function"
	KindEvent       Kind = "event"
	KindConstructor Kind = "constructor"
	KindFallback    Kind = "fallback"
	KindReceive     Kind = "receive"
	KindError       Kind = "error"
	// KindUnknown marks entries whose tag is not recognised. They are kept
	// so that newer interface formats still load.
	KindUnknown Kind = "unknown"
)

func parseKind(s string) Kind {
	switch Kind(s) {
	case KindFunction, KindEvent, KindConstructor, KindFallback, KindReceive, KindError:
		return Kind(s)
	default:
		return KindUnknown
	}
}

// Mutability is the declared state mutability of a function.
type Mutability string

const (
	Pure       Mutability = "pure"
	View       Mutability = "view"
	NonPayable Mutability = "nonpayable"
	Payable    Mutability = "payable"
)

func (m Mutability) valid() bool {
	switch m {
	case Pure, View, NonPayable, Payable:
		return true
	}
	return false
}

// ReadOnly reports whether calls take the read path (no transaction).
func (m Mutability) ReadOnly() bool {
	return m == Pure || m == View
}

// Param is one positional parameter or return slot.
type Param struct {
	// Name as declared; may be empty.
	Name string
	Type typemap.Tag
	// Binding is Name, or the positional fallback when Name is empty.
	Binding string
	// Field keys the parameter's input control: Name, or Index when Name
	// is empty.
	Field string
	Index int
}

// Entry is one interface entry. Only callable functions carry meaning for
// the invocation engine and emitter; other kinds are inert.
type Entry struct {
	Kind       Kind
	Tag        string // the declared "type" value, verbatim
	Name       string
	Mutability Mutability
	Inputs     []Param
	Outputs    []Param
	raw        json.RawMessage
}

// Callable reports whether the entry is a named function.
func (e Entry) Callable() bool {
	return e.Kind == KindFunction && e.Name != ""
}

// ReadOnly reports whether the entry dispatches through the read path.
func (e Entry) ReadOnly() bool {
	return e.Mutability.ReadOnly()
}

// Raw returns the entry's JSON fragment as loaded (compacted).
func (e Entry) Raw() json.RawMessage {
	return append(json.RawMessage(nil), e.raw...)
}

// Warning describes a per-entry problem that did not abort the load.
type Warning struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// Schema is an ordered, immutable list of entries.
type Schema struct {
	entries  []Entry
	warnings []Warning
	digest   string
}

// Len returns the number of entries of any kind.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Entries returns all entries in declaration order.
func (s *Schema) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Functions returns the callable entries in declaration order.
func (s *Schema) Functions() []Entry {
	if s == nil {
		return nil
	}
	var out []Entry
	for _, e := range s.entries {
		if e.Callable() {
			out = append(out, e)
		}
	}
	return out
}

// Function returns the first callable entry with the given name.
func (s *Schema) Function(name string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	for _, e := range s.entries {
		if e.Callable() && e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Warnings returns the per-entry issues found while loading.
func (s *Schema) Warnings() []Warning {
	if s == nil {
		return nil
	}
	return append([]Warning(nil), s.warnings...)
}

// Digest is a stable identity of the loaded interface: the SHA-256 of the
// canonicalised entries, hex encoded.
func (s *Schema) Digest() string {
	if s == nil {
		return ""
	}
	return s.digest
}

// JSON returns the entries as a compact JSON array.
func (s *Schema) JSON() json.RawMessage {
	var buf bytes.Buffer
	buf.WriteByte('[')
	if s != nil {
		for i, e := range s.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(e.raw)
		}
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// IndentedJSON returns the entries as JSON indented by two spaces.
func (s *Schema) IndentedJSON() (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, s.JSON(), "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}
