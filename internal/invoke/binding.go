package invoke

import (
	"github.com/matthewbaird/abiconsole/internal/abi"
	"github.com/matthewbaird/abiconsole/internal/naming"
	"github.com/matthewbaird/abiconsole/internal/typemap"
)

// Dispatch paths.
const (
	PathRead  = "read"
	PathWrite = "write"
)

// PathOf returns the dispatch path selected by the entry's mutability.
func PathOf(e abi.Entry) string {
	if e.ReadOnly() {
		return PathRead
	}
	return PathWrite
}

// Field describes one input control of an operation.
type Field struct {
	ID       string `json:"id"`
	Param    string `json:"param"`
	Type     string `json:"type"`
	Repr     string `json:"repr"`
	Required bool   `json:"required"`
}

// Binding is the callable surface of one operation: what the console
// renders and what the emitter generates a handler for.
type Binding struct {
	Operation  string         `json:"operation"`
	Handler    string         `json:"handler"`
	Mutability abi.Mutability `json:"mutability"`
	Path       string         `json:"path"`
	Fields     []Field        `json:"fields"`
	Outputs    []string       `json:"outputs"`
	ResultKey  string         `json:"result_key"`
}

// Bind derives the binding for a callable entry.
func Bind(e abi.Entry) Binding {
	b := Binding{
		Operation:  e.Name,
		Handler:    naming.HandlerName(e.Name),
		Mutability: e.Mutability,
		Path:       PathOf(e),
		Fields:     make([]Field, 0, len(e.Inputs)),
		Outputs:    make([]string, 0, len(e.Outputs)),
		ResultKey:  naming.ResultKey(e.Name),
	}
	for _, p := range e.Inputs {
		r := typemap.Coercion(p.Type)
		b.Fields = append(b.Fields, Field{
			ID:       naming.FieldID(e.Name, p.Field),
			Param:    p.Binding,
			Type:     p.Type.String(),
			Repr:     r.String(),
			Required: r.Numeric() || r == typemap.ReprBool,
		})
	}
	for _, p := range e.Outputs {
		b.Outputs = append(b.Outputs, p.Type.String())
	}
	return b
}

// Bindings returns one binding per callable function, in declaration order.
func Bindings(s *abi.Schema) []Binding {
	fns := s.Functions()
	out := make([]Binding, 0, len(fns))
	for _, e := range fns {
		out = append(out, Bind(e))
	}
	return out
}
