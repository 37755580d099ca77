// Package emit renders a loaded interface as the source of a standalone
// React component that binds every callable function the same way the live
// console does. Output is a pure function of its inputs.
package emit

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/matthewbaird/abiconsole/internal/abi"
	"github.com/matthewbaird/abiconsole/internal/invoke"
	"github.com/matthewbaird/abiconsole/internal/naming"
	"github.com/matthewbaird/abiconsole/internal/typemap"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var tmpl = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Mode selects where the emitted component gets its interface from.
type Mode int

const (
	// External imports the interface from a companion abi.json.
	External Mode = iota
	// Inline embeds the interface as a literal.
	Inline
)

func (m Mode) String() string {
	if m == Inline {
		return "inline"
	}
	return "external"
}

// ParseMode accepts "inline" and "external".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "external", "":
		return External, nil
	case "inline":
		return Inline, nil
	default:
		return External, fmt.Errorf("unknown mode %q", s)
	}
}

// SchemaFilename is the companion file imported in External mode.
const SchemaFilename = "abi.json"

// Filename returns the component file name for a dialect.
func Filename(d typemap.Dialect) string {
	if d == typemap.Static {
		return "ContractComponent.tsx"
	}
	return "ContractComponent.js"
}

// ErrNoSchema is returned when there is nothing to emit.
var ErrNoSchema = errors.New("no interface loaded")

type view struct {
	Static        bool
	Inline        bool
	SchemaLiteral string
	Handlers      []handlerView
}

type handlerView struct {
	Name      string
	Operation string
	ResultKey string
	Read      bool
	Signature string // parameter list, annotated in the static dialect
	Args      string // parameter names passed to the contract method
	CallSite  string // control reads passed to the handler
	Params    []paramView
}

type paramView struct {
	FieldID string
	Label   string
}

// Emit renders the component source for s.
func Emit(s *abi.Schema, d typemap.Dialect, m Mode) (string, error) {
	if s == nil {
		return "", ErrNoSchema
	}

	v := view{Static: d == typemap.Static, Inline: m == Inline}
	if v.Inline {
		lit, err := s.IndentedJSON()
		if err != nil {
			return "", fmt.Errorf("formatting interface literal: %w", err)
		}
		v.SchemaLiteral = lit
	}
	for _, entry := range s.Functions() {
		v.Handlers = append(v.Handlers, buildHandler(invoke.Bind(entry), entry, d))
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "component.tmpl", v); err != nil {
		return "", fmt.Errorf("rendering component: %w", err)
	}
	return buf.String(), nil
}

func buildHandler(b invoke.Binding, entry abi.Entry, d typemap.Dialect) handlerView {
	h := handlerView{
		Name:      b.Handler,
		Operation: b.Operation,
		ResultKey: b.ResultKey,
		Read:      b.Path == invoke.PathRead,
	}

	sig := make([]string, 0, len(entry.Inputs))
	names := make([]string, 0, len(entry.Inputs))
	calls := make([]string, 0, len(entry.Inputs))
	for _, p := range entry.Inputs {
		id := naming.FieldID(entry.Name, p.Field)
		param := p.Binding
		if d == typemap.Static {
			param += ": " + typemap.MapType(p.Type, d).Annotation()
		}
		sig = append(sig, param)
		names = append(names, p.Binding)
		calls = append(calls, callSite(typemap.Coercion(p.Type), id))
		h.Params = append(h.Params, paramView{FieldID: id, Label: p.Binding})
	}
	h.Signature = strings.Join(sig, ", ")
	h.Args = strings.Join(names, ", ")
	h.CallSite = strings.Join(calls, ", ")
	return h
}

// callSite is the expression that reads one control and converts it to the
// parameter's representation. It mirrors invoke.Prepare: wide integers go
// through BigInt, numbers and booleans must not be empty, text defaults to ''.
func callSite(r typemap.Repr, fieldID string) string {
	lit := "'" + template.JSEscapeString(fieldID) + "'"
	switch r {
	case typemap.ReprBigInt:
		return r.Constructor() + "(requireField(" + lit + "))"
	case typemap.ReprNative:
		return "Number(requireField(" + lit + "))"
	case typemap.ReprBool:
		return "requireField(" + lit + ").toLowerCase() === 'true'"
	default:
		return "readField(" + lit + ")"
	}
}

// File is one emitted file.
type File struct {
	Name    string
	Content string
}

// Files returns the component and, in External mode, the abi.json it imports.
func Files(s *abi.Schema, d typemap.Dialect, m Mode) ([]File, error) {
	src, err := Emit(s, d, m)
	if err != nil {
		return nil, err
	}
	files := []File{{Name: Filename(d), Content: src}}
	if m == External {
		lit, err := s.IndentedJSON()
		if err != nil {
			return nil, fmt.Errorf("formatting %s: %w", SchemaFilename, err)
		}
		files = append(files, File{Name: SchemaFilename, Content: lit + "\n"})
	}
	return files, nil
}
