package abi

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gowebpki/jcs"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/matthewbaird/abiconsole/internal/naming"
	"github.com/matthewbaird/abiconsole/internal/typemap"
)

//go:embed entry.schema.json
var entrySchemaJSON string

const entrySchemaURL = "https://abiconsole.local/schemas/abi-entry.schema.json"

var entrySchema = jsonschema.MustCompileString(entrySchemaURL, entrySchemaJSON)

// Parse builds a schema from JSON text. Text that does not parse fails the
// whole load; problems inside individual entries only produce warnings.
func Parse(data []byte) (*Schema, error) {
	v, err := decode(data)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, &SchemaError{Code: NotASequence, Fragment: fragment(bytes.TrimSpace(data))}
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, &SchemaError{Code: InvalidJSON, Fragment: fragment(data), Err: err}
	}
	return build(items, raws)
}

// ParseArtifact accepts either a plain interface array or a compiler
// artifact object carrying the array under "abi".
func ParseArtifact(data []byte) (*Schema, error) {
	v, err := decode(data)
	if err != nil {
		return nil, err
	}
	if obj, ok := v.(map[string]any); ok {
		if inner, ok := obj["abi"]; ok {
			return FromValue(inner)
		}
	}
	return Parse(data)
}

// FromValue builds a schema from an already decoded JSON value.
func FromValue(v any) (*Schema, error) {
	switch x := v.(type) {
	case []any:
		raws := make([]json.RawMessage, len(x))
		for i, item := range x {
			b, err := json.Marshal(item)
			if err != nil {
				return nil, &SchemaError{Code: InvalidJSON, Err: fmt.Errorf("entry %d: %w", i, err)}
			}
			raws[i] = b
		}
		return build(x, raws)
	case json.RawMessage:
		return Parse(x)
	case nil:
		return nil, &SchemaError{Code: NotASequence, Fragment: "null"}
	}

	// Typed slices (e.g. []map[string]any) are normalised through JSON.
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, &SchemaError{Code: InvalidJSON, Err: err}
		}
		return Parse(data)
	}

	b, _ := json.Marshal(v)
	return nil, &SchemaError{Code: NotASequence, Fragment: fragment(b)}
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &SchemaError{Code: InvalidJSON, Fragment: fragment(bytes.TrimSpace(data)), Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &SchemaError{Code: InvalidJSON, Fragment: fragment(bytes.TrimSpace(data)), Err: errors.New("unexpected data after top-level value")}
	}
	return v, nil
}

func build(items []any, raws []json.RawMessage) (*Schema, error) {
	s := &Schema{entries: make([]Entry, 0, len(items))}

	for i, item := range items {
		var raw bytes.Buffer
		if err := json.Compact(&raw, raws[i]); err != nil {
			raw.Reset()
			raw.Write(raws[i])
		}

		obj, ok := item.(map[string]any)
		if !ok {
			s.warn(i, "entry is not an object; kept as inert")
			s.entries = append(s.entries, Entry{Kind: KindUnknown, raw: raw.Bytes()})
			continue
		}

		if err := entrySchema.Validate(obj); err != nil {
			s.warn(i, validationMessage(err))
		}

		e := decodeEntry(obj, func(msg string) { s.warn(i, msg) })
		e.raw = raw.Bytes()
		if e.Kind == KindFunction && e.Name == "" {
			s.warn(i, "function entry has no name; it will not be rendered")
		}
		s.entries = append(s.entries, e)
	}

	s.digest = digest(s.JSON())
	return s, nil
}

func (s *Schema) warn(i int, msg string) {
	s.warnings = append(s.warnings, Warning{Index: i, Message: msg})
}

func decodeEntry(obj map[string]any, warn func(string)) Entry {
	var e Entry

	e.Tag, _ = obj["type"].(string)
	if _, present := obj["type"]; !present {
		// Entries without a type are functions.
		e.Kind = KindFunction
	} else {
		e.Kind = parseKind(e.Tag)
		if e.Kind == KindUnknown {
			warn(fmt.Sprintf("unrecognised entry type %q; kept as inert", e.Tag))
		}
	}

	e.Name, _ = obj["name"].(string)
	e.Mutability = decodeMutability(obj)
	e.Inputs = decodeParams(obj["inputs"], "inputs", warn)
	e.Outputs = decodeParams(obj["outputs"], "outputs", warn)
	return e
}

// decodeMutability prefers stateMutability and falls back to the legacy
// constant/payable flags.
func decodeMutability(obj map[string]any) Mutability {
	if s, ok := obj["stateMutability"].(string); ok && Mutability(s).valid() {
		return Mutability(s)
	}
	if c, _ := obj["constant"].(bool); c {
		return View
	}
	if p, _ := obj["payable"].(bool); p {
		return Payable
	}
	return NonPayable
}

func decodeParams(v any, field string, warn func(string)) []Param {
	if v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		warn(field + " is not an array; treated as empty")
		return nil
	}
	params := make([]Param, 0, len(list))
	for i, item := range list {
		p := Param{Index: i}
		if obj, ok := item.(map[string]any); ok {
			p.Name, _ = obj["name"].(string)
			t, _ := obj["type"].(string)
			p.Type = typemap.ParseTag(t)
		} else {
			warn(fmt.Sprintf("%s[%d] is not an object", field, i))
			p.Type = typemap.ParseTag("")
		}
		p.Binding = naming.ParamName(p.Name, i)
		p.Field = naming.FieldKey(p.Name, i)
		params = append(params, p)
	}
	return params
}

func validationMessage(err error) string {
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		for len(ve.Causes) > 0 {
			ve = ve.Causes[0]
		}
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return fmt.Sprintf("%s: %s", loc, ve.Message)
	}
	return strings.TrimSpace(err.Error())
}

func digest(entries []byte) string {
	canon, err := jcs.Transform(entries)
	if err != nil {
		canon = entries
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])
}
