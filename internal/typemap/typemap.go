// Package typemap classifies ABI parameter types into the representation
// both the live invocation engine and the source emitter use for them.
//
// Policy:
//
//	ABI type                          Representation
//	uint8..uint32, int8..int32        Native (fixed-width number)
//	uint40..uint256, int40..int256    BigInt (arbitrary precision)
//	address, string, bytes, bytesN    Text
//	bool                              Bool
//	anything else                     Any
//
// In the Dynamic dialect every tag maps to Any.
package typemap

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the family of an ABI type tag.
type Kind int

const (
	KindUnknown Kind = iota
	KindUint
	KindInt
	KindAddress
	KindBool
	KindString
	KindBytes
	KindFixedBytes
)

// Tag is a parsed ABI type. Size is the bit width for integers and the byte
// length for fixed bytes; it is zero otherwise.
type Tag struct {
	Kind Kind
	Size int
	Raw  string
}

// ParseTag parses an ABI type string. Types outside the closed set (arrays,
// tuples, fixed-point, malformed widths) parse as KindUnknown and keep Raw.
func ParseTag(s string) Tag {
	raw := strings.TrimSpace(s)
	t := Tag{Kind: KindUnknown, Raw: raw}

	switch raw {
	case "address":
		return Tag{Kind: KindAddress, Raw: raw}
	case "bool":
		return Tag{Kind: KindBool, Raw: raw}
	case "string":
		return Tag{Kind: KindString, Raw: raw}
	case "bytes":
		return Tag{Kind: KindBytes, Raw: raw}
	case "uint":
		return Tag{Kind: KindUint, Size: 256, Raw: raw}
	case "int":
		return Tag{Kind: KindInt, Size: 256, Raw: raw}
	}

	switch {
	case strings.HasPrefix(raw, "uint"):
		if n, ok := intWidth(raw[len("uint"):]); ok {
			return Tag{Kind: KindUint, Size: n, Raw: raw}
		}
	case strings.HasPrefix(raw, "int"):
		if n, ok := intWidth(raw[len("int"):]); ok {
			return Tag{Kind: KindInt, Size: n, Raw: raw}
		}
	case strings.HasPrefix(raw, "bytes"):
		n, err := strconv.Atoi(raw[len("bytes"):])
		if err == nil && n >= 1 && n <= 32 && strconv.Itoa(n) == raw[len("bytes"):] {
			return Tag{Kind: KindFixedBytes, Size: n, Raw: raw}
		}
	}
	return t
}

func intWidth(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || strconv.Itoa(n) != s {
		return 0, false
	}
	if n < 8 || n > 256 || n%8 != 0 {
		return 0, false
	}
	return n, true
}

// String returns the canonical ABI spelling. The uint/int aliases are
// expanded to their 256-bit form; unknown tags return the raw text.
func (t Tag) String() string {
	switch t.Kind {
	case KindUint:
		return fmt.Sprintf("uint%d", t.Size)
	case KindInt:
		return fmt.Sprintf("int%d", t.Size)
	case KindAddress:
		return "address"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindFixedBytes:
		return fmt.Sprintf("bytes%d", t.Size)
	default:
		return t.Raw
	}
}

// Known reports whether the tag is inside the closed type set.
func (t Tag) Known() bool { return t.Kind != KindUnknown }

// Dialect selects the output language variant.
type Dialect int

const (
	// Dynamic is the dynamically typed variant (JavaScript).
	Dynamic Dialect = iota
	// Static is the statically typed variant (TypeScript).
	Static
)

func (d Dialect) String() string {
	if d == Static {
		return "static"
	}
	return "dynamic"
}

// ParseDialect accepts "dynamic"/"javascript"/"js" and "static"/"typescript"/"ts".
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dynamic", "javascript", "js", "":
		return Dynamic, nil
	case "static", "typescript", "ts":
		return Static, nil
	default:
		return Dynamic, fmt.Errorf("unknown dialect %q", s)
	}
}

// Repr is the semantic representation of a value of some ABI type.
type Repr int

const (
	ReprAny Repr = iota
	ReprNative
	ReprBigInt
	ReprText
	ReprBool
)

func (r Repr) String() string {
	switch r {
	case ReprNative:
		return "native"
	case ReprBigInt:
		return "bigint"
	case ReprText:
		return "text"
	case ReprBool:
		return "bool"
	default:
		return "any"
	}
}

// Annotation is the static type annotation text for the representation.
func (r Repr) Annotation() string {
	switch r {
	case ReprNative:
		return "number"
	case ReprBigInt:
		return "bigint"
	case ReprText:
		return "string"
	case ReprBool:
		return "boolean"
	default:
		return "any"
	}
}

// Numeric reports whether values of the representation are numbers.
func (r Repr) Numeric() bool { return r == ReprNative || r == ReprBigInt }

// Constructor is the emitted constructor call for representations that
// must be built from control text, or "" when the text is passed as is.
func (r Repr) Constructor() string {
	if r == ReprBigInt {
		return "BigInt"
	}
	return ""
}

// MapType maps a tag to its representation in the given dialect.
func MapType(t Tag, d Dialect) Repr {
	if d == Dynamic {
		return ReprAny
	}
	switch t.Kind {
	case KindUint, KindInt:
		if t.Size <= 32 {
			return ReprNative
		}
		return ReprBigInt
	case KindAddress, KindString, KindBytes, KindFixedBytes:
		return ReprText
	case KindBool:
		return ReprBool
	default:
		return ReprAny
	}
}

// Coercion is the representation used when turning control text into an
// argument. It is dialect independent: generated JavaScript still wraps
// wide integers even though it carries no annotations.
func Coercion(t Tag) Repr {
	return MapType(t, Static)
}
