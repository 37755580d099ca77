// Package naming derives the identifiers shared by the live console and the
// emitted component: handler names, control ids and result slots.
//
// Names are not disambiguated. An interface that declares two operations
// with the same name (overloads) yields two identical handler names and
// identical control ids; that is a property of the input, not something
// this package repairs.
package naming

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// HandlerPrefix is prepended to every operation name to form its handler.
const HandlerPrefix = "call"

// HandlerName returns the handler identifier for an operation, e.g.
// balanceOf -> callBalanceOf.
func HandlerName(op string) string {
	return HandlerPrefix + upperFirst(op)
}

// FieldID returns the key binding a parameter's input control to its value.
// param is the parameter's field key (see FieldKey).
func FieldID(op, param string) string {
	return op + "-" + param
}

// FieldKey returns the declared parameter name, or the parameter's index
// when the declaration left it empty: transfer-to, setFlags-0.
func FieldKey(name string, index int) string {
	if name != "" {
		return name
	}
	return strconv.Itoa(index)
}

// ParamName returns the declared parameter name, or a positional fallback
// (arg0, arg1, ...) when the declaration left it empty. Unlike FieldKey the
// result is always a valid identifier in emitted code.
func ParamName(name string, index int) string {
	if name != "" {
		return name
	}
	return "arg" + strconv.Itoa(index)
}

// ResultKey returns the slot an operation's result is stored under.
func ResultKey(op string) string {
	return op
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:]
}
