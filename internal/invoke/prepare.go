package invoke

import (
	"math/big"
	"strings"

	"github.com/matthewbaird/abiconsole/internal/abi"
	"github.com/matthewbaird/abiconsole/internal/naming"
	"github.com/matthewbaird/abiconsole/internal/typemap"
)

// Args are positional call arguments, one per declared input. Wide
// integers are *big.Int; every other value is the control text.
type Args []any

// Prepare turns raw control values, keyed by naming.FieldID, into
// arguments for entry. The representation of each parameter comes from
// typemap.Coercion, the same rule the emitter uses for its call sites.
//
// Wide integers accept decimal text with an optional sign, or unsigned
// 0x, 0o and 0b literals. Numeric and boolean controls may not be empty.
// Text and unknown controls default to "".
func Prepare(entry abi.Entry, raw map[string]string) (Args, error) {
	args := make(Args, len(entry.Inputs))
	for i, p := range entry.Inputs {
		v := raw[naming.FieldID(entry.Name, p.Field)]

		switch typemap.Coercion(p.Type) {
		case typemap.ReprBigInt:
			s := strings.TrimSpace(v)
			if s == "" {
				return nil, &ArgumentError{Code: MissingValue, Param: p.Binding}
			}
			n, ok := ParseBigInt(s)
			if !ok {
				return nil, &ArgumentError{Code: InvalidNumeric, Param: p.Binding, Value: v}
			}
			args[i] = n
		case typemap.ReprNative, typemap.ReprBool:
			s := strings.TrimSpace(v)
			if s == "" {
				return nil, &ArgumentError{Code: MissingValue, Param: p.Binding}
			}
			args[i] = s
		default:
			args[i] = v
		}
	}
	return args, nil
}

// ParseBigInt parses integer literal text the way the emitted component's
// BigInt constructor does.
func ParseBigInt(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	base, digits := 10, s
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 10 {
			digits = s[2:]
			if digits[0] == '+' || digits[0] == '-' {
				return nil, false
			}
		}
	}
	if strings.ContainsRune(digits, '_') {
		return nil, false
	}

	n, ok := new(big.Int).SetString(digits, base)
	return n, ok
}
