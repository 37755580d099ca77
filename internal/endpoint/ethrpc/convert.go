package ethrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/matthewbaird/abiconsole/internal/invoke"
	"github.com/matthewbaird/abiconsole/internal/naming"
)

// convertArgs turns prepared arguments into the Go values the ABI packer
// expects for each input type. A value the type cannot hold is an
// *invoke.ArgumentError naming the parameter.
func convertArgs(inputs gethabi.Arguments, args invoke.Args) ([]any, error) {
	if len(inputs) != len(args) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(inputs), len(args))
	}
	out := make([]any, len(args))
	for i, in := range inputs {
		v, err := convert(in.Type, args[i])
		if err != nil {
			return nil, &invoke.ArgumentError{
				Code:   invoke.InvalidValue,
				Param:  naming.ParamName(in.Name, i),
				Value:  text(args[i]),
				Reason: err.Error(),
			}
		}
		out[i] = v
	}
	return out, nil
}

func convert(t gethabi.Type, v any) (any, error) {
	switch t.T {
	case gethabi.IntTy, gethabi.UintTy:
		return convertInt(t, v)
	case gethabi.BoolTy:
		s := strings.ToLower(strings.TrimSpace(text(v)))
		switch s {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("invalid bool %q", text(v))
	case gethabi.AddressTy:
		s := strings.TrimSpace(text(v))
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return common.HexToAddress(s), nil
	case gethabi.StringTy:
		return text(v), nil
	case gethabi.BytesTy:
		return decodeHex(text(v))
	case gethabi.FixedBytesTy:
		b, err := decodeHex(text(v))
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%d bytes do not fit bytes%d", len(b), t.Size)
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	case gethabi.SliceTy, gethabi.ArrayTy:
		return convertList(t, v)
	default:
		return nil, fmt.Errorf("unsupported parameter type %s", t.String())
	}
}

func convertInt(t gethabi.Type, v any) (any, error) {
	var n *big.Int
	switch x := v.(type) {
	case *big.Int:
		n = x
	case json.Number:
		n, _ = invoke.ParseBigInt(x.String())
	default:
		n, _ = invoke.ParseBigInt(text(v))
	}
	if n == nil {
		return nil, fmt.Errorf("invalid integer %q", text(v))
	}

	signed := t.T == gethabi.IntTy
	if !fits(n, t.Size, signed) {
		return nil, fmt.Errorf("%s does not fit %s", n, t.String())
	}
	// Only 8, 16, 32 and 64 bit widths pack from Go integer types.
	target := t.GetType()
	if target.Kind() == reflect.Pointer {
		return n, nil
	}
	if signed {
		return reflect.ValueOf(n.Int64()).Convert(target).Interface(), nil
	}
	return reflect.ValueOf(n.Uint64()).Convert(target).Interface(), nil
}

func fits(n *big.Int, bits int, signed bool) bool {
	if !signed {
		return n.Sign() >= 0 && n.BitLen() <= bits
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	lo := new(big.Int).Neg(limit)
	hi := new(big.Int).Sub(limit, big.NewInt(1))
	return n.Cmp(lo) >= 0 && n.Cmp(hi) <= 0
}

// convertList accepts a JSON array literal for array and slice parameters.
func convertList(t gethabi.Type, v any) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text(v)))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("%s expects a JSON array: %w", t.String(), err)
	}
	if t.T == gethabi.ArrayTy && len(items) != t.Size {
		return nil, fmt.Errorf("%s expects %d elements, got %d", t.String(), t.Size, len(items))
	}

	var out reflect.Value
	if t.T == gethabi.ArrayTy {
		out = reflect.New(t.GetType()).Elem()
	} else {
		out = reflect.MakeSlice(t.GetType(), len(items), len(items))
	}
	for i, item := range items {
		if nested, ok := item.([]any); ok {
			raw, err := json.Marshal(nested)
			if err != nil {
				return nil, err
			}
			item = string(raw)
		}
		ev, err := convert(*t.Elem, item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(ev))
	}
	return out.Interface(), nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []byte{}, nil
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(strings.Replace(s, "0X", "0x", 1))
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case *big.Int:
		return x.String()
	case []byte:
		return string(bytes.TrimSpace(x))
	default:
		return fmt.Sprint(x)
	}
}
