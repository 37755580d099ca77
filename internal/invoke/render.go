package invoke

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Render serialises a call result for display as JSON indented by two
// spaces. Arbitrary precision integers become decimal strings at any
// depth, byte slices and arrays become 0x hex, addresses are checksummed.
func Render(v any) (string, error) {
	out, err := json.MarshalIndent(normalize(reflect.ValueOf(v)), "", "  ")
	if err != nil {
		return "", fmt.Errorf("rendering result: %w", err)
	}
	return string(out), nil
}

var (
	bigIntType  = reflect.TypeOf(big.Int{})
	addressType = reflect.TypeOf(common.Address{})
	hashType    = reflect.TypeOf(common.Hash{})
	numberType  = reflect.TypeOf(json.Number(""))
	marshaler   = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
)

func normalize(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Type() {
	case bigIntType:
		b := v.Interface().(big.Int)
		return b.String()
	case addressType:
		return v.Interface().(common.Address).Hex()
	case hashType:
		return v.Interface().(common.Hash).Hex()
	case numberType:
		return v.Interface()
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return normalize(v.Elem())
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return hexutil.Encode(v.Bytes())
		}
		return normalizeList(v)
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return hexutil.Encode(b)
		}
		return normalizeList(v)
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		out := make(map[string]any, v.Len())
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			out[fmt.Sprint(normalize(k))] = normalize(v.MapIndex(k))
		}
		return out
	case reflect.Struct:
		if v.Type().Implements(marshaler) {
			return normalizeMarshaled(v.Interface().(json.Marshaler))
		}
		return normalizeStruct(v)
	}

	if v.CanInterface() {
		if m, ok := v.Interface().(json.Marshaler); ok {
			return normalizeMarshaled(m)
		}
		return v.Interface()
	}
	return nil
}

func normalizeList(v reflect.Value) []any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = normalize(v.Index(i))
	}
	return out
}

// normalizeStruct keeps exported fields, named by their json tag when one
// is present. Tuple outputs decode into such structs.
func normalizeStruct(v reflect.Value) map[string]any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag := f.Tag.Get("json"); tag != "" {
			if tag == "-" {
				continue
			}
			if n, _, _ := strings.Cut(tag, ","); n != "" {
				name = n
			}
		}
		out[name] = normalize(v.Field(i))
	}
	return out
}

// normalizeMarshaled round-trips a value through its own JSON encoding so
// that the numbers it contains keep full precision.
func normalizeMarshaled(m json.Marshaler) any {
	data, err := m.MarshalJSON()
	if err != nil {
		return fmt.Sprint(m)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return string(data)
	}
	return out
}
