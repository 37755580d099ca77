package invoke

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedABI = `[
  {"type":"function","name":"configure","stateMutability":"nonpayable","inputs":[
    {"name":"count","type":"uint8"},
    {"name":"limit","type":"int64"},
    {"name":"enabled","type":"bool"},
    {"name":"label","type":"string"},
    {"name":"","type":"bytes32"},
    {"name":"pairs","type":"uint256[]"}
  ],"outputs":[]}
]`

func TestPrepare(t *testing.T) {
	entry, ok := mustSchema(t, mixedABI).Function("configure")
	require.True(t, ok)

	full := map[string]string{
		"configure-count":   " 7 ",
		"configure-limit":   "-9223372036854775809",
		"configure-enabled": "true",
		"configure-label":   "  keep spaces ",
		"configure-4":       "0x01",
		"configure-pairs":   "[1,2]",
	}

	tests := []struct {
		name      string
		override  map[string]string
		wantCode  ArgumentErrorCode
		wantParam string
	}{
		{name: "all present"},
		{name: "bad wide integer", override: map[string]string{"configure-limit": "12abc"}, wantCode: InvalidNumeric, wantParam: "limit"},
		{name: "empty wide integer", override: map[string]string{"configure-limit": "  "}, wantCode: MissingValue, wantParam: "limit"},
		{name: "empty native integer", override: map[string]string{"configure-count": ""}, wantCode: MissingValue, wantParam: "count"},
		{name: "empty bool", override: map[string]string{"configure-enabled": ""}, wantCode: MissingValue, wantParam: "enabled"},
		{name: "empty text defaults", override: map[string]string{"configure-label": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := make(map[string]string)
			for k, v := range full {
				raw[k] = v
			}
			for k, v := range tt.override {
				raw[k] = v
			}

			args, err := Prepare(entry, raw)
			if tt.wantCode != "" {
				var argErr *ArgumentError
				require.True(t, errors.As(err, &argErr), "got %v", err)
				assert.Equal(t, tt.wantCode, argErr.Code)
				assert.Equal(t, tt.wantParam, argErr.Param)
				return
			}
			require.NoError(t, err)
			require.Len(t, args, 6)
			assert.Equal(t, "7", args[0])
			want, _ := new(big.Int).SetString("-9223372036854775809", 10)
			assert.Equal(t, 0, args[1].(*big.Int).Cmp(want))
			assert.Equal(t, "true", args[2])
			assert.Equal(t, raw["configure-label"], args[3])
			assert.Equal(t, "0x01", args[4])
			assert.Equal(t, "[1,2]", args[5])
		})
	}
}

func TestPrepare_MissingTextDefaultsToEmpty(t *testing.T) {
	entry, _ := mustSchema(t, tokenABI).Function("balanceOf")
	args, err := Prepare(entry, nil)
	require.NoError(t, err)
	assert.Equal(t, Args{""}, args)
}

func TestParseBigInt(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0", "0", true},
		{"  42\t", "42", true},
		{"+17", "17", true},
		{"-17", "-17", true},
		{"0x1F", "31", true},
		{"0XfF", "255", true},
		{"0o17", "15", true},
		{"0b101", "5", true},
		{"115792089237316195423570985008687907853269984665640564039457584007913129639935",
			"115792089237316195423570985008687907853269984665640564039457584007913129639935", true},
		{"", "", false},
		{"-", "", false},
		{"1e3", "", false},
		{"1_000", "", false},
		{"0x", "", false},
		{"0x-1", "", false},
		{"-0x1", "", false},
		{"0b102", "", false},
		{"1.5", "", false},
		{"ten", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, ok := ParseBigInt(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, n.String())
			}
		})
	}
}
