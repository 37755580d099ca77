package invoke

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_WideIntegersAsDecimalText(t *testing.T) {
	huge, _ := new(big.Int).SetString("340282366920938463463374607431768211457", 10)

	out, err := Render(huge)
	require.NoError(t, err)
	assert.Equal(t, `"340282366920938463463374607431768211457"`, out)

	nested := []any{
		huge,
		map[string]any{"inner": []*big.Int{big.NewInt(-1), nil}},
	}
	out, err = Render(nested)
	require.NoError(t, err)
	assert.JSONEq(t, `["340282366920938463463374607431768211457", {"inner": ["-1", null]}]`, out)
}

func TestRender_TupleStruct(t *testing.T) {
	type position struct {
		Owner    common.Address `json:"owner"`
		Amount   *big.Int       `json:"amount"`
		Salt     [4]byte        `json:"salt"`
		Memo     []byte
		internal int
	}
	v := position{
		Owner:  common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"),
		Amount: big.NewInt(77),
		Salt:   [4]byte{0xde, 0xad, 0xbe, 0xef},
		Memo:   []byte("hi"),
	}
	out, err := Render(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"owner": "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"amount": "77",
		"salt": "0xdeadbeef",
		"Memo": "0x6869"
	}`, out)
}

func TestRender_IndentsAndKeepsNativeNumbers(t *testing.T) {
	out, err := Render(map[string]any{"a": uint8(3), "b": true, "c": json.Number("12345678901234567890")})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 3,\n  \"b\": true,\n  \"c\": 12345678901234567890\n}", out)
}

type receiptLike struct {
	GasUsed uint64
}

func (r receiptLike) MarshalJSON() ([]byte, error) {
	return []byte(`{"gasUsed":"0x5208","blockNumber":18446744073709551617}`), nil
}

func TestRender_JSONMarshalerKeepsPrecision(t *testing.T) {
	out, err := Render(&receiptLike{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"gasUsed":"0x5208","blockNumber":18446744073709551617}`, out)
	assert.Contains(t, out, "18446744073709551617")
}
