package console

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/abiconsole/internal/abi"
)

func labels(items []CompletionItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}

func TestComplete(t *testing.T) {
	s, err := abi.Parse([]byte(`[
	  {"type":"function","name":"transfer","stateMutability":"nonpayable",
	   "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}]},
	  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[]},
	  {"type":"function","name":"transfer","stateMutability":"nonpayable",
	   "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"},{"name":"data","type":"bytes"}]},
	  {"type":"event","name":"Transfer","inputs":[]}
	]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"totalSupply", "transfer"}, labels(complete(s, "t")))
	assert.Equal(t, []string{"transfer"}, labels(complete(s, "tr")))
	assert.Empty(t, complete(s, "T"))

	fields := complete(s, "transfer-")
	assert.Equal(t, []string{"transfer-amount", "transfer-data", "transfer-to"}, labels(fields))
	assert.Equal(t, "field", fields[0].Kind)
	assert.Equal(t, []string{"transfer-amount"}, labels(complete(s, "transfer-a")))

	assert.Empty(t, complete(nil, "t"))
}

func TestWS_Complete(t *testing.T) {
	h := newHarness(t, nil)
	c := dial(t, h)
	c.next("session")
	c.send("load", "1", LoadData{ABI: json.RawMessage(tokenABI)})
	c.next("loaded")

	c.send("complete", "2", CompleteRequest{Text: "balanceOf-"})
	var data CompletionsData
	require.NoError(t, json.Unmarshal(c.next("completions").Data, &data))
	assert.Equal(t, []string{"balanceOf-who"}, labels(data.Items))
}
