package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/abiconsole/internal/invoke"
)

const tokenABI = `[
  {"type":"constructor","inputs":[]},
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"who","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable",
   "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

func writeABI(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Token.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestInspect(t *testing.T) {
	out, err := execute(t, "inspect", writeABI(t, tokenABI))
	require.NoError(t, err)
	for _, want := range []string{"callBalanceOf", "callTransfer", "balanceOf-who", "transfer-amount (uint256 → bigint)", "2 operations"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "constructor")
}

func TestInspect_Artifact(t *testing.T) {
	out, err := execute(t, "inspect", writeABI(t, `{"contractName":"Token","abi":`+tokenABI+`}`))
	require.NoError(t, err)
	assert.Contains(t, out, "callTransfer")
}

func TestInspect_Rejected(t *testing.T) {
	_, err := execute(t, "inspect", writeABI(t, `{"type":"function"}`))
	assert.ErrorContains(t, err, "must be a JSON array")
}

func TestEmit_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "emit", writeABI(t, tokenABI), "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "ContractComponent.js")

	src, err := os.ReadFile(filepath.Join(dir, "ContractComponent.js"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "import abi from './abi.json';")
	assert.Contains(t, string(src), "BigInt(requireField('transfer-amount'))")

	schema, err := os.ReadFile(filepath.Join(dir, "abi.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(schema), "[\n  {"))
}

func TestEmit_StdoutInlineStatic(t *testing.T) {
	out, err := execute(t, "emit", writeABI(t, tokenABI), "--stdout", "--mode", "inline", "--dialect", "static")
	require.NoError(t, err)
	assert.Contains(t, out, "const abi = [")
	assert.Contains(t, out, "import type { Contract } from 'ethers';")
}

func TestEmit_BadFlags(t *testing.T) {
	_, err := execute(t, "emit", writeABI(t, tokenABI), "--dialect", "elm")
	assert.Error(t, err)
	_, err = execute(t, "emit", writeABI(t, tokenABI), "--mode", "embedded")
	assert.Error(t, err)
}

func TestCall_WithoutEndpoint(t *testing.T) {
	t.Setenv("RPC_URL", "")
	_, err := execute(t, "call", writeABI(t, tokenABI), "balanceOf", "--set", "who=0x1")
	assert.ErrorIs(t, err, invoke.ErrEndpointUnavailable)
}

func TestParseSets(t *testing.T) {
	got, err := parseSets("transfer", []string{"to=0xabc", "transfer-amount=5", "memo=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"transfer-to":     "0xabc",
		"transfer-amount": "5",
		"transfer-memo":   "a=b",
	}, got)

	_, err = parseSets("transfer", []string{"amount"})
	assert.Error(t, err)
	_, err = parseSets("transfer", []string{"=5"})
	assert.Error(t, err)
}
