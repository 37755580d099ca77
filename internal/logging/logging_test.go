package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matthewbaird/abiconsole/internal/config"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abiconsole.log")
	log, _, err := New(config.LogConfig{Level: "info", Format: "console", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("loaded", zap.Int("operations", 3))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "loaded", rec["msg"])
	assert.Equal(t, "info", rec["level"])
	assert.EqualValues(t, 3, rec["operations"])
}

func TestNew_LevelIsAdjustable(t *testing.T) {
	log, level, err := New(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))

	level.SetLevel(zapcore.DebugLevel)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_Rejects(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)

	_, _, err = New(config.LogConfig{Format: "xml"})
	assert.Error(t, err)
}
