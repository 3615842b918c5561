package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connections-exporter/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestLoggerWritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "run.log")

	var console bytes.Buffer
	logger, err := newLogger(config.ObservabilityConfig{
		LogPath:       logPath,
		LogLevel:      "info",
		LogMaxSizeMB:  1,
		LogMaxBackups: 1,
		LogMaxAgeDays: 1,
	}, &console)
	require.NoError(t, err)

	logger.With("session", "abc").Info("page extracted", "page", 2)
	logger.Debug("hidden")
	require.NoError(t, logger.Close())

	assert.Contains(t, console.String(), "page extracted")
	assert.NotContains(t, console.String(), "hidden")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "page extracted", entry["msg"])
	assert.Equal(t, "abc", entry["session"])
	assert.Equal(t, float64(2), entry["page"])
}

func TestLogByLevelName(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf)

	logger.Log("warn", "retrying pagination", "attempt", 2)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "attempt=2")
}
