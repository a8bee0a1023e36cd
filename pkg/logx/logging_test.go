package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(b), &m))
	return m
}

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug").With(String("comp", "dispatch"))
	l.Info("poll sent", String("method", "buttons"), Int("options", 2), Err(nil))

	m := decodeLine(t, buf.Bytes())
	assert.Equal(t, "info", m["level"])
	assert.Equal(t, "poll sent", m["message"])
	assert.Equal(t, "dispatch", m["comp"])
	assert.Equal(t, "buttons", m["method"])
	assert.Equal(t, float64(2), m["options"])
	assert.NotContains(t, m, "err", "nil errors add no field")
	assert.NotContains(t, m, "error", "nil errors add no field")
	assert.Contains(t, m["caller"], "logging_test.go")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown", Err(errors.New("boom")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"boom"`)
	assert.Equal(t, "shown", decodeLine(t, []byte(lines[0]))["message"])
}

func TestLogf(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf, "trace").With(String("module", "Client")).Logf(LevelTrace, "got %d frames", 3)
	m := decodeLine(t, buf.Bytes())
	assert.Equal(t, "got 3 frames", m["message"])
	assert.Equal(t, "Client", m["module"])
}

func TestZeroAndNop(t *testing.T) {
	var zero Logger
	assert.True(t, zero.IsZero())
	assert.False(t, Nop().IsZero())
	zero.Info("must not panic")
}

func TestServiceWritesFileAndApplies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "wabroker.log")
	svc, l := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	defer svc.Close()

	l.Debug("dropped")
	l.Info("kept")
	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	l.Debug("now kept")
	require.NoError(t, svc.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"message":"kept"`)
	assert.Contains(t, out, `"message":"now kept"`)
}
