package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, InfoLevel).Named("adapter")
	l.Debug("hidden")
	l.Info("script finished", String("script", "telemetry.py"), Int("exit", 0))
	require.NoError(t, l.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	entry := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "script finished", entry["msg"])
	assert.Equal(t, "adapter", entry["logger"])
	assert.Equal(t, "telemetry.py", entry["script"])
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WarnLevel)
	l.Info("dropped")
	l.SetLevel(DebugLevel)
	l.Debug("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
	assert.Equal(t, DebugLevel, l.Level())
}

func TestWithFilter(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, DebugLevel).WithFilter("*:* -debug:bundle")
	require.NoError(t, err)
	l.Named("bundle").Debug("filtered")
	l.Named("api").Debug("visible")
	assert.NotContains(t, buf.String(), "filtered")
	assert.Contains(t, buf.String(), "visible")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, lvl)
	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	assert.Same(t, Default(), GetFromContext(context.Background()))
	l := New(nil, InfoLevel)
	ctx := AddToContext(context.Background(), l)
	assert.Same(t, l, GetFromContext(ctx))
}
