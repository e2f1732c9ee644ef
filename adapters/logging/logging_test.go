package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		out = append(out, record)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestVerbosityFollowsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")

	logger.Info("kept", "user", "42")
	logger.V(1).Info("dropped")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0]["msg"])
	assert.Equal(t, "42", records[0]["user"])
}

func TestWatermillAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewWatermillAdapter(NewWithWriter(&buf, "debug"))

	child := adapter.With(watermill.LogFields{"topic": "gatekeeper.email"})
	child.Info("subscribed", nil)
	child.Debug("polling", watermill.LogFields{"count": 1})
	child.Error("handler failed", errors.New("boom"), nil)

	records := decodeLines(t, &buf)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, "gatekeeper.email", r["topic"])
	}
	assert.Equal(t, "polling", records[1]["msg"])
	assert.Equal(t, "boom", records[2]["err"])
}
