package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", SessionID(ctx))
	assert.Equal(t, "", EntryID(ctx))

	ctx = WithEntryID(WithSessionID(ctx, "s-1"), "e-1")
	assert.Equal(t, "s-1", SessionID(ctx))
	assert.Equal(t, "e-1", EntryID(ctx))
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelDebug, FormatText)

	ctx := WithSessionID(context.Background(), "s-42")
	logger.InfoContext(ctx, "evaluated", "error", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "session_id=s-42")
	assert.Contains(t, out, "err=boom")
	assert.NotContains(t, out, "entry_id")
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, FormatJSON).With("component", "test")

	logger.Debug("hidden")
	logger.InfoContext(WithEntryID(context.Background(), "e-9"), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"entry_id":"e-9"`)
	assert.Contains(t, buf.String(), `"component":"test"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}
