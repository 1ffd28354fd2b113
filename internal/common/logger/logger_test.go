package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservedLogger_RecordsFields(t *testing.T) {
	log, logs := NewObservedLogger("debug")

	scoped := ForTurn(log, "sess-1", "req-1", 3)
	scoped.Info("turn processed", map[string]interface{}{"intent": "DataSummary"})
	scoped.WithError(errors.New("boom")).Error("turn failed", nil)
	log.Debug("debug line", nil)

	entries := logs.All()
	require.Len(t, entries, 3)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "turn processed", entries[0].Message)
	assert.Equal(t, "sess-1", ctx["sessionId"])
	assert.Equal(t, "req-1", ctx["requestId"])
	assert.EqualValues(t, 3, ctx["turn"])
	assert.Equal(t, "DataSummary", ctx["intent"])

	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestObservedLogger_LevelFilter(t *testing.T) {
	log, logs := NewObservedLogger("warn")

	log.Info("hidden", nil)
	log.Warn("shown", nil)

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestNew_FallsBackToInfo(t *testing.T) {
	l := New("unknown", "json")
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(-1))
	assert.True(t, l.Core().Enabled(0))
}
