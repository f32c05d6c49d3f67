package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core).With("component", "collector")

	log.Info("Fare recorded", "partition", "icn-nrt_ke", "price", "95000")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Fare recorded", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "collector", fields["component"])
	assert.Equal(t, "icn-nrt_ke", fields["partition"])
}

func TestLevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := NewWithCore(core)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Error("shown")

	assert.Equal(t, 2, logs.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("ERROR"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestNewLoggerFormats(t *testing.T) {
	assert.NotNil(t, NewLogger("info", FormatJSON))
	assert.NotNil(t, NewLogger("debug", FormatConsole))
	assert.NoError(t, NewNopLogger().Sync())
}
