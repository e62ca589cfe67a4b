package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Defaults(t *testing.T) {
	log, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	log, err := NewLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestLogger_FieldsAndNaming(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core)

	log.Named("pipeline").With(String("run_id", "abc")).Info("run started",
		Int("rows", 12),
		Float64("score", 87.5),
		Bool("full", true),
	)

	entries := observed.All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "run started", e.Message)
	assert.Equal(t, "pipeline", e.LoggerName)

	fields := e.ContextMap()
	assert.Equal(t, "abc", fields["run_id"])
	assert.EqualValues(t, 12, fields["rows"])
	assert.Equal(t, 87.5, fields["score"])
	assert.Equal(t, true, fields["full"])
}

func TestErrField(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)

	f = Err(assert.AnError)
	assert.Equal(t, assert.AnError.Error(), f.Value)
}

func TestNopLoggerAndDefault(t *testing.T) {
	nop := NewNopLogger()
	// Must not panic, and chaining returns a usable logger.
	nop.With(String("k", "v")).Named("x").Info("ignored")

	prev := Default()
	defer SetDefault(prev)

	SetDefault(nop)
	assert.Equal(t, nop, Default())

	// SetDefault(nil) keeps the current default.
	SetDefault(nil)
	assert.Equal(t, nop, Default())
}
