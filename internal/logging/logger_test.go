package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"trace":   TRACE,
		"DEBUG":   DEBUG,
		"":        INFO,
		"warning": WARN,
		"Error":   ERROR,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, "уровень %q", in)
		assert.Equal(t, want, got, "уровень %q", in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestWriterLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("world", &buf, WARN)

	l.Info("не должно попасть %d", 1)
	assert.Empty(t, buf.String(), "INFO ниже порога WARN")

	l.Warn("регион %s не построен", "(1,2)")
	assert.Contains(t, buf.String(), "регион (1,2) не построен")
	assert.Contains(t, buf.String(), "component=world")
}

func TestLoggerManagerRegister(t *testing.T) {
	lm := NewLoggerManager()
	var buf bytes.Buffer
	lm.Register(NewWriterLogger("storage", &buf, DEBUG))
	lm.Register(NewWriterLogger("api", &buf, DEBUG))

	assert.Equal(t, []string{"api", "storage"}, lm.ListComponents())

	require.NoError(t, lm.SetLogLevel("api", ERROR, ERROR))
	logger, err := lm.GetLogger("api")
	require.NoError(t, err)
	logger.Info("скрыто")
	assert.Empty(t, buf.String())

	assert.Error(t, lm.SetLogLevel("missing", INFO, INFO))
	assert.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("ничего") })
}
