package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")
	require.NotNil(t, log)

	log.Info().Msg("test message")
	assert.Contains(t, buf.String(), "test message")
}

func TestSubAndWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug").Sub("entity").With("conversation", "c1")

	log.Info().Msg("appended")
	output := buf.String()
	assert.Contains(t, output, `"subsystem":"entity"`)
	assert.Contains(t, output, `"conversation":"c1"`)
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")

	log.Debug().Msg("debug msg")
	log.Info().Msg("info msg")
	assert.Empty(t, buf.String(), "debug and info should be filtered at warn level")

	log.Warn().Msg("warn msg")
	assert.Contains(t, buf.String(), "warn msg")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"silent", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"INFO", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("silent"))
	assert.False(t, ValidLevel("verbose"))
}

func TestOpenWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "thecafe.log")
	log, closer, err := Open(Options{Level: "info", Style: "json", File: path})
	require.NoError(t, err)

	log.Info().Str("k", "v").Msg("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestOpenWithoutFile(t *testing.T) {
	log, closer, err := Open(Options{Level: "silent"})
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.NoError(t, closer.Close())
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error().Msg("dropped")
	assert.Equal(t, zerolog.Disabled, log.Zerolog().GetLevel())
}
