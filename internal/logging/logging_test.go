package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/krxvalue/internal/config"
)

func restoreGlobal(t *testing.T) {
	t.Helper()
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestSetupJSON(t *testing.T) {
	restoreGlobal(t)

	var buf bytes.Buffer
	require.NoError(t, SetupWriter(config.LoggingConfig{Level: "warn", Format: "json"}, &buf))

	log.Info().Msg("dropped")
	log.Warn().Str("ticker", "005930").Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "005930", entry["ticker"])
	assert.Equal(t, "kept", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestSetupText(t *testing.T) {
	restoreGlobal(t)

	var buf bytes.Buffer
	require.NoError(t, SetupWriter(config.LoggingConfig{Level: "debug", Format: "text"}, &buf))

	log.Debug().Str("source", "Naver Finance").Msg("statements resolved")
	out := buf.String()
	assert.Contains(t, out, "statements resolved")
	assert.Contains(t, out, "source=")
	assert.NotContains(t, out, "{")
}

func TestSetupRejectsUnknownValues(t *testing.T) {
	restoreGlobal(t)

	assert.Error(t, SetupWriter(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{}))
	assert.Error(t, SetupWriter(config.LoggingConfig{Level: "info", Format: "xml"}, &bytes.Buffer{}))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))

	f, err := os.Create(filepath.Join(t.TempDir(), "log.txt"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f), "regular files are not terminals")
}
