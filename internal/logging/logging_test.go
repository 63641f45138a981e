package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	require.Equal(t, zerolog.InfoLevel, parseLevel("info"))
	require.Equal(t, zerolog.ErrorLevel, parseLevel(" error "))
	require.Equal(t, zerolog.Disabled, parseLevel("off"))
	require.Equal(t, zerolog.WarnLevel, parseLevel(""))
	require.Equal(t, zerolog.WarnLevel, parseLevel("nonsense"))
}

func TestInitWriterJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	var buf bytes.Buffer
	logger := InitWriter(Config{Format: "json", Level: "info", Component: "terrain"}, &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Str("env", "qa").Msg("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "visible", entry["message"])
	require.Equal(t, "terrain", entry["component"])
	require.Equal(t, "qa", entry["env"])
}

func TestSelectWriterAutoNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.Same(t, &buf, selectWriter("auto", &buf))
	_, ok := selectWriter("console", &buf).(zerolog.ConsoleWriter)
	require.True(t, ok)
}
