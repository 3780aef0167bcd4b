package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

func TestFromSettings(t *testing.T) {
	assert.True(t, FromSettings("info", "Text").Pretty)
	assert.True(t, FromSettings("info", "console").Pretty)
	assert.False(t, FromSettings("info", "json").Pretty)
}

func TestComponentLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { Configure(Config{Level: "info", Pretty: true}) })

	hubLogger := Component("hub")
	hubLogger.Info().Int64("userID", 7).Msg("joined")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hub", line["component"])
	assert.Equal(t, "joined", line["message"])
	assert.EqualValues(t, 7, line["userID"])
}
