package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "json")

	roleLog := Component(log, "role_service")
	roleLog.Info().Int("role_id", 3).Msg("role created")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, ServiceName, line["service"])
	assert.Equal(t, "role_service", line["component"])
	assert.Equal(t, "role created", line["message"])
	assert.EqualValues(t, 3, line["role_id"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	_ = New(&buf, "verbose", "json")

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
