package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/jwebster45206/story-grid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_ProductionUsesJSON(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	log := setup(&config.Config{Environment: "production", LogLevel: slog.LevelInfo}, &buf)
	WithRespondent(WithError(log, errors.New("boom")), "r-1").Info("saved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "saved", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "r-1", entry["respondent_id"])
}

func TestSetup_DevelopmentUsesTextAndLevel(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	log := setup(&config.Config{Environment: "development", LogLevel: slog.LevelWarn}, &buf)
	log.Info("hidden")
	WithRequestID(log, "req-9").Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "request_id=req-9")
}
