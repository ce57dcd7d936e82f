package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSlogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, getSlogLevel(tt.input), tt.input)
	}
}

func TestParseLogrusLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogrusLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLogrusLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, ParseLogrusLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLogrusLevel("anything"))
}

func TestStandardLogger_ContextMethods(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	logger := &StandardLogger{logger: &fallbackLogger{logger: base}}

	logger.WithRecordID("cust-1").Info("scored")
	logger.WithJobID("job-1").Info("batch")
	logger.WithError(errors.New("boom")).Error("failed")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "cust-1", first["record_id"])

	var third map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[2], &third))
	assert.Equal(t, "boom", third["error"])
}

func TestStandardLogger_EventMethods(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	logger := &StandardLogger{logger: &fallbackLogger{logger: base}}

	logger.LogPredictionScored("cust-1", 0.82, "high", 3)
	logger.LogBatchJob("job-1", 100, 98, 2, 450)
	logger.LogAPIRequest("POST", "/api/v1/predictions", 200, 5)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)

	var prediction map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &prediction))
	assert.Equal(t, "prediction", prediction["event"])
	assert.Equal(t, 0.82, prediction["probability"])
	assert.Equal(t, "high", prediction["risk_level"])

	var batch map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &batch))
	assert.Equal(t, "batch", batch["event"])
	assert.Equal(t, float64(98), batch["succeeded"])
}

func TestNewOTLPLogger_DisabledFallsBackToStdout(t *testing.T) {
	logger, err := NewOTLPLogger(OTLPConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, logger.Logger())
	assert.NoError(t, logger.Shutdown(t.Context()))
}
