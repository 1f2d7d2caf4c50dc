package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	logger.WithField("rank", 2).Info("shard started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "shard started", entry["message"])
	assert.Equal(t, float64(2), entry["rank"])
	assert.Contains(t, entry, "timestamp")
	assert.Contains(t, entry, "caller")
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithFormat(DebugLevel, TextFormat, &buf)

	logger.WithFields(map[string]interface{}{
		"rank":  1,
		"batch": 4,
	}).Info("batch completed")

	line := buf.String()
	assert.Contains(t, line, "[INFO]")
	assert.Contains(t, line, "batch completed")
	// Fields are sorted for stable output.
	assert.Less(t, strings.Index(line, "batch=4"), strings.Index(line, "rank=1"))
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WarnLevel, &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("visible")
	assert.Positive(t, buf.Len())
}

func TestZapAdapterFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(DebugLevel, &buf))

	zl.Info("fields",
		zap.String("name", "grid"),
		zap.Int("rank", 3),
		zap.Float64("best_value", 0.25),
		zap.Bool("resume", true),
		zap.Duration("elapsed", 1500*time.Millisecond),
		zap.Error(errors.New("boom")))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fields", entry["message"])
	assert.Equal(t, "grid", entry["name"])
	assert.Equal(t, float64(3), entry["rank"])
	assert.Equal(t, 0.25, entry["best_value"])
	assert.Equal(t, true, entry["resume"])
	assert.Equal(t, "1.5s", entry["elapsed"])
	assert.Equal(t, "boom", entry["error"])
}

func TestZapAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(InfoLevel, &buf))

	zl.Debug("hidden")
	assert.Zero(t, buf.Len())

	zl.Info("visible")
	assert.Positive(t, buf.Len())
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, TextFormat, parseFormat("text"))
	assert.Equal(t, TextFormat, parseFormat("TEXT"))
	assert.Equal(t, JSONFormat, parseFormat("json"))
	assert.Equal(t, JSONFormat, parseFormat(""))
	assert.Equal(t, JSONFormat, parseFormat("console"))
}
