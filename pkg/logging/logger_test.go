package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sawirricardo/remix-realworld/pkg/config"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggingConfig
	}{
		{"json", config.LoggingConfig{Level: "INFO", Format: "json"}},
		{"text", config.LoggingConfig{Level: "DEBUG", Format: "text"}},
		{"flat", config.LoggingConfig{Level: "WARN", Format: "json", FlatJSON: true}},
		{"bad level", config.LoggingConfig{Level: "LOUD", Format: "json"}},
	}

	old := Logger
	defer func() { Logger = old }()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, InitLogger(&tt.cfg))
			assert.NotNil(t, GetLogger())
		})
	}
}

func TestFlatEncoder(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(NewFlatEncoder(FlatEncoderConfig()), zapcore.AddSync(&buf), zapcore.InfoLevel)
	logger := zap.New(core).With(zap.String("component", "social"))

	logger.Info("toggled follow",
		zap.String("follower", "alice"),
		zap.Int64("followee_id", 7),
		zap.Bool("applied", true),
		zap.Error(errors.New("boom")))

	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &obj))

	assert.Equal(t, "toggled follow", obj["message"])
	assert.Equal(t, "info", obj["level"])
	assert.Equal(t, "social", obj["component"])
	assert.Equal(t, "alice", obj["follower"])
	assert.Equal(t, float64(7), obj["followee_id"])
	assert.Equal(t, true, obj["applied"])
	assert.Equal(t, "boom", obj["error"])
	assert.Contains(t, obj, "timestamp")
}
