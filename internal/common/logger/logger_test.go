// internal/common/logger/logger_test.go
package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestZapWrapper_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	scoped := log.With(map[string]interface{}{"platform": "aws"})
	scoped.Info("listing instances", map[string]interface{}{"region": "us-east-1"})
	scoped.WithError(errors.New("boom")).Error("operation failed", nil)
	log.Warn("degraded", map[string]interface{}{"cause": errors.New("bad json")})

	entries := logs.All()
	if assert.Len(t, entries, 3) {
		first := entries[0].ContextMap()
		assert.Equal(t, "aws", first["platform"])
		assert.Equal(t, "us-east-1", first["region"])

		second := entries[1].ContextMap()
		assert.Equal(t, "boom", second["error"])
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)

		third := entries[2].ContextMap()
		assert.Equal(t, "bad json", third["cause"])
	}
}

func TestNew_Formats(t *testing.T) {
	assert.NotNil(t, New("info", "json"))
	assert.NotNil(t, New("debug", "console"))
	assert.NotNil(t, NewStructured("warn", "json"))
	NewNoOpLogger().Info("discarded", map[string]interface{}{"k": "v"})
	NewTestLogger(t).Debug("visible in -v", nil)
}
