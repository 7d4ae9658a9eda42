package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewEncoderConfigFieldKeys(t *testing.T) {
	config := NewEncoderConfig()

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"TimeKey", config.TimeKey, FieldTimestamp},
		{"LevelKey", config.LevelKey, FieldLevel},
		{"NameKey", config.NameKey, FieldSource},
		{"CallerKey", config.CallerKey, FieldCaller},
		{"MessageKey", config.MessageKey, FieldMessage},
		{"StacktraceKey", config.StacktraceKey, FieldStacktrace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}

	if config.EncodeLevel == nil || config.EncodeTime == nil {
		t.Error("Expected level and time encoders to be set")
	}
}

func TestNewConsoleEncoderConfig(t *testing.T) {
	config := NewConsoleEncoderConfig()

	if config.MessageKey != FieldMessage {
		t.Errorf("MessageKey = %q, want %q", config.MessageKey, FieldMessage)
	}
	if config.EncodeLevel == nil {
		t.Error("Expected console level encoder to be set")
	}

	// Console timestamps use the compact 15:04:05.000 format
	enc := zapcore.NewConsoleEncoder(config)
	if enc == nil {
		t.Fatal("Console encoder construction failed")
	}
}
