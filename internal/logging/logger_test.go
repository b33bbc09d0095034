package logging

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"DEBUG", zapcore.Level(-2), false},
		{"trace", zapcore.Level(-3), false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New("debug", true)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !logger.V(DEBUG).Enabled() {
		t.Error("V(DEBUG) should be enabled at debug level")
	}
	if logger.V(TRACE).Enabled() {
		t.Error("V(TRACE) should be disabled at debug level")
	}

	if err := SetLevel("info"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if logger.V(VERBOSE).Enabled() {
		t.Error("V(VERBOSE) should be disabled after SetLevel(info)")
	}

	if _, err := New("nope", false); err == nil {
		t.Error("New() with unknown level should fail")
	}
}

func TestNewTestLoggerIntoContext(t *testing.T) {
	ctx := NewTestLoggerIntoContext(context.Background())
	if _, err := logr.FromContext(ctx); err != nil {
		t.Errorf("logger missing from context: %v", err)
	}
}
