package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_TextFormat(t *testing.T) {
	logger := New("info", "text")
	if logger == nil {
		t.Fatal("New() returned nil")
	}
}

func TestNew_LogLevels(t *testing.T) {
	levels := []string{"debug", "info", "warn", "error", "invalid"}
	for _, level := range levels {
		if logger := New(level, "text"); logger == nil {
			t.Errorf("New(%s, text) returned nil", level)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := ParseLevel(tt.input)
		if got != tt.expected {
			t.Errorf("ParseLevel(%s) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")

	logger.Info("staged", "file", "a.bin")

	out := buf.String()
	if !strings.HasPrefix(out, "{") {
		t.Errorf("expected JSON output, got %q", out)
	}
	if !strings.Contains(out, `"file":"a.bin"`) {
		t.Errorf("expected file attribute in %q", out)
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn", "text")

	logger.Info("should not appear")
	if strings.Contains(buf.String(), "should not appear") {
		t.Error("Info message should be filtered at warn level")
	}

	logger.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Error("Warn message should appear at warn level")
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("dropped")
}
