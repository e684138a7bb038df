package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("json format filters by level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, "warn", "json")

		logger.Info("hidden")
		logger.Warn("shown", "token", "bot123456789:AAABCdEfGhIjKlMnOpQrStUvWxYz1234567")

		output := buf.String()
		if strings.Contains(output, "hidden") {
			t.Errorf("info record should be filtered, got %q", output)
		}
		if !strings.Contains(output, `"msg":"shown"`) {
			t.Errorf("expected json record, got %q", output)
		}
		if !strings.Contains(output, "***masked-token***") {
			t.Errorf("expected masked token, got %q", output)
		}
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, "debug", "text").Debug("hello")

		if !strings.Contains(buf.String(), "msg=hello") {
			t.Errorf("expected text record, got %q", buf.String())
		}
	})
}
