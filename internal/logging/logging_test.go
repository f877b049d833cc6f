package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewFormats(t *testing.T) {
	var jsonBuf bytes.Buffer
	New(Config{Level: "info", Writer: &jsonBuf}).Info("listening", "addr", "127.0.0.1:3000")

	var record map[string]any
	if err := json.Unmarshal(jsonBuf.Bytes(), &record); err != nil {
		t.Fatalf("default format should be JSON: %v", err)
	}
	if record["addr"] != "127.0.0.1:3000" {
		t.Fatalf("addr = %v", record["addr"])
	}

	var textBuf bytes.Buffer
	New(Config{Format: "text", Writer: &textBuf}).Info("listening", "addr", "127.0.0.1:3000")
	if !strings.Contains(textBuf.String(), "addr=127.0.0.1:3000") {
		t.Fatalf("text output = %q", textBuf.String())
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Writer: &buf})
	logger.Info("hidden")
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
