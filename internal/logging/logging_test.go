package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"":        "info",
		"DEBUG":   "debug",
		"warning": "warn",
		"error":   "error",
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got.String() != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew_WritesFileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docbot.log")
	var console bytes.Buffer

	logger, err := New(Options{Level: "info", File: path, Console: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Named("agent").Info("ingested", zap.Int("chunks", 3))
	logger.Debug("hidden")
	_ = logger.Sync()

	if !strings.Contains(console.String(), "ingested") {
		t.Errorf("console output missing message: %q", console.String())
	}
	if strings.Contains(console.String(), "hidden") {
		t.Error("debug message should be filtered at info level")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, data)
	}
	if entry["message"] != "ingested" || entry["logger"] != "agent" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry["chunks"] != float64(3) {
		t.Errorf("chunks field: got %v", entry["chunks"])
	}
}

func TestNew_NoFile(t *testing.T) {
	var console bytes.Buffer
	logger, err := New(Options{Level: "debug", Console: &console, JSONConsole: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("visible")
	_ = logger.Sync()
	if !strings.Contains(console.String(), `"message":"visible"`) {
		t.Errorf("expected JSON console output, got %q", console.String())
	}
}
