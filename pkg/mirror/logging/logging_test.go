package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

// TestParseLevel verifies level parsing and the error for unknown levels.
func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    log.Level
		wantErr bool
	}{
		{"debug", log.DebugLevel, false},
		{"INFO", log.InfoLevel, false},
		{"warning", log.WarnLevel, false},
		{"error", log.ErrorLevel, false},
		{"loud", log.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestInitAndWrite verifies records land in the configured file with the
// component prefix.
func TestInitAndWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	if err := Init(Config{Level: "info", Path: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	Get("walker").Info("scan started", "root", "/data")
	Get("walker").Debug("suppressed at info level")

	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "scan started") || !strings.Contains(out, "walker") {
		t.Errorf("log file missing record: %q", out)
	}
	if strings.Contains(out, "suppressed") {
		t.Errorf("debug record written at info level: %q", out)
	}
}

// TestGetBeforeInit verifies pre-Init loggers are silent, not nil.
func TestGetBeforeInit(t *testing.T) {
	_ = Close()
	Get("quiet").Info("goes nowhere")
}
