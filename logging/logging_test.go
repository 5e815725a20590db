package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger("verbose", ""); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "proxy.log")

	logger, err := NewLogger("info", file)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("written to file")
	logger.Debug("below level")
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("Expected log file to contain the info entry, got %q", data)
	}
	if strings.Contains(string(data), "below level") {
		t.Errorf("Expected debug entry to be filtered, got %q", data)
	}
}
