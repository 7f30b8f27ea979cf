package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer

	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)
	logger.Info("analysis started", "competition", "titanic")

	if !strings.Contains(stderr.String(), "analysis started") {
		t.Errorf("stderr output missing message: %q", stderr.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v", err)
	}
	if entry["msg"] != "analysis started" || entry["competition"] != "titanic" {
		t.Errorf("unexpected file entry: %v", entry)
	}
}

func TestSetupLoggerWithWriters_LevelFiltering(t *testing.T) {
	var stderr, file bytes.Buffer

	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)
	logger.Info("should be dropped")
	logger.Warn("should appear")

	if strings.Contains(stderr.String(), "should be dropped") {
		t.Error("info record leaked past warn level")
	}
	if !strings.Contains(stderr.String(), "should appear") {
		t.Error("warn record missing")
	}
}
