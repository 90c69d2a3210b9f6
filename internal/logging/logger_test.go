package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestGetLogger_DefaultsToNoop(t *testing.T) {
	logger := GetLogger("test")
	if logger == nil {
		t.Fatal("GetLogger returned nil")
	}
	// The package-level default is a NoopLogger until SetDefaultLogger is
	// called; WithField must still return something usable.
	logger.Info("should not panic")
}

func TestSlogLogger_EmitsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	SetDefaultLogger(NewSlogLogger(handler, slog.LevelDebug))
	defer SetDefaultLogger(GetNoopLogger())

	logger := GetLogger("test_component")
	logger.Info("test message", "key1", "value1", "key2", 123)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parsing log line: %v", err)
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["component"] != "test_component" {
		t.Errorf("component = %v, want %q", entry["component"], "test_component")
	}
	if entry["key1"] != "value1" {
		t.Errorf("key1 = %v, want %q", entry["key1"], "value1")
	}
	if int(entry["key2"].(float64)) != 123 {
		t.Errorf("key2 = %v, want 123", entry["key2"])
	}
}

func TestSlogLogger_WithFieldAccumulates(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := NewSlogLogger(handler, slog.LevelInfo).WithField("a", 1).WithField("b", 2)

	logger.Info("msg")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parsing log line: %v", err)
	}
	if entry["a"] != float64(1) || entry["b"] != float64(2) {
		t.Errorf("expected both accumulated fields, got %v", entry)
	}
}

func TestNoopLogger_DoesNothing(t *testing.T) {
	logger := GetNoopLogger()
	logger.Debug("x")
	logger.Info("x")
	logger.Warn("x")
	logger.Error("x")
	if logger.WithContext(context.Background()) != logger {
		t.Error("WithContext should return the same NoopLogger instance")
	}
	if logger.WithField("k", "v") != logger {
		t.Error("WithField should return the same NoopLogger instance")
	}
}
