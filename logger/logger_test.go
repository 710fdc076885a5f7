package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestStdLogger(t *testing.T) {
	t.Run("TextFormat", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := New(buf, LogLevelInfo, LogFormatText)
		l.Info("hello %s", "world")

		output := buf.String()
		if !strings.Contains(output, "INFO") || !strings.Contains(output, "hello world") {
			t.Errorf("Unexpected text output: %s", output)
		}
	})

	t.Run("JSONFormat", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := New(buf, LogLevelInfo, LogFormatJSON)
		l.Warn("disk at %d%%", 90)

		var data map[string]any
		if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
			t.Fatalf("Failed to unmarshal JSON output: %v", err)
		}
		if data["level"] != "WARN" || data["msg"] != "disk at 90%" {
			t.Errorf("Unexpected JSON output: %v", data)
		}
		if _, ok := data["time"]; !ok {
			t.Errorf("Missing time field in JSON output")
		}
	})

	t.Run("WithFields", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := New(buf, LogLevelInfo, LogFormatJSON)
		l.WithFields(map[string]any{"resource": "tasks"}).Info("listed")

		var data map[string]any
		if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
			t.Fatalf("Failed to unmarshal JSON output: %v", err)
		}
		if data["resource"] != "tasks" || data["msg"] != "listed" {
			t.Errorf("Unexpected JSON output with fields: %v", data)
		}
	})

	t.Run("LevelFiltering", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := New(buf, LogLevelWarn, LogFormatText)
		l.Info("hidden")
		l.Debug("hidden")
		l.SQL("SELECT 1", time.Millisecond)
		if buf.Len() != 0 {
			t.Errorf("Expected no output below warn level, got %q", buf.String())
		}

		l.Error("shown")
		if !strings.Contains(buf.String(), "shown") {
			t.Errorf("Expected error to be logged, got %q", buf.String())
		}
	})

	t.Run("SQLJSON", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := New(buf, LogLevelDebug, LogFormatJSON)
		l.SQL("SELECT * FROM tasks", 10*time.Millisecond, "arg1", 1)

		var data map[string]any
		if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
			t.Fatalf("Failed to unmarshal JSON output: %v", err)
		}
		if data["level"] != "SQL" || data["sql"] != "SELECT * FROM tasks" {
			t.Errorf("Unexpected SQL JSON output: %v", data)
		}
		if data["duration"] != "10ms" {
			t.Errorf("Expected duration 10ms, got %v", data["duration"])
		}
	})
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("DEBUG")
	if err != nil || l != LogLevelDebug {
		t.Errorf("ParseLevel(DEBUG) = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestContextFields(t *testing.T) {
	ctx := ContextWithFields(context.Background(), map[string]any{"request_id": "r1"})
	ctx = ContextWithFields(ctx, map[string]any{"user": "ann"})

	fields := FieldsFrom(ctx)
	if fields["request_id"] != "r1" || fields["user"] != "ann" {
		t.Errorf("unexpected fields %v", fields)
	}
	if FieldsFrom(context.Background()) != nil {
		t.Error("expected no fields on a bare context")
	}
}
