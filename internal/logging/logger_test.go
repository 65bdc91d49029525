package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notifer/internal/config"
	"notifer/internal/logging"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	var buf bytes.Buffer

	logger, closeLog, err := logging.NewFromConfig(&cfg, &buf)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	defer closeLog()
	logger.Debug("hidden at info")
	logger.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden at info") {
		t.Fatalf("expected debug record to be filtered, got %q", out)
	}
	if !strings.Contains(out, "INFO visible") {
		t.Fatalf("expected info record, got %q", out)
	}
}

func TestConsoleHandlerRendersComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	component := logging.NewComponentLogger(logger, "dispatch")
	component.Info("notification sent",
		slog.String(logging.FieldTopic, "ci builds"),
		slog.Group("response", slog.String("id", "abc")),
	)

	line := buf.String()
	if !strings.Contains(line, "[dispatch] notification sent") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, `topic="ci builds"`) {
		t.Fatalf("expected quoted topic, got %q", line)
	}
	if !strings.Contains(line, "response.id=abc") {
		t.Fatalf("expected grouped key, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source location at info level, got %q", line)
	}
}

func TestConsoleHandlerIncludesSourceForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("with source")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected source location in debug output, got %q", buf.String())
	}
}

func TestJSONHandlerUsesShortKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.ErrorWithContext(logger, "send failed", "transport_error", "", logging.Error(errors.New("boom")))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record["level"] != "error" {
		t.Fatalf("expected lower-case level, got %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
	if record[logging.FieldEventType] != "transport_error" {
		t.Fatalf("expected event_type, got %v", record)
	}
	if record[logging.FieldErrorHint] != "check logs for details" {
		t.Fatalf("expected default hint, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected noop logger to be disabled")
	}
}

func TestNewFromConfigTeesToFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "warn"
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "notifer.log")
	var console bytes.Buffer

	logger, closeLog, err := logging.NewFromConfig(&cfg, &console)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	component := logging.NewComponentLogger(logger, "transport")
	component.Info("filtered everywhere")
	component.Warn("notification rejected", slog.Int("status", 503))
	if err := closeLog(); err != nil {
		t.Fatalf("close log file: %v", err)
	}

	if !strings.Contains(console.String(), "WARN [transport] notification rejected") {
		t.Fatalf("expected console record, got %q", console.String())
	}
	data, err := os.ReadFile(cfg.Logging.File)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one json record in file, got %q", data)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode file record: %v", err)
	}
	if record["component"] != "transport" || record["status"] != float64(503) {
		t.Fatalf("unexpected file record: %v", record)
	}
}

func TestTeeSkipsNilAndDisabledHandlers(t *testing.T) {
	if _, ok := logging.Tee().(logging.NoopHandler); !ok {
		t.Fatal("expected empty tee to be a noop handler")
	}

	var infoBuf, errBuf bytes.Buffer
	info := slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	if logging.Tee(nil, info) != info {
		t.Fatal("expected single handler to be returned unchanged")
	}
	errOnly := slog.NewTextHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError})

	logger := slog.New(logging.Tee(info, nil, errOnly)).With("invocation_id", "abc")
	logger.Info("sent")
	logger.Error("failed")

	if strings.Count(infoBuf.String(), "invocation_id=abc") != 2 {
		t.Fatalf("expected both records with attrs in info handler, got %q", infoBuf.String())
	}
	if strings.Contains(errBuf.String(), "sent") || !strings.Contains(errBuf.String(), "failed") {
		t.Fatalf("expected only the error record in error handler, got %q", errBuf.String())
	}
}
