package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/sitewatch/internal/infrastructure/config"
)

// capture builds a logger writing to a temp file, runs fn against it,
// and returns what was written. Going through a real file exercises the
// same path production uses for file output.
func capture(t *testing.T, cfg config.LoggingConfig, fn func(*Logger)) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.log")
	cfg.Output = path

	fn(New(cfg, "test"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	return string(data)
}

func TestNew_JSONRecord(t *testing.T) {
	out := capture(t, config.LoggingConfig{Level: "info", Format: "json"}, func(l *Logger) {
		l.Info("check complete", "site", "my-blog")
	})

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(out), &entry); err != nil {
		t.Fatalf("output is not a JSON record: %v\n%s", err, out)
	}

	want := map[string]string{
		"msg":     "check complete",
		"site":    "my-blog",
		"service": "sitewatch",
		"version": "test",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Errorf("record[%q] = %v, want %q", key, entry[key], value)
		}
	}
}

func TestNew_TextRecord(t *testing.T) {
	out := capture(t, config.LoggingConfig{Level: "info", Format: "text"}, func(l *Logger) {
		l.Info("check complete", "site", "my-blog")
	})

	for _, want := range []string{"check complete", "site=my-blog", "service=sitewatch"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	out := capture(t, config.LoggingConfig{Level: "warn", Format: "json"}, func(l *Logger) {
		l.Info("below threshold")
		l.Warn("at threshold")
	})

	if strings.Contains(out, "below threshold") {
		t.Error("info record survived a warn-level logger")
	}
	if !strings.Contains(out, "at threshold") {
		t.Error("warn record missing from a warn-level logger")
	}
}

func TestNew_FileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appended.log")
	cfg := config.LoggingConfig{Level: "info", Format: "json", Output: path}

	New(cfg, "test").Info("first run")
	New(cfg, "test").Info("second run")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	for _, want := range []string{"first run", "second run"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q after reopen", want)
		}
	}
}

func TestNew_UnopenableFileFallsBack(t *testing.T) {
	// Parent directory does not exist, so the open fails. The logger
	// must still come up (on stderr) rather than panic.
	path := filepath.Join(t.TempDir(), "missing", "nested", "out.log")

	log := New(config.LoggingConfig{Level: "info", Format: "json", Output: path}, "test")
	if log == nil {
		t.Fatal("New() returned nil on unopenable output")
	}
	log.Info("still alive")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestWith_ChildCarriesAttrs(t *testing.T) {
	out := capture(t, config.LoggingConfig{Level: "info", Format: "json"}, func(l *Logger) {
		l.With("component", "mqtt").Info("connected")
	})

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(out), &entry); err != nil {
		t.Fatalf("output is not a JSON record: %v", err)
	}
	if entry["component"] != "mqtt" {
		t.Errorf("record[component] = %v, want %q", entry["component"], "mqtt")
	}
	if entry["service"] != "sitewatch" {
		t.Error("child logger lost the service attribute")
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}
}
