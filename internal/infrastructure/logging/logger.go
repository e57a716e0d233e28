package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/sitewatch/internal/infrastructure/config"
)

// Logger is the service-wide structured logging handle. It embeds
// slog.Logger, so the full slog API is available; every record also
// carries the service and version attributes attached by New.
//
// Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// levelNames maps accepted config values onto slog levels. Unknown
// values fall back to info.
var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// New builds a Logger from the logging section of config.yaml.
//
// Format selects JSON (the default) or text records. Output selects the
// destination: "stdout", "stderr", or anything else is treated as a file
// path and opened append-only. A file that cannot be opened drops the
// logger back to stderr, and the first record says so.
func New(cfg config.LoggingConfig, version string) *Logger {
	out, outErr := openOutput(cfg.Output)

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "sitewatch"),
		slog.String("version", version),
	})

	log := &Logger{Logger: slog.New(handler)}
	if outErr != nil {
		log.Warn("logging to stderr instead of configured output", "error", outErr)
	}
	return log
}

// openOutput maps the configured output name onto a writer. File
// destinations stay open for the life of the process. On open failure
// the writer is stderr and the error explains why, so New can report
// the fallback through the logger itself.
func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stderr, fmt.Errorf("opening log file %s: %w", output, err)
	}
	return f, nil
}

// parseLevel resolves a config level name, case-insensitively.
func parseLevel(level string) slog.Level {
	if l, ok := levelNames[strings.ToLower(level)]; ok {
		return l
	}
	return slog.LevelInfo
}

// With returns a child logger carrying extra default attributes.
//
//	dbLog := log.With("component", "database")
//	dbLog.Info("connected") // record includes component=database
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns the bootstrap logger used before configuration is
// loaded: JSON to stdout at info level, version "dev".
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
