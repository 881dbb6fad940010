package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// secretKeys are attribute names whose values never reach the log output.
var secretKeys = map[string]struct{}{
	"credential": {},
	"api_key":    {},
	"apikey":     {},
	"key":        {},
}

func New(logLeveL string, json bool) *slog.Logger {
	return NewWithWriter(os.Stdout, logLeveL, json)
}

func NewWithWriter(w io.Writer, logLevel string, json bool) *slog.Logger {
	level := parseLevel(logLevel)
	opts := &slog.HandlerOptions{Level: level, AddSource: true, ReplaceAttr: redact}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}

func parseLevel(s string) slog.Level {
	s = strings.ToLower(s)
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
