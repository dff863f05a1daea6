/*
logger.go - Process-wide structured logger

PURPOSE:
  One JSON slog logger for the whole process. InitLogger is called once
  from main after configuration is loaded. Until then L logs through the
  slog default handler, so packages and tests can log without setup.

USAGE:
  logger.L.Info("deal recorded", "id", tx.ID)
  logger.FromContext(r.Context()).Warn(...)   // adds the request id

SEE ALSO:
  - config/config.go: LOG_LEVEL
  - api/server.go: Request id middleware
*/
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// L is the global logger.
var L = slog.Default()

// ParseLevel maps a LOG_LEVEL string to a slog level. Unknown values are
// reported as not ok and fall back to info.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// InitLogger replaces L with a JSON logger writing to stdout.
func InitLogger(levelStr string) {
	InitLoggerTo(os.Stdout, levelStr)
}

// InitLoggerTo is InitLogger with an explicit destination.
func InitLoggerTo(w io.Writer, levelStr string) {
	level, ok := ParseLevel(levelStr)

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}

	L = slog.New(slog.NewJSONHandler(w, opts))
	slog.SetDefault(L)

	if !ok {
		L.Warn("invalid LOG_LEVEL, defaulting to info", "configured", levelStr)
	}
	L.Info("logger initialized", "level", level.String())
}

// FromContext returns L tagged with the request id carried by ctx, if any.
func FromContext(ctx context.Context) *slog.Logger {
	if id := middleware.GetReqID(ctx); id != "" {
		return L.With("request_id", id)
	}
	return L
}
