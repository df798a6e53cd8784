// Package logging builds the JSON slog.Logger every rasterkit entry point
// uses, generalizing the teacher's main.go createLogger/InterceptorLogger
// pair (appName-tagged JSON handler, source location only below INFO) to a
// caller-supplied app name instead of the teacher's hardcoded
// "elevation-service".
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
)

// New builds a JSON slog.Logger at level (case-insensitive DEBUG/INFO/WARN/
// ERROR, defaulting to INFO), tagged with "app": appName, matching the
// teacher's createLogger.
func New(level, appName string) *slog.Logger {
	programLevel := parseLevel(level)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     programLevel,
		AddSource: programLevel <= slog.LevelDebug,
	}).WithAttrs([]slog.Attr{slog.String("app", appName)})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InterceptorLogger adapts l to the go-grpc-middleware logging.Logger
// interface, unchanged from the teacher's InterceptorLogger.
func InterceptorLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}
