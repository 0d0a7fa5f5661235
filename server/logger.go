package server

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"customerserver/server/middleware"
)

var (
	// Logger глобальный структурированный логгер
	Logger = NewLogger(os.Stdout, "INFO")
)

// NewLogger создает JSON-логгер с уровнем level (DEBUG, INFO, WARN, ERROR)
func NewLogger(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// InitLogger заменяет глобальный логгер и slog.Default()
func InitLogger(level string) {
	Logger = NewLogger(os.Stdout, level)
	slog.SetDefault(Logger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogError логирует ошибку с request ID из контекста
func LogError(ctx context.Context, err error, msg string, attrs ...any) {
	attrs = append(attrs, "error", err, "request_id", middleware.GetRequestID(ctx))
	Logger.ErrorContext(ctx, msg, attrs...)
}

// LogInfo логирует сообщение с request ID из контекста
func LogInfo(ctx context.Context, msg string, attrs ...any) {
	attrs = append(attrs, "request_id", middleware.GetRequestID(ctx))
	Logger.InfoContext(ctx, msg, attrs...)
}
