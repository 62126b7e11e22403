// Package logger настраивает общий slog-логгер процесса.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log — глобальный логгер, инициализируется через Init/InitWithConfig
var Log *slog.Logger

// Config описывает уровень, формат и место вывода
type Config struct {
	Level      string
	Format     string // json или text
	Output     string // stdout, stderr или file
	FilePath   string
	MaxSize    int // МБ до ротации
	MaxBackups int
	MaxAge     int // дней хранения
	Compress   bool
}

// Init настраивает JSON-логгер в stdout с заданным уровнем
func Init(level string) {
	InitWithConfig(Config{
		Level:  level,
		Format: "json",
		Output: "stdout",
	})
}

// InitWithConfig настраивает логгер по полной конфигурации
func InitWithConfig(cfg Config) {
	lvl := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level: lvl,
		// Позиция в коде нужна только при отладке
		AddSource: lvl == slog.LevelDebug,
	}

	w := outputWriter(cfg)

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	Log = slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
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

// outputWriter выбирает приёмник логов. Файловый вывод идёт через
// lumberjack с ротацией; если директорию создать не удалось,
// откатываемся на stdout.
func outputWriter(cfg Config) io.Writer {
	switch cfg.Output {
	case "stderr":
		return os.Stderr
	case "file":
		path := cfg.FilePath
		if path == "" {
			path = "logs/waterflowd.log"
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return os.Stdout
		}
		return &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	default:
		return os.Stdout
	}
}

// WithContext возвращает логгер с дополнительными атрибутами
func WithContext(ctx context.Context, args ...any) *slog.Logger {
	return Log.With(args...)
}

// WithRequestID привязывает request ID
func WithRequestID(requestID string) *slog.Logger {
	return Log.With("request_id", requestID)
}

// WithComponent привязывает имя компонента
func WithComponent(component string) *slog.Logger {
	return Log.With("component", component)
}

// WithRun привязывает идентификатор и алгоритм прогона
func WithRun(runID, algorithm string) *slog.Logger {
	return Log.With("run_id", runID, "algorithm", algorithm)
}

func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}

// Fatal пишет сообщение уровня error и завершает процесс
func Fatal(msg string, args ...any) {
	Log.Error(msg, args...)
	os.Exit(1)
}

func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}
