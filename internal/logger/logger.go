package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Logger      *slog.Logger
	handlerOpts = &slog.HandlerOptions{Level: slog.LevelInfo}
	mu          sync.Mutex
	logWriter   io.Writer
)

func InitWithWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logWriter = w
	Logger = slog.New(slog.NewTextHandler(logWriter, handlerOpts))
}

// Init writes logs to a rotating file at path.
func Init(path string, maxSizeMB int) {
	InitWithWriter(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   false,
	})
}

// Close flushes and closes the rotating file, if one is in use.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if c, ok := logWriter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func SetLevel(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	handlerOpts.Level = level
	if Logger != nil && logWriter != nil {
		Logger = slog.New(slog.NewTextHandler(logWriter, handlerOpts))
	}
}

func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}

// Current returns the active logger, or nil before Init.
func Current() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return Logger
}

func Debug(msg string, detail any) {
	Current().Debug(msg, "detail", detail)
}

func Info(msg string, detail any) {
	Current().Info(msg, "detail", detail)
}

func Warn(msg string, detail any) {
	Current().Warn(msg, "detail", detail)
}

func Error(msg string, detail any) {
	Current().Error(msg, "detail", detail)
}
