package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"householdrisk/internal/config"
)

type contextKey string

// TraceIDContextKey stores the correlation id that every log line of a
// request or analysis run carries.
const TraceIDContextKey contextKey = "trace_id"

// loggerState is the process-wide logger and the log file it may own.
var loggerState struct {
	once   sync.Once
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

var logLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// InitializeLogger builds the server logger once and installs it as the slog
// default. Subsequent calls return the first logger and ignore cfg.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	loggerState.once.Do(func() {
		var logger *slog.Logger
		logger, err = NewLogger(cfg)
		if err != nil {
			return
		}
		loggerState.logger = logger
		slog.SetDefault(logger)
	})
	return loggerState.logger, err
}

// GetLogger returns the initialized logger, or slog.Default() before
// InitializeLogger has run.
func GetLogger() *slog.Logger {
	if loggerState.logger != nil {
		return loggerState.logger
	}
	return slog.Default()
}

// NewLogger builds a standalone logger. The CLI uses it directly so each
// invocation can pick its own level.
func NewLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	w, err := logWriter(cfg)
	if err != nil {
		return nil, err
	}
	return slog.New(newHandler(w, cfg)), nil
}

func newHandler(w io.Writer, cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource: cfg.Development,
		Level:     parseLogLevel(cfg.Level),
	}
	if strings.EqualFold(cfg.Format, "text") {
		return correlationHandler{slog.NewTextHandler(w, opts)}
	}
	return correlationHandler{slog.NewJSONHandler(w, opts)}
}

func parseLogLevel(level string) slog.Level {
	if l, ok := logLevels[strings.ToLower(level)]; ok {
		return l
	}
	return slog.LevelInfo
}

func logWriter(cfg config.LoggingConfig) (io.Writer, error) {
	output := strings.ToLower(cfg.Output)
	if output != "file" && output != "both" {
		return os.Stdout, nil
	}

	file, err := openLogFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if output == "both" {
		return io.MultiWriter(os.Stdout, file), nil
	}
	return file, nil
}

// correlationHandler stamps records with the context's trace_id and, while
// a span is recording, its span_id.
type correlationHandler struct {
	slog.Handler
}

func (h correlationHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(slog.String("span_id", sc.SpanID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h correlationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return correlationHandler{h.Handler.WithAttrs(attrs)}
}

func (h correlationHandler) WithGroup(name string) slog.Handler {
	return correlationHandler{h.Handler.WithGroup(name)}
}

// WithTraceID returns ctx carrying traceID for log correlation
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID returns the correlation id in ctx, or ""
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(TraceIDContextKey).(string)
	return id
}

// CloseLogFile closes the log file opened for file output, if any
func CloseLogFile() error {
	loggerState.mu.Lock()
	defer loggerState.mu.Unlock()

	if loggerState.file == nil {
		return nil
	}
	err := loggerState.file.Close()
	loggerState.file = nil
	return err
}

// ResetLoggerForTesting forgets the initialized logger
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	loggerState.logger = nil
	loggerState.once = sync.Once{}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	loggerState.mu.Lock()
	defer loggerState.mu.Unlock()
	if loggerState.file != nil {
		_ = loggerState.file.Close()
	}
	loggerState.file = file
	return file, nil
}
