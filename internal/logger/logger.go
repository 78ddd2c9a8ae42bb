package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Type alias for slog.Level for easier usage
type Level = slog.Level

const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug // -4
	LevelInfo    = slog.LevelInfo  // 0
	LevelWarning = slog.LevelWarn  // 4
	LevelError   = slog.LevelError // 8
	LevelFatal   = slog.Level(12)  // 12
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

var (
	programLevel = new(slog.LevelVar)
	Logger       = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel}))
	shutdownFunc func(context.Context) error // nil unless OTEL export is on
)

// Counters for the metrics endpoint
var (
	TotalErrors   atomic.Int64
	TotalWarnings atomic.Int64
)

// Options configures Setup
type Options struct {
	Level       string
	Format      string
	OTEL        bool
	ServiceName string
	Output      io.Writer // defaults to stderr
}

// Setup installs the process-wide logger. Records always go to Output
// (stderr by default) so that stdout carries only command output; with OTEL
// set they are exported over OTLP as well.
func Setup(ctx context.Context, opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}
	programLevel.Set(level)

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	local, err := newHandler(out, opts.Format)
	if err != nil {
		return err
	}

	handler := local
	if opts.OTEL {
		serviceName := opts.ServiceName
		if serviceName == "" {
			serviceName = "prrules"
		}

		exported, shutdown, err := newOTELHandler(ctx, serviceName)
		if err != nil {
			fmt.Fprintf(out, "OTEL log export disabled: %v\n", err)
		} else {
			shutdownFunc = shutdown
			handler = &fanoutHandler{level: programLevel, handlers: []slog.Handler{local, exported}}
		}
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
	return nil
}

func newHandler(w io.Writer, format string) (slog.Handler, error) {
	hopts := &slog.HandlerOptions{Level: programLevel}

	switch strings.ToLower(format) {
	case "", FormatText:
		return slog.NewTextHandler(w, hopts), nil
	case FormatJSON:
		return slog.NewJSONHandler(w, hopts), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s (use %s or %s)", format, FormatText, FormatJSON)
	}
}

// newOTELHandler bridges slog to an OTLP/gRPC log exporter configured from
// the OTEL_EXPORTER_OTLP_* environment. The returned func flushes and closes
// the exporter.
func newOTELHandler(ctx context.Context, serviceName string) (slog.Handler, func(context.Context) error, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	return otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(provider)), provider.Shutdown, nil
}

// fanoutHandler passes records at or above level to every handler
type fanoutHandler struct {
	level    slog.Leveler
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *fanoutHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = fn(handler)
	}
	return &fanoutHandler{level: h.level, handlers: handlers}
}

// Shutdown flushes the OTEL exporter, if any. Call it before exit.
func Shutdown(ctx context.Context) error {
	if shutdownFunc != nil {
		return shutdownFunc(ctx)
	}
	return nil
}

// SetLevel sets the minimum log level for the logger
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

// GetLevel returns the current minimum log level
func GetLevel() slog.Level {
	return programLevel.Level()
}

// ParseLevel converts a string level name to slog.Level. Empty means INFO.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// With returns a logger carrying args on every record
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}

// Trace logs a trace-level message
func Trace(msg string, args ...any) {
	Logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Debug logs a debug-level message
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an info-level message
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning and counts it
func Warn(msg string, args ...any) {
	TotalWarnings.Add(1)
	Logger.Warn(msg, args...)
}

// Error logs an error and counts it
func Error(msg string, args ...any) {
	TotalErrors.Add(1)
	Logger.Error(msg, args...)
}

// Fatal logs a fatal-level message and exits
func Fatal(msg string, args ...any) {
	Logger.Log(context.Background(), LevelFatal, msg, args...)
	if shutdownFunc != nil {
		_ = shutdownFunc(context.Background())
	}
	os.Exit(1)
}
