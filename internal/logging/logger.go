package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures the process logger. Development mode writes human readable
// console output with caller information; otherwise JSON lines are written.
func Init(level string, isDevelopment bool) error {
	return InitWithWriter(os.Stdout, level, isDevelopment)
}

func InitWithWriter(w io.Writer, level string, isDevelopment bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339

	if isDevelopment {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
			Level(lvl).
			With().
			Timestamp().
			Caller().
			Logger()
	} else {
		logger = zerolog.New(w).
			Level(lvl).
			With().
			Timestamp().
			Logger()
	}
	return nil
}

func Logger() *zerolog.Logger {
	return &logger
}

func WithContext(ctx context.Context) zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}

	return logger.With().
		Str("traceId", span.SpanContext().TraceID().String()).
		Str("spanId", span.SpanContext().SpanID().String()).
		Logger()
}

func Info(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Info()
}

func Error(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Error()
}

func Debug(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Debug()
}

func Warn(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Warn()
}
