package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	vinoerrors "github.com/YuminosukeSato/vinoscore/pkg/errors"
)

// Options configures the zerolog backend.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is "console" for human-readable output or "json".
	Format string
	// File, when set, additionally writes JSON logs to a rotated file.
	File string
	// Output overrides stderr. Used by tests.
	Output io.Writer
}

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

// New builds a logger from Options.
func New(opts Options) (*ZerologLogger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stderr
	if opts.Output != nil {
		out = opts.Output
	}
	switch opts.Format {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case "json":
	default:
		return nil, fmt.Errorf("invalid log format: %q", opts.Format)
	}

	if opts.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, rotated)
	}

	zl := zerolog.New(out).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}, nil
}

func toZerologLevel(l Level) zerolog.Level {
	switch {
	case l <= LevelDebug:
		return zerolog.DebugLevel
	case l <= LevelInfo:
		return zerolog.InfoLevel
	case l <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) { emit(l.zl.Debug(), msg, fields) }

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) { emit(l.zl.Info(), msg, fields) }

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) { emit(l.zl.Warn(), msg, fields) }

// Error implements Logger.Error.
func (l *ZerologLogger) Error(msg string, fields ...any) { emit(l.zl.Error(), msg, fields) }

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			ctx = ctx.AnErr(key, err)
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

// Zerolog exposes the underlying logger.
func (l *ZerologLogger) Zerolog() zerolog.Logger {
	return l.zl
}

func emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			addError(e, err)
			fields = fields[1:]
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			e.AnErr(key, v)
		case zerolog.LogObjectMarshaler:
			e.Object(key, v)
		default:
			e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

func addError(e *zerolog.Event, err error) {
	e.AnErr(ErrorKey, err)
	var detail zerolog.LogObjectMarshaler
	if errors.As(err, &detail) {
		e.Object("error.detail", detail)
	}
	if st := extractStacktrace(err); st != "" {
		e.Str(StacktraceKey, st)
	}
}

// extractStacktrace pulls the first safe detail recorded by cockroachdb/errors,
// which holds the stack captured by WithStack.
func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewZerologLogger(zerolog.Nop())
)

// GetLogger returns the process-wide logger. It discards output until
// SetLogger is called.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetLogger installs l as the process-wide logger and routes
// pkg/errors warnings through it.
func SetLogger(l Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()

	vinoerrors.SetWarningHandler(func(w error) {
		l.Warn(w.Error(), "warning", w)
	})
}
