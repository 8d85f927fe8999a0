package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to INFO for unknown
	}
}

// ParseLevel converts a level name (case-insensitive) into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Format selects the slog handler used for output.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures a Logger.
type Options struct {
	Level  LogLevel
	Format Format
	// Output defaults to os.Stderr so stdout stays free for command output
	// and the MCP stdio transport.
	Output io.Writer
}

// Logger is a subsystem-scoped structured logger. It is passed explicitly to
// every component that emits events; the zero value is not usable, use New
// or Discard.
type Logger struct {
	slog      *slog.Logger
	subsystem string
}

// New creates a root logger. The returned logger has no subsystem; derive
// scoped loggers with With.
func New(opts Options) *Logger {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level.SlogLevel()}

	var handler slog.Handler
	if opts.Format == FormatJSON {
		handler = slog.NewJSONHandler(output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(output, handlerOpts)
	}
	return &Logger{slog: slog.New(handler)}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return New(Options{Level: LevelError, Output: io.Discard})
}

// InitControllerRuntime routes controller-runtime and client-go logging
// through the given logger so they do not complain about an unset logger.
func InitControllerRuntime(l *Logger) {
	if l == nil || l.slog == nil {
		return
	}
	ctrl.SetLogger(logr.FromSlogHandler(l.slog.Handler()))
}

// With returns a logger tagged with the given subsystem.
func (l *Logger) With(subsystem string) *Logger {
	return &Logger{slog: l.slog, subsystem: subsystem}
}

// Subsystem returns the subsystem this logger is scoped to.
func (l *Logger) Subsystem() string {
	return l.subsystem
}

// Enabled reports whether messages at level would be emitted.
func (l *Logger) Enabled(level LogLevel) bool {
	return l.slog.Enabled(context.Background(), level.SlogLevel())
}

func (l *Logger) log(level LogLevel, err error, attrs []slog.Attr, messageFmt string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	slogAttrs := make([]slog.Attr, 0, len(attrs)+2)
	if l.subsystem != "" {
		slogAttrs = append(slogAttrs, slog.String("subsystem", l.subsystem))
	}
	slogAttrs = append(slogAttrs, attrs...)
	if err != nil {
		slogAttrs = append(slogAttrs, slog.String("error", err.Error()))
	}

	l.slog.LogAttrs(context.Background(), level.SlogLevel(), msg, slogAttrs...)
}

// Debug logs a debug message.
func (l *Logger) Debug(messageFmt string, args ...interface{}) {
	l.log(LevelDebug, nil, nil, messageFmt, args...)
}

// Info logs an informational message.
func (l *Logger) Info(messageFmt string, args ...interface{}) {
	l.log(LevelInfo, nil, nil, messageFmt, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(messageFmt string, args ...interface{}) {
	l.log(LevelWarn, nil, nil, messageFmt, args...)
}

// Error logs an error message.
func (l *Logger) Error(err error, messageFmt string, args ...interface{}) {
	l.log(LevelError, err, nil, messageFmt, args...)
}

// StepFailed emits the single structured line reported when a workflow step
// fails: the step id and the error as separate attributes.
func (l *Logger) StepFailed(workflow, stepID string, err error) {
	l.log(LevelError, err, []slog.Attr{
		slog.String("workflow", workflow),
		slog.String("step", stepID),
	}, "Step %s failed", stepID)
}
