package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
)

// LogLevel selects the minimum severity a Logger emits. It aliases
// slog.Level so the handler consumes it directly.
type LogLevel = slog.Level

const (
	DebugLevel = slog.LevelDebug
	InfoLevel  = slog.LevelInfo
	WarnLevel  = slog.LevelWarn
	ErrorLevel = slog.LevelError
)

// Logger emits structured JSON log lines. Every line carries the service
// name so millops entries stay filterable once aggregated with the other
// mill systems.
type Logger struct {
	slogger *slog.Logger
}

// NewLogger creates a JSON logger writing to output, or stdout when output
// is nil.
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	return &Logger{slogger: slog.New(handler).With("service", "millops")}
}

// WithField returns a logger that attaches the field to every line.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{slogger: l.slogger.With(key, value)}
}

// WithFields returns a logger carrying all the given fields. Keys are
// attached in sorted order so repeated lines compare cleanly.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return &Logger{slogger: l.slogger.With(args...)}
}

// WithError attaches the error message under the "error" key. A nil error
// returns the logger unchanged.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) Debug(message string) { l.slogger.Debug(message) }

func (l *Logger) Info(message string) { l.slogger.Info(message) }

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.slogger.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(message string) { l.slogger.Warn(message) }

func (l *Logger) Error(message string) { l.slogger.Error(message) }
