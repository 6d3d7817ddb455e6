package ctrl

import (
	"fmt"
	"log"
	"strings"
)

// Logger is the structured logging interface used by the controller.
// Implementations can bridge to any logging backend; the library ships
// a stdlib-backed StdLogger and defaults to a no-op.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a key-value pair attached to a log message.
type Field struct {
	Key   string
	Value any
}

// F creates a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// StdLogger logs through the standard library log package.
type StdLogger struct{}

// NewStdLogger creates a StdLogger.
func NewStdLogger() *StdLogger {
	return &StdLogger{}
}

func (l *StdLogger) Debug(msg string, fields ...Field) { l.log("DEBUG", msg, fields...) }
func (l *StdLogger) Info(msg string, fields ...Field)  { l.log("INFO", msg, fields...) }
func (l *StdLogger) Warn(msg string, fields ...Field)  { l.log("WARN", msg, fields...) }
func (l *StdLogger) Error(msg string, fields ...Field) { l.log("ERROR", msg, fields...) }

func (l *StdLogger) log(level, msg string, fields ...Field) {
	if len(fields) == 0 {
		log.Printf("[%s] %s", level, msg)
		return
	}

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", f.Key, f.Value)
	}
	log.Printf("[%s] %s %s", level, msg, b.String())
}

// nopLogger discards everything. It is the default when no logger is
// injected.
type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
