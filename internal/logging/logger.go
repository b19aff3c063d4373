package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Logger provides prefixed key-value logging for the gateway
type Logger struct {
	logger  *log.Logger
	verbose bool
}

// NewLogger creates a new logger with a component prefix.
// Debug output is suppressed unless LOG_LEVEL=debug.
func NewLogger(prefix string) *Logger {
	return &Logger{
		logger:  log.New(os.Stdout, fmt.Sprintf("[%s] ", prefix), log.LstdFlags),
		verbose: strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug"),
	}
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV("INFO", msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV("WARN", msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV("ERROR", msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	if !l.verbose {
		return
	}
	l.logWithKV("DEBUG", msg, keysAndValues...)
}

func (l *Logger) logWithKV(level, msg string, keysAndValues ...interface{}) {
	var sb strings.Builder
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fmt.Fprintf(&sb, " %v=%v", keysAndValues[i], keysAndValues[i+1])
		}
	}
	l.logger.Printf("[%s] %s%s", level, msg, sb.String())
}
