package utils

import (
	"log"
	"os"
)

// ANSI color codes per level.
const (
	colorGreen  = "32"
	colorYellow = "33"
	colorRed    = "31"
	colorCyan   = "36"
)

// Logger provides leveled, colorized logging for ingestion runs and the
// API process. Errors go to stderr, everything else to stdout.
type Logger struct {
	out *log.Logger
	err *log.Logger
}

// NewLogger creates a Logger with timestamped output.
func NewLogger() *Logger {
	return &Logger{
		out: log.New(os.Stdout, "", log.LstdFlags),
		err: log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *Logger) print(dst *log.Logger, color, level, format string, args ...any) {
	prefixed := append([]any{color, level}, args...)
	dst.Printf("\033[%sm%-5s\033[0m "+format, prefixed...)
}

func (l *Logger) Info(format string, args ...any) {
	l.print(l.out, colorGreen, "INFO", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.print(l.out, colorYellow, "WARN", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.print(l.err, colorRed, "ERROR", format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.print(l.out, colorCyan, "DEBUG", format, args...)
}
