// SPDX-License-Identifier: MIT
/*
Package log is a small leveled logger on top of the standard library logger.

The level is global and stored atomically, so it can be changed at runtime
from the CLI or the config file. Components obtain a named Logger with New;
its messages are prefixed with the component name:

	[INFO]  engine: stream started (48000 Hz, 512 frames)

Nothing in this package is safe to call from an audio callback: formatting
allocates and the underlying writer may block.
*/
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
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
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

var currentLevel atomic.Uint32

var std = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects all loggers to w.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetFlags sets the standard logger flags, e.g. 0 for undecorated output.
func SetFlags(flags int) {
	std.SetFlags(flags)
}

func enabled(level LogLevel) bool {
	return level >= GetLevel()
}

// Logger tags messages with a component name.
type Logger struct {
	prefix string
}

// New returns a logger for component. An empty component produces
// untagged messages.
func New(component string) *Logger {
	if component == "" {
		return &Logger{}
	}
	return &Logger{prefix: component + ": "}
}

// With returns a logger for a sub-component, e.g. "backend/portaudio".
func (l *Logger) With(sub string) *Logger {
	if l.prefix == "" {
		return New(sub)
	}
	return &Logger{prefix: strings.TrimSuffix(l.prefix, ": ") + "/" + sub + ": "}
}

func (l *Logger) output(level LogLevel, msg string) {
	// Pad the shorter level names so messages line up.
	pad := ""
	if len(level.String()) == 4 {
		pad = " "
	}
	std.Printf("[%s]%s %s%s", level, pad, l.prefix, msg)
}

func (l *Logger) Debugf(format string, v ...any) {
	if enabled(LevelDebug) {
		l.output(LevelDebug, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Infof(format string, v ...any) {
	if enabled(LevelInfo) {
		l.output(LevelInfo, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Warnf(format string, v ...any) {
	if enabled(LevelWarn) {
		l.output(LevelWarn, fmt.Sprintf(format, v...))
	}
}

func (l *Logger) Errorf(format string, v ...any) {
	if enabled(LevelError) {
		l.output(LevelError, fmt.Sprintf(format, v...))
	}
}

// Fatalf logs and exits the process regardless of the current level.
func (l *Logger) Fatalf(format string, v ...any) {
	l.output(LevelFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}

var root = New("")

// Package-level helpers log without a component tag.

func Debugf(format string, v ...any) { root.Debugf(format, v...) }
func Infof(format string, v ...any)  { root.Infof(format, v...) }
func Warnf(format string, v ...any)  { root.Warnf(format, v...) }
func Errorf(format string, v ...any) { root.Errorf(format, v...) }
func Fatalf(format string, v ...any) { root.Fatalf(format, v...) }

func Debug(v ...any) { root.Debugf("%s", fmt.Sprint(v...)) }
func Info(v ...any)  { root.Infof("%s", fmt.Sprint(v...)) }
func Warn(v ...any)  { root.Warnf("%s", fmt.Sprint(v...)) }
func Error(v ...any) { root.Errorf("%s", fmt.Sprint(v...)) }
