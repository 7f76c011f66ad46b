package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level is the lowest severity a Logger writes.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps LOG_LEVEL values onto a Level. Unknown values mean debug.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelDebug
	}
}

const flags = log.Ldate | log.Ltime | log.Lshortfile

// Logger writes one prefixed line per call. The file:line reported is the
// caller's, not this package's.
type Logger struct {
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	error *log.Logger
}

type options struct {
	out    io.Writer
	errOut io.Writer
	level  Level
}

type Option func(*options)

// WithWriter sends every level to w.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.out = w
		o.errOut = w
	}
}

func WithLevel(level Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// New writes debug and info to stdout, warn and error to stderr.
func New(opts ...Option) *Logger {
	o := options{out: os.Stdout, errOut: os.Stderr, level: LevelDebug}
	for _, opt := range opts {
		opt(&o)
	}

	writer := func(level Level, w io.Writer) io.Writer {
		if level < o.level {
			return io.Discard
		}
		return w
	}
	return &Logger{
		debug: log.New(writer(LevelDebug, o.out), "DEBUG: ", flags),
		info:  log.New(writer(LevelInfo, o.out), "INFO: ", flags),
		warn:  log.New(writer(LevelWarn, o.errOut), "WARN: ", flags),
		error: log.New(writer(LevelError, o.errOut), "ERROR: ", flags),
	}
}

func NewWithWriter(writer io.Writer) *Logger {
	return New(WithWriter(writer))
}

func (l *Logger) Debug(v ...interface{}) {
	l.debug.Output(2, fmt.Sprintln(v...))
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.debug.Output(2, fmt.Sprintf(format, v...))
}

func (l *Logger) Info(v ...interface{}) {
	l.info.Output(2, fmt.Sprintln(v...))
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.info.Output(2, fmt.Sprintf(format, v...))
}

func (l *Logger) Warn(v ...interface{}) {
	l.warn.Output(2, fmt.Sprintln(v...))
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.warn.Output(2, fmt.Sprintf(format, v...))
}

func (l *Logger) Error(v ...interface{}) {
	l.error.Output(2, fmt.Sprintln(v...))
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.error.Output(2, fmt.Sprintf(format, v...))
}
