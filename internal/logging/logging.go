// Package logging provides the leveled, colored stderr logger used across
// the CLI. Data output (summaries, JSON) goes to stdout and is not routed
// through here.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

// Level filters which messages are emitted.
type Level int

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var levelNames = map[Level]string{
	LevelError: "ERROR",
	LevelWarn:  "WARN",
	LevelInfo:  "INFO",
	LevelDebug: "DEBUG",
	LevelTrace: "TRACE",
}

// ANSI colors per level, matching the conventional error=red, warn=yellow,
// info=green, debug=blue, trace=magenta.
var levelColors = map[Level]string{
	LevelError: "1",
	LevelWarn:  "3",
	LevelInfo:  "2",
	LevelDebug: "4",
	LevelTrace: "5",
}

// ParseLevel converts a --log-level argument into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "off":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "warn":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	}
	return LevelOff, fmt.Errorf("unknown log level %q (expected off, error, warn, info, debug, or trace)", s)
}

// Logger writes timestamped, level-tagged lines to a single writer.
type Logger struct {
	mu    sync.Mutex
	w     io.Writer
	out   *termenv.Output
	level Level
	now   func() time.Time
}

// New creates a logger writing to w. Colors follow the terminal profile of w
// and are disabled entirely when noColor is set (or NO_COLOR is present in
// the environment).
func New(w io.Writer, level Level, noColor bool) *Logger {
	profile := termenv.EnvColorProfile()
	if noColor || os.Getenv("NO_COLOR") != "" {
		profile = termenv.Ascii
	}
	return &Logger{
		w:     w,
		out:   termenv.NewOutput(w, termenv.WithProfile(profile)),
		level: level,
		now:   time.Now,
	}
}

func (l *Logger) log(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > l.level || l.level == LevelOff {
		return
	}

	tag := l.out.String(fmt.Sprintf("%-5s", levelNames[level])).
		Foreground(l.out.Color(levelColors[level])).
		Bold()

	fmt.Fprintf(l.w, "%s %s %s\n",
		l.now().Format("2006-01-02T15:04:05Z07:00"),
		tag,
		fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Tracef(format string, args ...any) { l.log(LevelTrace, format, args...) }

var (
	std   = New(os.Stderr, LevelInfo, false)
	stdMu sync.Mutex
)

// Configure replaces the package-level logger.
func Configure(w io.Writer, level Level, noColor bool) {
	stdMu.Lock()
	defer stdMu.Unlock()
	std = New(w, level, noColor)
}

func current() *Logger {
	stdMu.Lock()
	defer stdMu.Unlock()
	return std
}

// Errorf logs at error level on the package logger.
func Errorf(format string, args ...any) { current().Errorf(format, args...) }

// Warnf logs at warn level on the package logger.
func Warnf(format string, args ...any) { current().Warnf(format, args...) }

// Infof logs at info level on the package logger.
func Infof(format string, args ...any) { current().Infof(format, args...) }

// Debugf logs at debug level on the package logger.
func Debugf(format string, args ...any) { current().Debugf(format, args...) }

// Tracef logs at trace level on the package logger.
func Tracef(format string, args ...any) { current().Tracef(format, args...) }
