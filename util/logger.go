// Package util holds the diagnostic logger. Everything it prints goes to
// the console's error stream, never into the device byte stream.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel is the --verbose count.
type LogLevel int

const (
	LogQuiet LogLevel = iota
	LogNormal
	LogVerbose
	LogDebug
)

// tags maps each level to its line prefix. Errors use LogQuiet so they
// survive even a quiet session.
var tags = map[LogLevel]string{
	LogQuiet:   "ERR",
	LogNormal:  "INF",
	LogVerbose: "VRB",
	LogDebug:   "DBG",
}

// Logger prints session diagnostics. While the bridge holds the console
// in raw mode, line feeds no longer return the cursor, so SetCRLF must
// be on for the duration.
type Logger struct {
	mu    sync.Mutex
	level LogLevel
	w     io.Writer
	clock bool
	eol   string
}

// NewLogger builds a logger for the given verbosity. Debug sessions get
// wall-clock stamps so device traffic can be lined up with the log.
func NewLogger(verbosity int) *Logger {
	lvl := LogLevel(verbosity)
	return &Logger{level: lvl, w: os.Stderr, clock: lvl >= LogDebug, eol: "\n"}
}

func (l *Logger) SetTimestamps(on bool) {
	l.mu.Lock()
	l.clock = on
	l.mu.Unlock()
}

// SetCRLF switches the line terminator for raw-mode consoles.
func (l *Logger) SetCRLF(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if on {
		l.eol = "\r\n"
	} else {
		l.eol = "\n"
	}
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.w = w
	l.mu.Unlock()
}

func (l *Logger) Level() LogLevel { return l.level }

func (l *Logger) Error(format string, args ...any) { l.logf(LogQuiet, "", format, args...) }

// Warn shares the Info threshold but keeps its own tag.
func (l *Logger) Warn(format string, args ...any) { l.logf(LogNormal, "WRN", format, args...) }

func (l *Logger) Info(format string, args ...any)    { l.logf(LogNormal, "", format, args...) }
func (l *Logger) Verbose(format string, args ...any) { l.logf(LogVerbose, "", format, args...) }
func (l *Logger) Debug(format string, args ...any)   { l.logf(LogDebug, "", format, args...) }

func (l *Logger) logf(at LogLevel, tag, format string, args ...any) {
	if at > l.level {
		return
	}
	if tag == "" {
		tag = tags[at]
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.clock {
		fmt.Fprintf(l.w, "%s [%s] %s%s", time.Now().Format("15:04:05.000"), tag, msg, l.eol)
		return
	}
	fmt.Fprintf(l.w, "[%s] %s%s", tag, msg, l.eol)
}
