package atmosphere

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	// With returns a logger whose lines are tagged with name after the
	// prefix of the receiver. It shares the receiver's debug switch.
	With(name string) Logger
}

type DefaultLogger struct {
	debug  *atomic.Bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

// NewDefaultLogger logs info and debug lines to stdout, warnings and errors
// to stderr.
func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewWriterLogger(prefix, debug, os.Stdout, os.Stderr)
}

// NewWriterLogger is NewDefaultLogger with explicit destinations.
func NewWriterLogger(prefix string, debug bool, out, errOut io.Writer) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	l := &DefaultLogger{
		debug:  new(atomic.Bool),
		prefix: prefix,
		out:    log.New(out, "", flags),
		err:    log.New(errOut, "", flags),
	}
	l.debug.Store(debug)
	return l
}

func (l *DefaultLogger) DebugEnabled() bool    { return l.debug.Load() }
func (l *DefaultLogger) SetDebug(enabled bool) { l.debug.Store(enabled) }

func (l *DefaultLogger) With(name string) Logger {
	child := *l
	if child.prefix != "" {
		child.prefix += "/" + name
	} else {
		child.prefix = name
	}
	return &child
}

func (l *DefaultLogger) line(level, format string, args []any) string {
	msg := fmt.Sprintf(format, args...)
	if l.prefix == "" {
		return level + ": " + msg
	}
	return "[" + l.prefix + "] " + level + ": " + msg
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if l.DebugEnabled() {
		l.out.Print(l.line("DEBUG", format, args))
	}
}

func (l *DefaultLogger) Infof(format string, args ...any) { l.out.Print(l.line("INFO", format, args)) }
func (l *DefaultLogger) Warnf(format string, args ...any) { l.err.Print(l.line("WARN", format, args)) }
func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.line("ERROR", format, args))
}

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
func (n nopLogger) With(string) Logger  { return n }
