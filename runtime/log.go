package sruntime

import (
	"fmt"
	"io"
)

type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "info"
}

// Sink is an append-only line-oriented output channel. The interpreter
// writes the log and the listing through two injected sinks and never
// touches stdout or stderr itself.
type Sink interface {
	Write(level Level, line string)
}

// MemorySink records lines in memory; the tests read them back.
type MemorySink struct {
	Entries []SinkEntry
}

type SinkEntry struct {
	Level Level
	Line  string
}

func (s *MemorySink) Write(level Level, line string) {
	s.Entries = append(s.Entries, SinkEntry{Level: level, Line: line})
}

// Lines returns every recorded line in order.
func (s *MemorySink) Lines() []string {
	lines := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		lines[i] = e.Line
	}
	return lines
}

// WriterSink writes each line to an io.Writer, prefixing warnings and
// errors the way the SAS log does.
type WriterSink struct {
	W io.Writer
}

func (s *WriterSink) Write(level Level, line string) {
	switch level {
	case LevelWarn:
		fmt.Fprintf(s.W, "WARNING: %s\n", line)
	case LevelError:
		fmt.Fprintf(s.W, "ERROR: %s\n", line)
	default:
		fmt.Fprintln(s.W, line)
	}
}

// FuncSink adapts a function to the Sink interface; the frontends use it
// to forward lines as events.
type FuncSink func(level Level, line string)

func (f FuncSink) Write(level Level, line string) {
	f(level, line)
}

// logger wraps a sink with formatting helpers.
type logger struct {
	sink Sink
}

func (l *logger) Infof(format string, args ...interface{}) {
	l.sink.Write(LevelInfo, fmt.Sprintf(format, args...))
}

func (l *logger) Warnf(format string, args ...interface{}) {
	l.sink.Write(LevelWarn, fmt.Sprintf(format, args...))
}

func (l *logger) Errorf(format string, args ...interface{}) {
	l.sink.Write(LevelError, fmt.Sprintf(format, args...))
}
