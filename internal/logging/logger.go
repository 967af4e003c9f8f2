// Package logging provides the leveled, structured logger shared by the
// transport and command layers. Output is either human-readable text or
// one JSON object per line.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

// Level represents a logging severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = map[Level]string{
	Debug: "DEBUG",
	Info:  "INFO",
	Warn:  "WARN",
	Error: "ERROR",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseLevel converts a string to a Level. An empty string means Info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "info", "":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	default:
		return Info, fmt.Errorf("unsupported log level %q", s)
	}
}

// Format controls how entries are rendered.
type Format int

const (
	Text Format = iota
	JSON
)

// ParseFormat converts a string to a Format. An empty string means Text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return Text, nil
	case "json":
		return JSON, nil
	default:
		return Text, fmt.Errorf("unsupported log format %q", s)
	}
}

// Field is one structured key/value pair attached to an entry.
type Field struct {
	Key   string
	Value any
}

// Logger defines leveled structured logging operations.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

var defaultLogger Logger

// Default returns the process-wide logger, discarding output until
// SetDefault installs a real one.
func Default() Logger {
	if defaultLogger == nil {
		defaultLogger = New(Info, Text, io.Discard)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// New constructs a Logger writing to out.
func New(level Level, format Format, out io.Writer) Logger {
	return &logger{
		level:  level,
		format: format,
		out:    log.New(out, "", log.LstdFlags),
	}
}

type logger struct {
	level  Level
	format Format
	bound  []Field
	out    *log.Logger
}

func (l *logger) With(fields ...Field) Logger {
	bound := make([]Field, 0, len(l.bound)+len(fields))
	bound = append(bound, l.bound...)
	bound = append(bound, fields...)
	return &logger{level: l.level, format: l.format, bound: bound, out: l.out}
}

func (l *logger) Debug(msg string, fields ...Field) { l.emit(Debug, msg, fields) }
func (l *logger) Info(msg string, fields ...Field)  { l.emit(Info, msg, fields) }
func (l *logger) Warn(msg string, fields ...Field)  { l.emit(Warn, msg, fields) }
func (l *logger) Error(msg string, fields ...Field) { l.emit(Error, msg, fields) }

func (l *logger) emit(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}
	all := make([]Field, 0, len(l.bound)+len(fields))
	all = append(all, l.bound...)
	all = append(all, fields...)

	if l.format == JSON {
		payload := map[string]any{
			"time":  time.Now().Format(time.RFC3339Nano),
			"level": level.String(),
			"msg":   msg,
		}
		for _, f := range all {
			if f.Key != "" {
				payload[f.Key] = f.Value
			}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			l.out.Printf("[ERROR] marshal log payload failed: %v", err)
			return
		}
		l.out.Print(string(data))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level.String(), msg)
	for _, f := range all {
		if f.Key == "" {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	l.out.Print(b.String())
}
