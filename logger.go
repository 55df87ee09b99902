// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"
)

// MaxLogValueLength truncates longer log values
const MaxLogValueLength = 1024

// Logger receives structured client logs as key/value pairs.
//
// The path and JSON functions of this package never log; only the Client
// does. Wrap any structured logger to plug it in:
//
//	type slogAdapter struct{ l *slog.Logger }
//
//	func (s slogAdapter) Debug(ctx context.Context, msg string, kv ...any) {
//	    s.l.DebugContext(ctx, msg, kv...)
//	}
//	// Info, Warn and Error likewise
//
//	client, _ := gnmi.NewClient("192.168.1.1:57400",
//	    gnmi.WithLogger(slogAdapter{slog.Default()}))
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
}

// LogLevel is the minimum severity a DefaultLogger writes
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError

	// LogLevelNone disables all logging
	LogLevelNone
)

var logLevelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "NONE"}

func (l LogLevel) String() string {
	if l >= 0 && int(l) < len(logLevelNames) {
		return logLevelNames[l]
	}
	return fmt.Sprintf("UNKNOWN(%d)", l)
}

// DefaultLogger writes "[LEVEL] message key=value ..." lines through the
// standard log package. Keys and values are sanitized.
type DefaultLogger struct {
	level LogLevel
}

// NewDefaultLogger creates a DefaultLogger writing level and above
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return &DefaultLogger{level: level}
}

func (l *DefaultLogger) Debug(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelDebug, msg, keysAndValues)
}

func (l *DefaultLogger) Info(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelInfo, msg, keysAndValues)
}

func (l *DefaultLogger) Warn(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelWarn, msg, keysAndValues)
}

func (l *DefaultLogger) Error(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelError, msg, keysAndValues)
}

// log writes one line; msg comes from this package and is not sanitized
func (l *DefaultLogger) log(level LogLevel, msg string, keysAndValues []any) {
	if level < l.level {
		return
	}

	var b strings.Builder
	b.Grow(len(msg) + 10 + len(keysAndValues)*25)
	b.WriteString("[")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)
	for i := 0; i < len(keysAndValues); i += 2 {
		b.WriteString(" ")
		b.WriteString(sanitizeLogValue(keysAndValues[i]))
		b.WriteString("=")
		if i+1 < len(keysAndValues) {
			b.WriteString(sanitizeLogValue(keysAndValues[i+1]))
		} else {
			b.WriteString("<MISSING>")
		}
	}
	log.Println(b.String())
}

// sanitizeLogValue formats val for a single log line: long values are
// truncated, line breaks and tabs become spaces, other control characters
// and invalid UTF-8 become dots, zero-width characters are dropped and the
// right-to-left override becomes a space.
func sanitizeLogValue(val any) string {
	str := fmt.Sprintf("%v", val)
	if len(str) > MaxLogValueLength {
		str = str[:MaxLogValueLength] + "...[TRUNCATED]"
	}

	var b strings.Builder
	b.Grow(len(str))
	for i := 0; i < len(str); {
		r, size := utf8.DecodeRuneInString(str[i:])
		if r == utf8.RuneError && size <= 1 {
			b.WriteByte('.')
			i++
			continue
		}
		switch {
		case r == '\n' || r == '\r' || r == '\t' || r == '\f' || r == 0x202E:
			b.WriteByte(' ')
		case r == 0x200B || r == 0x200C || r == 0x200D || r == 0xFEFF:
		case r < 32 || r == 127:
			b.WriteByte('.')
		default:
			b.WriteString(str[i : i+size])
		}
		i += size
	}
	return b.String()
}

// NoOpLogger discards everything. It is the client default.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(_ context.Context, _ string, _ ...any) {}
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...any)  {}
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...any)  {}
func (n *NoOpLogger) Error(_ context.Context, _ string, _ ...any) {}
