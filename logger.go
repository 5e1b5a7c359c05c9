package pgentity

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Field represents a structured logging field
type Field struct {
	Key   string
	Value any
}

// LogMode controls verbosity of ORM logging
type LogMode int

const (
	// LogSilent disables all logs unless a chain explicitly enables debug
	LogSilent LogMode = iota
	// LogError logs only errors
	LogError
	// LogWarn logs slow queries and errors
	LogWarn
	// LogInfo logs lifecycle events, slow queries and errors
	LogInfo
	// LogDebug logs everything at debug level
	LogDebug
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// NoopLogger is a default no-op logger
type NoopLogger struct{}

func (NoopLogger) Debug(msg string, fields ...Field) {}
func (NoopLogger) Info(msg string, fields ...Field)  {}
func (NoopLogger) Warn(msg string, fields ...Field)  {}
func (NoopLogger) Error(msg string, fields ...Field) {}

// SlogLogger adapts a *slog.Logger
type SlogLogger struct{ L *slog.Logger }

// NewSlogLogger wraps l; a nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return SlogLogger{L: l}
}

func (s SlogLogger) Debug(msg string, fields ...Field) { s.log(slog.LevelDebug, msg, fields) }
func (s SlogLogger) Info(msg string, fields ...Field)  { s.log(slog.LevelInfo, msg, fields) }
func (s SlogLogger) Warn(msg string, fields ...Field)  { s.log(slog.LevelWarn, msg, fields) }
func (s SlogLogger) Error(msg string, fields ...Field) { s.log(slog.LevelError, msg, fields) }

func (s SlogLogger) log(level slog.Level, msg string, fields []Field) {
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	s.L.LogAttrs(context.Background(), level, msg, attrs...)
}

// SetupSlogLogger builds a slog-backed Logger writing format ("json" or "text") at level.
func SetupSlogLogger(w io.Writer, format, level string) SlogLogger {
	opts := &slog.HandlerOptions{Level: parseSlogLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return SlogLogger{L: slog.New(h)}
}

func parseSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ZapLogger adapts a *zap.Logger
type ZapLogger struct{ L *zap.Logger }

func NewZapLogger(l *zap.Logger) ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return ZapLogger{L: l}
}

func (z ZapLogger) Debug(msg string, fields ...Field) { z.L.Debug(msg, zapFields(fields)...) }
func (z ZapLogger) Info(msg string, fields ...Field)  { z.L.Info(msg, zapFields(fields)...) }
func (z ZapLogger) Warn(msg string, fields ...Field)  { z.L.Warn(msg, zapFields(fields)...) }
func (z ZapLogger) Error(msg string, fields ...Field) { z.L.Error(msg, zapFields(fields)...) }

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

// inlineSQL returns a paste-ready SQL with all $n placeholders inlined as SQL literals and a trailing semicolon
func inlineSQL(query string, args []any) string {
	if len(args) == 0 {
		qs := strings.TrimSpace(query)
		if strings.HasSuffix(qs, ";") {
			return query
		}
		return query + ";"
	}
	inlined := query
	for i := len(args); i >= 1; i-- {
		ph := fmt.Sprintf("$%d", i)
		lit := sqlLiteral(args[i-1])
		inlined = strings.ReplaceAll(inlined, ph, lit)
	}
	qs := strings.TrimSpace(inlined)
	if strings.HasSuffix(qs, ";") {
		return inlined
	}
	return inlined + ";"
}

func sqlLiteral(v any) string {
	if v == nil {
		return "NULL"
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return "NULL"
	}
	switch t := v.(type) {
	case string:
		return "'" + escapeSQLString(t) + "'"
	case []byte:
		// Represent bytea as decode(hex,'hex') for easy psql paste
		return "decode('" + strings.ToUpper(hex.EncodeToString(t)) + "','hex')"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return "'" + t.Format(time.RFC3339Nano) + "'"
	case fmt.Stringer:
		return "'" + escapeSQLString(t.String()) + "'"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%v", v)
	}
	return "'" + escapeSQLString(fmt.Sprintf("%v", v)) + "'"
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
