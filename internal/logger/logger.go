// Package logger provides the engine's structured logger: a thin layer
// over log/slog with the severity vocabulary spec.md's ambient stack
// calls for (TRACE/DEBUG/INFO/WARNING/ERROR/OFF) and a choice of JSON or
// plain-text output, mirroring gcsfuse's internal/logger package.
//
// It never receives plaintext file contents or passphrases: callers pass
// paths, block indices and counters, never key material.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Severity is the engine's logging level vocabulary.
type Severity string

const (
	SeverityTrace   Severity = "TRACE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
	SeverityOff     Severity = "OFF"
)

// traceLevel sits below slog.LevelDebug so TRACE messages can be
// distinguished from DEBUG ones without a second logger.
const traceLevel = slog.Level(-8)

func (s Severity) level() slog.Level {
	switch s {
	case SeverityTrace:
		return traceLevel
	case SeverityDebug:
		return slog.LevelDebug
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	case SeverityOff:
		return slog.Level(1 << 20)
	default:
		return slog.LevelInfo
	}
}

// Format selects the on-disk/stdout shape of log lines.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type factory struct{}

var defaultLoggerFactory = factory{}

var (
	defaultLogger *slog.Logger
	programLevel  = new(slog.LevelVar)
)

func init() {
	defaultLogger = slog.New(defaultLoggerFactory.createJSONOrTextHandler(os.Stderr, programLevel, FormatText, ""))
}

// Init installs a new default logger at the given severity, format and
// message prefix. Passing SeverityOff effectively silences the logger.
func Init(severity Severity, format Format, prefix string) {
	programLevel.Set(severity.level())
	defaultLogger = slog.New(defaultLoggerFactory.createJSONOrTextHandler(os.Stderr, programLevel, format, prefix))
}

// createJSONOrTextHandler returns a handler rendering "time=... severity=LEVEL
// message=..." for text, or a {"timestamp":..., "severity":..., "message":...}
// object for JSON — the shape gcsfuse's logger tests assert against.
func (factory) createJSONOrTextHandler(w io.Writer, level slog.Leveler, format Format, prefix string) slog.Handler {
	return &severityHandler{w: w, level: level, json: format == FormatJSON, prefix: prefix}
}

// severityHandler is a minimal slog.Handler: one line per record, no
// attribute grouping, because the engine never logs structured payloads
// beyond a handful of scalar fields.
type severityHandler struct {
	w      io.Writer
	level  slog.Leveler
	json   bool
	prefix string
}

func (h *severityHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *severityHandler) Handle(_ context.Context, r slog.Record) error {
	severity := levelSeverity(r.Level)
	msg := h.prefix + r.Message
	if h.json {
		_, err := fmt.Fprintf(h.w, "{\"timestamp\":{\"seconds\":%d,\"nanos\":%d},\"severity\":%q,\"message\":%q}\n",
			r.Time.Unix(), r.Time.Nanosecond(), severity, msg)
		return err
	}
	_, err := fmt.Fprintf(h.w, "time=%q severity=%s message=%q\n", r.Time.Format(time.RFC3339Nano), severity, msg)
	return err
}

func (h *severityHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *severityHandler) WithGroup(_ string) slog.Handler      { return h }

func levelSeverity(l slog.Level) Severity {
	switch {
	case l < slog.LevelDebug:
		return SeverityTrace
	case l < slog.LevelInfo:
		return SeverityDebug
	case l < slog.LevelWarn:
		return SeverityInfo
	case l < slog.LevelError:
		return SeverityWarning
	default:
		return SeverityError
	}
}

func Tracef(format string, args ...any) { defaultLogger.Log(context.Background(), traceLevel, fmt.Sprintf(format, args...)) }
func Debugf(format string, args ...any) { defaultLogger.Debug(fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)  { defaultLogger.Info(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { defaultLogger.Warn(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { defaultLogger.Error(fmt.Sprintf(format, args...)) }
