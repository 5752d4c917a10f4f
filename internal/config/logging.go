package config

import (
	"io"
	"log/slog"

	"git.home.luguber.info/inful/docweave/internal/foundation/normalization"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var (
	logLevels = normalization.NewNormalizer(map[string]slog.Level{
		string(LogLevelDebug): slog.LevelDebug,
		string(LogLevelInfo):  slog.LevelInfo,
		string(LogLevelWarn):  slog.LevelWarn,
		"warning":             slog.LevelWarn,
		string(LogLevelError): slog.LevelError,
	}, slog.LevelInfo)

	logFormats = normalization.NewNormalizer(map[string]LogFormat{
		string(LogFormatText): LogFormatText,
		string(LogFormatJSON): LogFormatJSON,
	}, LogFormatText)
)

// ParseLogLevel maps a case-insensitive level name to its slog level.
func ParseLogLevel(raw string) (slog.Level, error) {
	level, ok := logLevels.Lookup(raw)
	if !ok {
		return level, invalid("logging.level", raw, "must be one of "+logLevels.Describe())
	}
	return level, nil
}

// ParseLogFormat normalizes a log format name.
func ParseLogFormat(raw string) (LogFormat, error) {
	format, ok := logFormats.Lookup(raw)
	if !ok {
		return format, invalid("logging.format", raw, "must be "+logFormats.Describe())
	}
	return format, nil
}

// NewLogger builds the slog logger described by l, writing to w. Invalid
// settings fall back to info level text output.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := ParseLogLevel(string(l.Level))
	format, _ := ParseLogFormat(string(l.Format))

	opts := &slog.HandlerOptions{Level: level}
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
