package xlog

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logLevel string

const (
	LogLevelDebug logLevel = "DEBUG"
	LogLevelInfo  logLevel = "INFO"
	LogLevelWarn  logLevel = "WARN"
	LogLevelError logLevel = "ERROR"
)

func (lvl logLevel) String() string {
	return string(lvl)
}

// parseLevel accepts the level names in any case, unknown or
// empty names fall back to DEBUG.
func parseLevel(name string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl < zapcore.DebugLevel || lvl > zapcore.ErrorLevel {
		return zapcore.DebugLevel
	}
	return lvl
}

type logEncoderType uint8

const (
	JSON logEncoderType = iota
	PlainText
	_encMax
)

// ContextKeyMapToOmitempty as the mapped name drops the context field.
const ContextKeyMapToOmitempty = "_"

// XLogger is the structured logger of the containers, backed by zap.
//
// Errors carrying an infra.ErrorStack are inlined as the "error" and
// "errorStack" keys. With binds the context fields registered by
// WithXLoggerContextFieldExtract.
type XLogger interface {
	zap() *zap.Logger

	SetLevel(lvl zapcore.Level)
	Level() zapcore.Level
	Sync() error

	Named(name string) XLogger
	With(ctx context.Context) XLogger

	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(err error, msg string, fields ...zap.Field)
}

// Zap returns the underlying zap logger, which the containers
// accept as their logger option.
func Zap(l XLogger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.zap()
}
