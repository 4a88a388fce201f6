package xlog

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xcontainer/lib/infra"
	"github.com/benz9527/xcontainer/lib/tree"
)

type xLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
	// Context key to field name, read only once built.
	ctxFields tree.Map[string, string]
}

func (l *xLogger) zap() *zap.Logger {
	return l.logger
}

// SetLevel changes the level of the logger and all its children
// concurrently.
func (l *xLogger) SetLevel(lvl zapcore.Level) {
	l.level.SetLevel(lvl)
}

func (l *xLogger) Level() zapcore.Level {
	return l.level.Level()
}

func (l *xLogger) Sync() error {
	return l.logger.Sync()
}

func (l *xLogger) Named(name string) XLogger {
	child := *l
	child.logger = l.logger.Named(name)
	return &child
}

func (l *xLogger) With(ctx context.Context) XLogger {
	fields := extractFieldsFromContext(ctx, l.ctxFields)
	if len(fields) == 0 {
		return l
	}
	child := *l
	child.logger = l.logger.With(fields...)
	return &child
}

func (l *xLogger) Debug(msg string, fields ...zap.Field) {
	l.logger.Debug(msg, fields...)
}

func (l *xLogger) Info(msg string, fields ...zap.Field) {
	l.logger.Info(msg, fields...)
}

func (l *xLogger) Warn(msg string, fields ...zap.Field) {
	l.logger.Warn(msg, fields...)
}

func (l *xLogger) Error(err error, msg string, fields ...zap.Field) {
	if ce := l.logger.Check(zapcore.ErrorLevel, msg); ce != nil {
		ce.Write(append(errorFields(err), fields...)...)
	}
}

func errorFields(err error) []zap.Field {
	if err == nil {
		return nil
	}
	if es, ok := err.(infra.ErrorStack); ok {
		return []zap.Field{zap.Inline(es)}
	}
	return []zap.Field{zap.String("error", err.Error())}
}

type contextKey string

// ContextKey wraps a field name to be used by context.WithValue.
// Both the wrapped and the plain string keys are looked up.
func ContextKey(field string) any {
	return contextKey(field)
}

// The fields come out in the order of the context keys.
func extractFieldsFromContext(ctx context.Context, targets tree.Map[string, string]) []zap.Field {
	if ctx == nil || targets == nil || targets.Empty() {
		return nil
	}
	fields := make([]zap.Field, 0, targets.Len())
	targets.Foreach(func(_ int64, key, name string) bool {
		if name == ContextKeyMapToOmitempty {
			return true
		}
		v := ctx.Value(contextKey(key))
		if v == nil {
			v = ctx.Value(key)
		}
		if v == nil {
			fields = append(fields, zap.String(name, "nil"))
		} else {
			fields = append(fields, zap.Any(name, v))
		}
		return true
	})
	return fields
}

type loggerCfg struct {
	encoder   logEncoderType
	level     *zapcore.Level
	ws        zapcore.WriteSyncer
	ctxFields tree.Map[string, string]
}

type XLoggerOption func(*loggerCfg) error

// NewXLogger builds a console logger. The level is taken from
// WithXLoggerLevel, then the XLOG_LVL environment variable.
func NewXLogger(opts ...XLoggerOption) XLogger {
	cfg := &loggerCfg{encoder: JSON}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(cfg); err != nil {
			panic(err)
		}
	}

	lvl := parseLevel(os.Getenv("XLOG_LVL"))
	if cfg.level != nil {
		lvl = *cfg.level
	}
	if cfg.ws == nil {
		cfg.ws = zapcore.Lock(os.Stdout)
	}
	l := &xLogger{
		level:     zap.NewAtomicLevelAt(lvl),
		ctxFields: cfg.ctxFields,
	}
	l.logger = zap.New(
		newConsoleCore(cfg.encoder, cfg.ws, l.level),
		zap.AddCaller(),
		zap.AddCallerSkip(1), // Skip the xLogger wrapper.
	)
	return l
}

func WithXLoggerEncoder(enc logEncoderType) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if enc >= _encMax {
			return infra.NewErrorStack("[xlog] unknown encoder")
		}
		cfg.encoder = enc
		return nil
	}
}

func WithXLoggerLevel(lvl logLevel) XLoggerOption {
	return func(cfg *loggerCfg) error {
		_lvl := parseLevel(lvl.String())
		cfg.level = &_lvl
		return nil
	}
}

func WithXLoggerWriter(ws zapcore.WriteSyncer) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if ws == nil {
			return infra.NewErrorStack("[xlog] nil writer")
		}
		cfg.ws = ws
		return nil
	}
}

// WithXLoggerContextFieldExtract logs the context value of key under the
// field name mapTo, the key itself by default. A repeated key takes the
// last name.
func WithXLoggerContextFieldExtract(key string, mapTo ...string) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if len(key) == 0 {
			return nil
		}
		name := key
		if len(mapTo) > 0 && len(mapTo[0]) > 0 {
			name = mapTo[0]
		}
		if cfg.ctxFields == nil {
			cfg.ctxFields = tree.NewOrderedMap[string, string]()
		}
		it, ok, err := cfg.ctxFields.Insert(key, name)
		if err != nil {
			return err
		}
		if !ok {
			it.SetVal(name)
		}
		return nil
	}
}
