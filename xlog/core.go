package xlog

import (
	"go.uber.org/zap/zapcore"
)

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "lvl",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		TimeKey:        "ts",
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		CallerKey:      "callAt",
		EncodeCaller:   zapcore.ShortCallerEncoder,
		NameKey:        "component",
		EncodeName:     zapcore.FullNameEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// newConsoleCore writes the entries enabled by lvl into ws.
// The stack trace key is left out, ErrorStack carries the frames.
func newConsoleCore(enc logEncoderType, ws zapcore.WriteSyncer, lvl zapcore.LevelEnabler) zapcore.Core {
	cfg := encoderConfig()
	var encoder zapcore.Encoder
	switch enc {
	case PlainText:
		encoder = zapcore.NewConsoleEncoder(cfg)
	default:
		encoder = zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewCore(encoder, ws, lvl)
}
