package logging

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. format is "json" or "console".
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console", "text":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// Error logs err at error level, expanding oops code and context when present.
func Error(logger *zap.Logger, msg string, err error) {
	logger.Error(msg, Fields(err)...)
}

// Fields returns zap fields describing err.
func Fields(err error) []zap.Field {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []zap.Field{zap.Error(err)}
	}

	fields := []zap.Field{zap.String("error", oopsErr.Error())}
	if code := oopsErr.Code(); code != nil {
		fields = append(fields, zap.Any("code", code))
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		fields = append(fields, zap.Any("context", ctx))
	}
	return fields
}
