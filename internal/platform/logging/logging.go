package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is a zap level name; unknown or empty means info.
	Level string
	// Service is attached to every entry as "service" when set.
	Service string
	// Console switches to the human-readable development encoder.
	Console bool
}

// New builds the process logger. Entries are JSON with an ISO8601 "ts" key
// unless opts.Console is set.
func New(opts Options) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(strings.ToLower(strings.TrimSpace(opts.Level))); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if opts.Console {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	if svc := strings.TrimSpace(opts.Service); svc != "" {
		cfg.InitialFields = map[string]any{"service": svc}
	}
	return cfg.Build()
}
