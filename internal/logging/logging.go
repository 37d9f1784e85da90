// Package logging builds the process-wide zap logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options control how the logger is constructed.
type Options struct {
	// Level is one of debug, info, warn, error. Unknown values fall back
	// to info.
	Level string
	// Format selects the encoder: "json" for machine-readable production
	// output, anything else for the development console encoder.
	Format string
	// File, when non-empty, duplicates all output to the given path as
	// JSON with size-based rotation.
	File string
}

// New builds a sugared logger from the given options. It never fails:
// invalid levels degrade to info and an unbuildable config degrades to a
// no-op logger.
func New(opts Options) *zap.SugaredLogger {
	level := ParseLevel(opts.Level)

	var cfg zap.Config
	if opts.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	if opts.File != "" {
		logger = teeToFile(logger, opts.File, level)
	}
	return logger.Sugar()
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// teeToFile duplicates log output into a rotating file. The file always
// receives JSON regardless of the console format, so rotated logs stay
// machine-readable.
func teeToFile(logger *zap.Logger, path string, level zapcore.Level) *zap.Logger {
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
	})
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		sink,
		level,
	)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
}
