// Package logger builds the zap loggers used by the binaries
package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level       string
	Format      string
	Development bool
	OutputPaths []string

	// Service and Environment are attached to every entry when set
	Service     string
	Environment string

	// SampleInitial entries per message and second are logged, then every
	// SampleThereafter-th. Sampling is off in development or when
	// SampleInitial is zero.
	SampleInitial    int
	SampleThereafter int
}

// New creates a logger with a fixed level
func New(cfg Config) (*zap.Logger, error) {
	log, _, err := NewAtomic(cfg)
	return log, err
}

// NewAtomic creates a logger whose level can be changed while it runs.
func NewAtomic(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	sink, closeSink, err := zap.Open(outputs...)
	if err != nil {
		return nil, level, fmt.Errorf("failed to open log outputs: %w", err)
	}
	errSink, _, err := zap.Open("stderr")
	if err != nil {
		closeSink()
		return nil, level, fmt.Errorf("failed to open error output: %w", err)
	}

	var core zapcore.Core = zapcore.NewCore(encoder(cfg), sink, level)
	if cfg.Development {
		return zap.New(core,
			zap.AddCaller(),
			zap.Development(),
			zap.AddStacktrace(zapcore.ErrorLevel),
			zap.ErrorOutput(errSink),
		).With(fields(cfg)...), level, nil
	}

	if cfg.SampleInitial > 0 {
		core = zapcore.NewSamplerWithOptions(core, time.Second, cfg.SampleInitial, cfg.SampleThereafter)
	}
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.DPanicLevel),
		zap.ErrorOutput(errSink),
	).With(fields(cfg)...), level, nil
}

func encoder(cfg Config) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	if cfg.Format == "console" {
		if cfg.Development {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		return zapcore.NewConsoleEncoder(encCfg)
	}
	return zapcore.NewJSONEncoder(encCfg)
}

func fields(cfg Config) []zap.Field {
	var fs []zap.Field
	if cfg.Service != "" {
		fs = append(fs, zap.String("service", cfg.Service))
	}
	if cfg.Environment != "" {
		fs = append(fs, zap.String("environment", cfg.Environment))
	}
	return fs
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(name string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}
