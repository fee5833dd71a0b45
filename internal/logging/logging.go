// Package logging constructs the zap.Logger used across the build
// pipeline, picking a development or production encoder config the same
// way the rest of the codebase does.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a zap.Logger. verbose selects the human-readable development
// encoder (colorized level, caller, stack traces on warn+); otherwise a
// JSON production encoder suitable for log aggregation is used. Failure to
// construct either falls back to a no-op logger rather than erroring -
// build diagnostics are not worth failing a build over.
func New(verbose bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err = cfg.Build()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
