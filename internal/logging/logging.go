// Package logging builds the zap loggers installed by the warptab commands.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a development logger that writes entries at or above the given level to stderr. An empty level
// disables logging.
func New(level string) (*zap.Logger, error) {
	if level == "" {
		return zap.NewNop(), nil
	}

	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(l)
	config.DisableStacktrace = true
	return config.Build()
}
