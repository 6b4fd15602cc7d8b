package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewDebugSink creates a JSON-lines logger that appends to path.
// An empty path returns nil so callers can skip the sink entirely.
func NewDebugSink(path string) (*zap.Logger, error) {
	if path == "" {
		return nil, nil //nolint:nilnil // nil sink means disabled
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.SecondsDurationEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build debug sink %s: %w", path, err)
	}
	return l, nil
}
