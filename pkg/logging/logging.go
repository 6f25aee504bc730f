// Package logging builds the structured JSON logger shared by every command.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field names attached by the pipeline.
const (
	FieldProvider   = "provider"
	FieldEntityType = "entity_type"
	FieldRecords    = "records"
	FieldRunID      = "run_id"
	FieldJob        = "job"
	FieldDuration   = "duration"
)

// New returns a JSON logger writing to stderr at the given level, named
// "ingestion".
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.MessageKey = "message"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).Named("ingestion"), nil
}

// Must is New for process entry points, falling back to info on a bad level.
func Must(level string) *zap.Logger {
	logger, err := New(level)
	if err != nil {
		logger, _ = New("info")
		logger.Warn("falling back to info logging", zap.Error(err))
	}
	return logger
}
