package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log configures the process logger.
type Log struct {
	Level  zapcore.Level `yaml:"level" envconfig:"LEVEL"`
	Format string        `yaml:"format" envconfig:"FORMAT" validate:"omitempty,oneof=console json"`
}

// NewLogger builds a logger writing to stderr so command output on stdout stays clean.
func NewLogger(cfg Log, name string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(cfg.Format, "json") {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(cfg.Level))
	return zap.New(core).Named(name)
}
