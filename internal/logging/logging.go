// Package logging builds the process zap logger from configuration:
// stderr output in json or console encoding, optionally teed to a rotated
// file.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/matthewbaird/abiconsole/internal/config"
)

// New returns a logger and the atomic level backing it, so the level can be
// changed at runtime.
func New(cfg config.LogConfig) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, level, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var stderrEnc zapcore.Encoder
	switch cfg.Format {
	case "console":
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		stderrEnc = zapcore.NewConsoleEncoder(consoleCfg)
	case "", "json":
		stderrEnc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, level, fmt.Errorf("log format %q: want json or console", cfg.Format)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(stderrEnc, zapcore.Lock(os.Stderr), level),
	}
	if cfg.File != "" {
		// The file always gets json regardless of the terminal format.
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(rotator(cfg)),
			level,
		))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return log, level, nil
}

func rotator(cfg config.LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}
