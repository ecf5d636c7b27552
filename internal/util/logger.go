package util

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const appName = "backoffice-service"

var logger *zap.Logger

// loggerConfig picks the zap preset for env; level overrides the preset when set
func loggerConfig(env, level string) (zap.Config, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.InitialFields = map[string]interface{}{"service": appName}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return cfg, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
		}
		cfg.Level = lvl
	}
	return cfg, nil
}

// InitLogger builds the process logger and installs it as zap's global
func InitLogger(env, level string) error {
	cfg, err := loggerConfig(env, level)
	if err != nil {
		return err
	}

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	logger = built
	zap.ReplaceGlobals(logger)
	return nil
}

// GetLogger falls back to a development logger when InitLogger never ran, as in tests
func GetLogger() *zap.Logger {
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}

// Named returns a child of the process logger scoped to one component
func Named(component string) *zap.Logger {
	return GetLogger().Named(component)
}

func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
