package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger initializes and returns a new zap.Logger based on the provided log level.
// When file is non-empty, JSON logs are also written to a rotating file.
func NewLogger(level, file string) (*zap.Logger, error) {
	var zapConfig zap.Config

	if level == "debug" {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	var logLevel zap.AtomicLevel
	err := logLevel.UnmarshalText([]byte(level))
	if err != nil {
		return nil, err
	}
	zapConfig.Level = logLevel

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	if file == "" {
		return logger, nil
	}

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, logLevel)

	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	})), nil
}
