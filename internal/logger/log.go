// Package logger provides the process-wide structured logger used by all
// relay components. It wraps a zap core configured for human-readable
// console output.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log *zap.Logger

func init() {
	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		NameKey:      "logger",
		CallerKey:    "caller",
		MessageKey:   "msg",
		LineEnding:   zapcore.DefaultLineEnding,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stdout),
		zapcore.InfoLevel,
	)

	Log = zap.New(core, zap.AddCaller())
}

// Info logs a message at InfoLevel with optional structured fields.
func Info(msg string, fields ...zap.Field) { Log.Info(msg, fields...) }

// Infof logs a formatted message at InfoLevel.
func Infof(format string, args ...interface{}) {
	Log.Info(fmt.Sprintf(format, args...))
}

// Warn logs a message at WarnLevel with optional structured fields.
func Warn(msg string, fields ...zap.Field) { Log.Warn(msg, fields...) }

// Warnf logs a formatted message at WarnLevel.
func Warnf(format string, args ...interface{}) {
	Log.Warn(fmt.Sprintf(format, args...))
}

// Error logs a message at ErrorLevel with optional structured fields.
func Error(msg string, fields ...zap.Field) { Log.Error(msg, fields...) }

// Errorf logs a formatted message at ErrorLevel.
func Errorf(format string, args ...interface{}) {
	Log.Error(fmt.Sprintf(format, args...))
}

// Debug logs a message at DebugLevel with optional structured fields.
func Debug(msg string, fields ...zap.Field) { Log.Debug(msg, fields...) }
