// Package log holds the process-wide zap logger and HTTP access logging.
package log

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu         sync.RWMutex
	baseLogger *zap.Logger
	sugar      *zap.SugaredLogger
)

// Init builds the package logger. debug selects the development encoder and
// debug level; otherwise production JSON at info level is used.
func Init(debug bool) error {
	var (
		zl  *zap.Logger
		err error
	)
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zl, err = cfg.Build(zap.AddCallerSkip(1))
	} else {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zl, err = cfg.Build(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}

	mu.Lock()
	baseLogger = zl
	sugar = zl.Sugar()
	mu.Unlock()
	return nil
}

func current() *zap.SugaredLogger {
	mu.RLock()
	s := sugar
	mu.RUnlock()
	if s != nil {
		return s
	}

	mu.Lock()
	defer mu.Unlock()
	if sugar == nil {
		baseLogger, _ = zap.NewProduction(zap.AddCallerSkip(1))
		sugar = baseLogger.Sugar()
	}
	return sugar
}

// GetZapLogger returns the base logger for libraries that want a *zap.Logger,
// such as the gorm bridge.
func GetZapLogger() *zap.Logger {
	current()
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger.WithOptions(zap.AddCallerSkip(-1))
}

// Named returns a component logger without the package-level caller skip.
func Named(component string) *zap.SugaredLogger {
	return GetZapLogger().Named(component).Sugar()
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	s := sugar
	mu.RUnlock()
	if s != nil {
		_ = s.Sync()
	}
}

func Debugf(template string, args ...any) { current().Debugf(template, args...) }

func Info(args ...any)                    { current().Info(args...) }
func Infof(template string, args ...any)  { current().Infof(template, args...) }
func Infow(msg string, kv ...any)         { current().Infow(msg, kv...) }
func Warnf(template string, args ...any)  { current().Warnf(template, args...) }
func Warnw(msg string, kv ...any)         { current().Warnw(msg, kv...) }
func Errorf(template string, args ...any) { current().Errorf(template, args...) }
func Errorw(msg string, kv ...any)        { current().Errorw(msg, kv...) }

// Fatalf logs and exits the process.
func Fatalf(template string, args ...any) { current().Fatalf(template, args...) }
