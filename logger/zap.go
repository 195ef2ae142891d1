package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is a Logger backed by go.uber.org/zap.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

var _ Logger = (*ZapLogger)(nil)

// NewZap builds a zap logger with the production (JSON) or development (console) preset.
func NewZap(level LogLevel, development bool) (Logger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(toZapLevel(level))

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &ZapLogger{sugar: l.Sugar(), level: cfg.Level}, nil
}

// WrapZap adapts an existing zap logger. The level is used by Level/SetLevel and should be
// the same AtomicLevel the logger's core was built with.
func WrapZap(l *zap.Logger, level zap.AtomicLevel) Logger {
	return &ZapLogger{sugar: l.WithOptions(zap.AddCallerSkip(1)).Sugar(), level: level}
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

func (l *ZapLogger) With(keyValues ...any) Logger {
	return &ZapLogger{sugar: l.sugar.With(keyValues...), level: l.level}
}

func (l *ZapLogger) Level() LogLevel {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.InfoLevel:
		return InfoLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.ErrorLevel:
		return ErrorLevel
	default:
		return FatalLevel
	}
}

func (l *ZapLogger) SetLevel(level LogLevel) {
	l.level.SetLevel(toZapLevel(level))
}

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}
