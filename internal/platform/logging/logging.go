package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	s *zap.SugaredLogger
}

// New builds a JSON logger tagged with the service name. Unknown levels fall back to info.
func New(service string, level string) *Logger {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	z, err := cfg.Build(zap.Fields(zap.String("service", service)))
	if err != nil {
		z = zap.NewExample().With(zap.String("service", service))
	}

	return &Logger{s: z.Sugar()}
}

func NewNop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.s.Debugw(msg, kv...)
}

func (l *Logger) Info(msg string, kv ...any) {
	l.s.Infow(msg, kv...)
}

func (l *Logger) Warn(msg string, kv ...any) {
	l.s.Warnw(msg, kv...)
}

func (l *Logger) Error(msg string, kv ...any) {
	l.s.Errorw(msg, kv...)
}

// With returns a child logger that always carries kv.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{s: l.s.With(kv...)}
}

func (l *Logger) Sync() error {
	return l.s.Sync()
}

// Zap exposes the underlying logger for libraries that take a *zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return l.s.Desugar()
}
