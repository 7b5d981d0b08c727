// Package log provides the structured logging facade used across meteoflow.
// It wraps zap's sugared logger behind a small interface so components can
// take an injected Logger while package-level helpers keep call sites terse.
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the logging surface components depend on.
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
	Sync() error
}

// Options configures the logger.
type Options struct {
	// Level is the minimum enabled level: debug, info, warn, error.
	Level string
	// Format selects the encoder: console or json.
	Format string
	// DisableCaller removes the caller annotation from entries.
	DisableCaller bool
	// OutputPaths is the list of sinks, defaulting to stdout.
	OutputPaths []string
}

// NewOptions returns Options with sane defaults.
func NewOptions() *Options {
	return &Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{"stdout"},
	}
}

type zapLogger struct {
	z *zap.SugaredLogger
}

var _ Logger = (*zapLogger)(nil)

var (
	mu  sync.Mutex
	std = New(NewOptions())
)

// Init replaces the package-level logger. Call it once at startup.
func Init(opts *Options) {
	mu.Lock()
	defer mu.Unlock()
	std = New(opts)
}

// New builds a Logger from Options. A nil opts yields the defaults.
func New(opts *Options) Logger {
	if opts == nil {
		opts = NewOptions()
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableCaller = opts.DisableCaller
	cfg.DisableStacktrace = true
	cfg.Encoding = "json"
	if opts.Format == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	}

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		z = zap.NewNop()
	}
	return &zapLogger{z: z.Sugar()}
}

func (l *zapLogger) Debugw(msg string, keysAndValues ...any) {
	l.z.Debugw(msg, keysAndValues...)
}

func (l *zapLogger) Infow(msg string, keysAndValues ...any) {
	l.z.Infow(msg, keysAndValues...)
}

func (l *zapLogger) Warnw(msg string, keysAndValues ...any) {
	l.z.Warnw(msg, keysAndValues...)
}

func (l *zapLogger) Errorw(msg string, keysAndValues ...any) {
	l.z.Errorw(msg, keysAndValues...)
}

func (l *zapLogger) Sync() error {
	return l.z.Sync()
}

// Default returns the package-level logger for injection.
func Default() Logger {
	mu.Lock()
	defer mu.Unlock()
	return std
}

func Debugw(msg string, keysAndValues ...any) { Default().Debugw(msg, keysAndValues...) }

func Infow(msg string, keysAndValues ...any) { Default().Infow(msg, keysAndValues...) }

func Warnw(msg string, keysAndValues ...any) { Default().Warnw(msg, keysAndValues...) }

func Errorw(msg string, keysAndValues ...any) { Default().Errorw(msg, keysAndValues...) }

// Sync flushes buffered entries, typically deferred from main.
func Sync() { _ = Default().Sync() }
