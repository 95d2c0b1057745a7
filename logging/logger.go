package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warning(v ...interface{})
	Warningf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

var (
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	// what SetLevel asked for, verbosity moves relative to it
	configured = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	rootOnce sync.Once
	root     *zap.Logger
)

// stdout carries the remote helper protocol, so everything goes to stderr.
func rootLogger() *zap.Logger {
	rootOnce.Do(func() {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			level,
		)
		root = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	})
	return root
}

func GetLogger(name string) Logger {
	l := rootLogger()
	if name != "" {
		l = l.Named(name)
	}
	return &logger{sugar: l.Sugar()}
}

// SetLevel accepts zap level names ("debug", "info", "warn", "error").
func SetLevel(name string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return err
	}
	configured.SetLevel(l)
	level.SetLevel(l)
	return nil
}

// SetVerbosity maps git's "option verbosity" onto a log level.
// git sends 1 by default, 0 for --quiet and 2+ for each -v; 1 keeps
// the level given to SetLevel.
func SetVerbosity(n int) {
	base := configured.Level()
	switch {
	case n <= 0:
		if base < zapcore.ErrorLevel {
			base = zapcore.ErrorLevel
		}
		level.SetLevel(base)
	case n == 1:
		level.SetLevel(base)
	default:
		level.SetLevel(zapcore.DebugLevel)
	}
}

func Level() zapcore.Level {
	return level.Level()
}

func Sync() error {
	return rootLogger().Sync()
}

type logger struct {
	sugar *zap.SugaredLogger
}

func (l *logger) Debug(v ...interface{}) {
	l.sugar.Debug(v...)
}

func (l *logger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

func (l *logger) Info(v ...interface{}) {
	l.sugar.Info(v...)
}

func (l *logger) Infof(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

func (l *logger) Warning(v ...interface{}) {
	l.sugar.Warn(v...)
}

func (l *logger) Warningf(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

func (l *logger) Error(v ...interface{}) {
	l.sugar.Error(v...)
}

func (l *logger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}
