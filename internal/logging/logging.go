// Package logging builds the application's zap logger.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrInvalidLevel indicates an unknown log level name
var ErrInvalidLevel = errors.New("invalid log level")

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level (from config: log_level)
	Level string
	// File is a rotating log file, "" to log to Console (from config: log_file)
	File string
	// Debug selects the console encoder and caller info (from config: debug)
	Debug bool
	// Console receives output when File is empty, nil = stderr
	Console io.Writer

	// Rotation limits, 0 = 10 MB / 3 backups / 28 days
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a logger and returns the level handle so it can be changed later.
func New(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	lvl, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	level := zap.NewAtomicLevelAt(lvl)

	var core zapcore.Core
	if cfg.File != "" {
		core = zapcore.NewCore(encoder(cfg.Debug, false), zapcore.AddSync(rotating(cfg)), level)
	} else {
		w := cfg.Console
		if w == nil {
			w = os.Stderr
		}
		core = zapcore.NewCore(encoder(cfg.Debug, true), zapcore.AddSync(w), level)
	}

	opts := []zap.Option{zap.ErrorOutput(zapcore.Lock(zapcore.AddSync(os.Stderr)))}
	if cfg.Debug {
		opts = append(opts, zap.AddCaller(), zap.Development())
	}
	return zap.New(core, opts...), level, nil
}

// SetLevel changes the level of a running logger.
func SetLevel(level zap.AtomicLevel, name string) error {
	lvl, err := parseLevel(name)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}

// Sync flushes logger, ignoring the errors terminals return for fsync.
func Sync(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	if err := logger.Sync(); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "inappropriate ioctl for device") || strings.Contains(msg, "invalid argument") {
			return nil
		}
		return err
	}
	return nil
}

func parseLevel(name string) (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return lvl, fmt.Errorf("%w: %q", ErrInvalidLevel, name)
	}
	return lvl, nil
}

func encoder(debug, console bool) zapcore.Encoder {
	if debug {
		ec := zap.NewDevelopmentEncoderConfig()
		if console {
			ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		return zapcore.NewConsoleEncoder(ec)
	}
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewJSONEncoder(ec)
}

func rotating(cfg Config) *lumberjack.Logger {
	l := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	if l.MaxSize == 0 {
		l.MaxSize = 10
	}
	if l.MaxBackups == 0 {
		l.MaxBackups = 3
	}
	if l.MaxAge == 0 {
		l.MaxAge = 28
	}
	return l
}
