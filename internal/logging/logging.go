// Package logging builds the process-wide zap logger: a rotating JSON file
// core tee'd with a human-readable console core.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// File is the rotating log file path. Empty disables the file core.
	File string
	// Console receives human-readable output. Nil means stderr.
	Console io.Writer
	// JSONConsole switches the console encoder to JSON.
	JSONConsole bool
}

// New returns a logger writing to the configured sinks.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	var cores []zapcore.Core

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), level))
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleEncoder := jsonEncoder
	if !opts.JSONConsole {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(console)), level))

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// ParseLevel maps a config level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zap.InfoLevel, nil
	case "debug":
		return zap.DebugLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("logging: unknown level %q", s)
	}
}
