// Package logger provides opinionated logging for folio.
package logger

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the logger level and sink.
type Options struct {
	Debug bool

	// File, when set, sends logs to a size-rotated file instead of stdout.
	// The terminal client uses this because stdout belongs to the UI.
	File string

	// Output overrides the sink entirely. Mostly useful in tests.
	Output io.Writer
}

func New(opts Options) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	level := zap.InfoLevel
	if opts.Debug {
		level = zap.DebugLevel
	}

	var sink zapcore.WriteSyncer
	switch {
	case opts.Output != nil:
		sink = zapcore.AddSync(opts.Output)
	case opts.File != "":
		// File output is not colored.
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     14,
		})
	default:
		sink = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		sink,
		level,
	)

	return zap.New(core, zap.AddCaller())
}

// Truncate shortens s for a log field: newlines become spaces and anything
// past maxLen bytes is cut on a rune boundary and marked with "...".
func Truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
