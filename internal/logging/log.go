// Package logging sets up the structured logger shared across the engine,
// following the console/JSON dual-encoder split used by the server CLI.
package logging

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func shortTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// New creates a zap logger. json selects the JSON encoder for production
// log shipping; otherwise a compact console encoder is used.
func New(json bool) *zap.Logger {
	econf := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var core zapcore.Core
	if json {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(econf), os.Stdout, zap.InfoLevel)
	} else {
		econf.EncodeTime = shortTimeEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(econf), os.Stdout, zap.InfoLevel)
	}
	return zap.New(core)
}

// Nop returns a logger that discards everything, used as the zero-value
// default when a component is constructed without an explicit logger.
func Nop() *zap.Logger { return zap.NewNop() }
