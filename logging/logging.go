// Package logging builds the zap logger shared by the CLI, the build
// pipeline and the HTTP server.
package logging

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to stdout, with zap's own errors on
// stderr. Debug level is enabled when debug is true or the DEBUG environment
// variable is set.
func New(debug bool) *zap.Logger {
	encConfig := zap.NewDevelopmentEncoderConfig()
	encConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encConfig.EncodeCaller = nil
	encConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.StampMicro))
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug || os.Getenv("DEBUG") != "" {
		level.SetLevel(zapcore.DebugLevel)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encConfig), zapcore.Lock(os.Stdout), level)
	return zap.New(core, zap.ErrorOutput(zapcore.Lock(os.Stderr)))
}
