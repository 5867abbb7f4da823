// Package observability provides logging setup for the netsweep CLI.
//
// Commands log through the shared CLILogger. All log output goes to
// stderr so stdout stays clean for data output and shell pipelines.
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the shared logger for CLI commands.
//
// It defaults to a no-op logger so library consumers and tests that
// never call InitCLILogger do not emit output.
var CLILogger = zap.NewNop()

// InitCLILogger configures the shared CLI logger.
//
// level selects the minimum level ("debug", "info", "warn", "error");
// unrecognized values fall back to "info". When verbose is true the
// level is forced to debug regardless of level.
func InitCLILogger(level string, verbose bool) {
	lvl := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		lvl = parsed
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	CLILogger = zap.New(core)
}

// Sync flushes any buffered log entries. Safe to call at process exit.
func Sync() {
	_ = CLILogger.Sync()
}
