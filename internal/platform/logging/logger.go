package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/janisto/wallet-profiles/internal/platform/timeutil"
)

// Options tunes the process logger. Zero values keep the server defaults:
// info level, JSON lines on stdout.
type Options struct {
	Level  zapcore.Level
	Output string // "stdout" or "stderr"
}

var (
	loggerOnce  sync.Once
	baseLogger  *zap.Logger
	sugarLogger *zap.SugaredLogger
	loggerErr   error

	optionsMu sync.Mutex
	options   Options
)

// Configure sets the options used when the logger is first built. It has no
// effect once Logger, Sugar, Sync or Err has been called.
func Configure(opts Options) {
	optionsMu.Lock()
	defer optionsMu.Unlock()
	options = opts
}

func currentOptions() Options {
	optionsMu.Lock()
	defer optionsMu.Unlock()
	return options
}

// encodeTimeMicros formats timestamps as RFC 3339 UTC with microseconds.
func encodeTimeMicros(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(timeutil.RFC3339Micros))
}

// cloudSeverity maps zap levels to Cloud Logging severity names.
var cloudSeverity = map[zapcore.Level]string{
	zapcore.DebugLevel:  "DEBUG",
	zapcore.InfoLevel:   "INFO",
	zapcore.WarnLevel:   "WARNING",
	zapcore.ErrorLevel:  "ERROR",
	zapcore.DPanicLevel: "CRITICAL",
	zapcore.PanicLevel:  "ALERT",
	zapcore.FatalLevel:  "EMERGENCY",
}

func encodeSeverity(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	severity, ok := cloudSeverity[level]
	if !ok {
		severity = "DEFAULT"
	}
	enc.AppendString(severity)
}

func initLogger() {
	opts := currentOptions()
	output := opts.Output
	if output == "" {
		output = "stdout"
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(opts.Level)
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{output}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = encodeTimeMicros
	cfg.EncoderConfig.LevelKey = "severity"
	cfg.EncoderConfig.EncodeLevel = encodeSeverity
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.CallerKey = "caller"

	baseLogger, loggerErr = cfg.Build(zap.AddCaller())
	if loggerErr != nil {
		baseLogger = zap.NewNop()
	}
	sugarLogger = baseLogger.Sugar()
}

// Logger returns the process-wide logger.
func Logger() *zap.Logger {
	loggerOnce.Do(initLogger)
	return baseLogger
}

// Sugar returns a sugared logger sharing the core of Logger.
func Sugar() *zap.SugaredLogger {
	loggerOnce.Do(initLogger)
	return sugarLogger
}

// Sync flushes buffered entries. Call it during shutdown.
func Sync() error {
	loggerOnce.Do(initLogger)
	return baseLogger.Sync()
}

// Err reports a logger construction failure, if any.
func Err() error {
	loggerOnce.Do(initLogger)
	return loggerErr
}
