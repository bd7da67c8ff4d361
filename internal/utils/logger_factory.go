package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	runIdentifierFieldNameConstant       = "run_id"
)

// LogLevel is the common.log_level setting.
type LogLevel string

// Supported log levels.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat is the common.log_format setting.
type LogFormat string

// Supported log formats. Structured writes JSON lines, console writes colored human-readable lines.
const (
	LogFormatStructured LogFormat = "structured"
	LogFormatConsole    LogFormat = "console"
)

var zapLevelsByLogLevel = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// LoggerFactory builds the process logger from configuration values.
type LoggerFactory struct{}

// NewLoggerFactory constructs a LoggerFactory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLogger returns a logger writing to standard error, so reports on standard
// output stay machine readable. Level and format names are case-insensitive.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	zapLevel, levelKnown := zapLevelsByLogLevel[LogLevel(normalizeSetting(string(requestedLogLevel)))]
	if !levelKnown {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	var encoder zapcore.Encoder
	var options []zap.Option
	switch LogFormat(normalizeSetting(string(requestedLogFormat))) {
	case LogFormatStructured:
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		options = append(options, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	case LogFormatConsole:
		encoderConfiguration := zap.NewDevelopmentEncoderConfig()
		encoderConfiguration.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfiguration)
	default:
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}

	standardError := zapcore.Lock(os.Stderr)
	core := zapcore.NewCore(encoder, standardError, zap.NewAtomicLevelAt(zapLevel))
	return zap.New(core, append(options, zap.ErrorOutput(standardError))...), nil
}

func normalizeSetting(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NewRunIdentifier returns a fresh identifier for a single scan or sync run.
func NewRunIdentifier() string {
	return uuid.NewString()
}

// WithRunIdentifier tags every entry written by the returned logger with the run identifier.
func WithRunIdentifier(logger *zap.Logger, runIdentifier string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.With(zap.String(runIdentifierFieldNameConstant, runIdentifier))
}
