package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
}

// SensitiveKeys hold patient-authored or generated clinical text
var SensitiveKeys = map[string]bool{
	"input":    true,
	"response": true,
	"prompt":   true,
	"text":     true,
	"symptoms": true,
}

const redacted = "[redacted]"

type ZapLogger struct {
	logger *zap.Logger
	redact bool
}

func newRotator(logFilePath string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}

func newJSONEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func fileCore(logFilePath string) zapcore.Core {
	return zapcore.NewCore(newJSONEncoder(), zapcore.AddSync(newRotator(logFilePath)), zap.InfoLevel)
}

// NewZapLogger tees JSON lines into a rotating file and the console.
// Production mode logs JSON to the console as well and redacts SensitiveKeys.
func NewZapLogger(logFilePath string, isProd bool) *ZapLogger {
	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	if isProd {
		consoleEncoder = newJSONEncoder()
	}
	consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zap.DebugLevel)

	return newZapLogger(zapcore.NewTee(fileCore(logFilePath), consoleCore), isProd)
}

// NewIsolatedLogger writes only to the file so the CLI transcript stays clean.
// Records are redacted because the file outlives the session.
func NewIsolatedLogger(logFilePath string) *ZapLogger {
	return newZapLogger(fileCore(logFilePath), true)
}

// NewNopLogger discards everything. Used by tests.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

// NewCoreLogger wraps an arbitrary core, e.g. an observer in tests
func NewCoreLogger(core zapcore.Core, redact bool) *ZapLogger {
	return newZapLogger(core, redact)
}

func newZapLogger(core zapcore.Core, redact bool) *ZapLogger {
	// skip the facade frame so callers show up in the log
	return &ZapLogger{
		logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)),
		redact: redact,
	}
}

func (l *ZapLogger) fields(module string, details map[string]interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(details)+1)
	fields = append(fields, zap.String("module", module))
	for k, v := range details {
		if l.redact && SensitiveKeys[k] {
			v = redacted
		}
		if err, ok := v.(error); ok {
			fields = append(fields, zap.NamedError(k, err))
			continue
		}
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}

func (l *ZapLogger) write(level zapcore.Level, module, message string, details map[string]interface{}) {
	if ce := l.logger.Check(level, message); ce != nil {
		ce.Write(l.fields(module, details)...)
	}
}

func (l *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	l.write(zapcore.DebugLevel, module, message, details)
}

func (l *ZapLogger) Info(module, message string, details map[string]interface{}) {
	l.write(zapcore.InfoLevel, module, message, details)
}

func (l *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	l.write(zapcore.WarnLevel, module, message, details)
}

func (l *ZapLogger) Error(module, message string, details map[string]interface{}) {
	l.write(zapcore.ErrorLevel, module, message, details)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
