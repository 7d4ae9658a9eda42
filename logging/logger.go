// Package logging provides structured logging for the ADEI Explorer backend.
//
// logger.go implements the Logger organism that the rest of the application
// logs through. It composes:
//   - log_level.go: ParseLogLevel for resolving the active level from the environment
//   - encoder_config.go: encoder configurations for file and console output
//   - multi_core.go: NewMultiCore for tee-ing output to console and file
//   - sensitive_filter.go: redaction of API keys and passwords before writing
//
// All output passes through redaction. API keys, passwords, and other secrets
// never reach the console or the log file, regardless of which logging method
// was used.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelEnvVar is the environment variable consulted for the log level.
// Valid values: debug, info, warn, error, fatal (case-insensitive).
const LogLevelEnvVar = "ADEI_LOG_LEVEL"

// Logger wraps zap.Logger to provide leveled, structured logging with
// automatic redaction of sensitive values.
//
// Three calling styles are supported, mirroring zap:
//   - Structured: logger.Info("report loaded", zap.String("path", path))
//   - Sugared key/value: logger.Infow("report loaded", "path", path)
//   - Printf-style: logger.Infof("report loaded from %s", path)
//
// Example:
//
//	logger, err := logging.NewLogger(false, "logs/adei.log")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("extraction started", zap.String("pdf", pdfPath))
type Logger struct {
	// zap is the underlying structured logger
	zap *zap.Logger

	// sugar is the sugared logger for printf-style logging
	sugar *zap.SugaredLogger

	// isDevelopment indicates if running in development mode
	isDevelopment bool

	// logFilePath is the path to the log file
	logFilePath string
}

// NewLogger creates a Logger writing to both console and the given log file.
//
// In development mode console output is colored and human-readable and the
// default level is Debug. In production mode console output is JSON and the
// default level is Info. Either default can be overridden with the
// ADEI_LOG_LEVEL environment variable.
//
// The log file is always JSON and rotated via lumberjack
// (100MB max, 5 backups, 30 days, compressed).
//
// Example:
//
//	// Development mode
//	devLogger, err := NewLogger(true, "adei.log")
//
//	// Production mode
//	prodLogger, err := NewLogger(false, "/var/log/adei/adei.log")
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	defaultLevel := zapcore.InfoLevel
	if isDevelopment {
		defaultLevel = zapcore.DebugLevel
	}
	level := ParseLogLevel(LogLevelEnvVar, defaultLevel)

	// Multi-core tees output to console and rotating file
	core, err := NewMultiCore(level, logFilePath, isDevelopment)
	if err != nil {
		return nil, fmt.Errorf("failed to create log core: %w", err)
	}

	// AddCallerSkip(1) so the caller of Logger methods is reported,
	// not the wrapper itself
	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &Logger{
		zap:           zapLogger,
		sugar:         zapLogger.Sugar(),
		isDevelopment: isDevelopment,
		logFilePath:   logFilePath,
	}, nil
}

// NewLoggerWithConfig creates a Logger with an explicit file rotation policy.
// Use this when the defaults are not appropriate, for example to keep
// extraction run logs longer than server logs.
func NewLoggerWithConfig(isDevelopment bool, fileConfig FileWriterConfig) (*Logger, error) {
	defaultLevel := zapcore.InfoLevel
	if isDevelopment {
		defaultLevel = zapcore.DebugLevel
	}
	level := ParseLogLevel(LogLevelEnvVar, defaultLevel)

	fileWriter := NewFileWriterWithConfig(fileConfig)
	core := NewMultiCoreWithWriters(level, consoleWriterSync(), fileWriter, isDevelopment)

	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &Logger{
		zap:           zapLogger,
		sugar:         zapLogger.Sugar(),
		isDevelopment: isDevelopment,
		logFilePath:   fileConfig.Filename,
	}, nil
}

// NewNopLogger returns a Logger that discards everything.
// Intended for tests that need a Logger but not its output.
func NewNopLogger() *Logger {
	nop := zap.NewNop()
	return &Logger{
		zap:   nop,
		sugar: nop.Sugar(),
	}
}

// Debug logs a message at DebugLevel with structured fields.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, l.redactFields(fields)...)
}

// Info logs a message at InfoLevel with structured fields.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, l.redactFields(fields)...)
}

// Warn logs a message at WarnLevel with structured fields.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, l.redactFields(fields)...)
}

// Error logs a message at ErrorLevel with structured fields.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, l.redactFields(fields)...)
}

// Fatal logs a message at FatalLevel with structured fields, then exits.
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, l.redactFields(fields)...)
}

// Panic logs a message at PanicLevel with structured fields, then panics.
func (l *Logger) Panic(msg string, fields ...zap.Field) {
	l.zap.Panic(msg, l.redactFields(fields)...)
}

// Debugf logs a printf-style message at DebugLevel.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(RedactSensitiveData(format), args...)
}

// Infof logs a printf-style message at InfoLevel.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.sugar.Infof(RedactSensitiveData(format), args...)
}

// Warnf logs a printf-style message at WarnLevel.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.sugar.Warnf(RedactSensitiveData(format), args...)
}

// Errorf logs a printf-style message at ErrorLevel.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(RedactSensitiveData(format), args...)
}

// Fatalf logs a printf-style message at FatalLevel, then exits.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.sugar.Fatalf(RedactSensitiveData(format), args...)
}

// Debugw logs a message with alternating key/value pairs at DebugLevel.
func (l *Logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Infow logs a message with alternating key/value pairs at InfoLevel.
//
// Example:
//
//	logger.Infow("country stored", "country", "Malaysia", "pillars", 9)
func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Warnw logs a message with alternating key/value pairs at WarnLevel.
func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Errorw logs a message with alternating key/value pairs at ErrorLevel.
func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Fatalw logs a message with alternating key/value pairs at FatalLevel,
// then exits.
func (l *Logger) Fatalw(msg string, keysAndValues ...interface{}) {
	l.sugar.Fatalw(msg, l.redactKeysAndValues(keysAndValues)...)
}

// With returns a child Logger that includes the given fields on every entry.
//
// Example:
//
//	countryLog := logger.With(zap.String("country", name))
//	countryLog.Info("section isolated")
//	countryLog.Info("extraction complete")
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := l.zap.With(l.redactFields(fields)...)
	return &Logger{
		zap:           child,
		sugar:         child.Sugar(),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// Named returns a child Logger with the given name segment appended.
// Names appear in the "logger" field and make per-component filtering easy.
func (l *Logger) Named(name string) *Logger {
	child := l.zap.Named(name)
	return &Logger{
		zap:           child,
		sugar:         child.Sugar(),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// WithOptions returns a child Logger with the given zap options applied.
func (l *Logger) WithOptions(opts ...zap.Option) *Logger {
	child := l.zap.WithOptions(opts...)
	return &Logger{
		zap:           child,
		sugar:         child.Sugar(),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// Sync flushes any buffered log entries. Call before process exit.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Sugar returns the underlying SugaredLogger.
// Output through it bypasses redaction; prefer the Logger methods.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// Zap returns the underlying zap.Logger for libraries that require one.
// Output through it bypasses redaction; prefer the Logger methods.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// IsDevelopment reports whether the logger was created in development mode.
func (l *Logger) IsDevelopment() bool {
	return l.isDevelopment
}

// LogFilePath returns the path of the log file this logger writes to.
func (l *Logger) LogFilePath() string {
	return l.logFilePath
}

// redactFields applies sensitive-data redaction to structured fields.
// Fields whose key looks sensitive (password, token, api_key, ...) are
// replaced wholesale; other string values are scanned for embedded secrets.
func (l *Logger) redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}

	redacted := make([]zap.Field, len(fields))
	for i, f := range fields {
		redacted[i] = redactField(f)
	}
	return redacted
}

// redactField redacts a single zap field when needed.
func redactField(f zap.Field) zap.Field {
	if IsSensitiveField(f.Key) {
		return zap.String(f.Key, RedactedPlaceholder)
	}
	if f.Type == zapcore.StringType {
		return zap.String(f.Key, RedactSensitiveData(f.String))
	}
	return f
}

// redactKeysAndValues applies redaction to sugared key/value pairs.
func (l *Logger) redactKeysAndValues(keysAndValues []interface{}) []interface{} {
	if len(keysAndValues) == 0 {
		return keysAndValues
	}

	redacted := make([]interface{}, len(keysAndValues))
	copy(redacted, keysAndValues)

	for i := 0; i+1 < len(redacted); i += 2 {
		key, ok := redacted[i].(string)
		if !ok {
			continue
		}
		if IsSensitiveField(key) {
			redacted[i+1] = RedactedPlaceholder
			continue
		}
		if value, ok := redacted[i+1].(string); ok {
			redacted[i+1] = RedactSensitiveData(value)
		}
	}
	return redacted
}
