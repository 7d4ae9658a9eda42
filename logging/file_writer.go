package logging

import (
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Default file writer configuration values
const (
	// DefaultMaxSizeMB is the maximum size in megabytes before rotation
	DefaultMaxSizeMB = 100

	// DefaultMaxBackups is the number of old log files to retain
	DefaultMaxBackups = 5

	// DefaultMaxAgeDays is the maximum number of days to retain old log files
	DefaultMaxAgeDays = 30

	// DefaultCompress enables gzip compression of rotated files
	DefaultCompress = true
)

// FileWriterConfig holds configuration for the rotating file writer.
// All fields are optional - zero values use defaults.
type FileWriterConfig struct {
	// Filename is the file to write logs to.
	Filename string

	// MaxSizeMB is the maximum size in megabytes of the log file before rotation.
	// Default: 100 MB
	MaxSizeMB int

	// MaxBackups is the maximum number of old log files to retain.
	// Default: 5 files
	MaxBackups int

	// MaxAgeDays is the maximum number of days to retain old log files.
	// Older files are deleted during rotation.
	// Default: 30 days
	MaxAgeDays int

	// Compress determines if rotated log files should be gzip compressed.
	// Default: true
	Compress bool

	// LocalTime determines if timestamps in backup file names use local time.
	// Default: false (UTC)
	LocalTime bool
}

// DefaultFileWriterConfig returns a FileWriterConfig with default values
// for the given filename. This is a pure function with no side effects.
func DefaultFileWriterConfig(filename string) FileWriterConfig {
	return FileWriterConfig{
		Filename:   filename,
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
		Compress:   DefaultCompress,
		LocalTime:  false,
	}
}

// NewFileWriter creates a zapcore.WriteSyncer that writes to a file with
// automatic rotation. Uses default configuration: 100MB max size, 5 backups,
// 30 days retention, compression enabled.
//
// This is a molecule that composes lumberjack.Logger into a zapcore.WriteSyncer.
//
// Example:
//
//	writer := NewFileWriter("/var/log/adei/adei.log")
//	core := zapcore.NewCore(encoder, writer, level)
func NewFileWriter(path string) zapcore.WriteSyncer {
	return NewFileWriterWithConfig(DefaultFileWriterConfig(path))
}

// NewFileWriterWithConfig creates a zapcore.WriteSyncer with custom rotation
// configuration. Zero-value fields are filled with defaults.
//
// Example:
//
//	config := FileWriterConfig{
//	    Filename:   "/var/log/adei/extract.log",
//	    MaxSizeMB:  50,
//	    MaxBackups: 3,
//	    MaxAgeDays: 7,
//	    Compress:   true,
//	}
//	writer := NewFileWriterWithConfig(config)
func NewFileWriterWithConfig(config FileWriterConfig) zapcore.WriteSyncer {
	cfg := applyFileWriterDefaults(config)

	logger := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  cfg.LocalTime,
	}

	return zapcore.AddSync(logger)
}

// applyFileWriterDefaults fills in zero values with defaults.
// Compress cannot be defaulted here: Go's zero value for bool is false and
// "explicitly false" is indistinguishable from "not set". Callers wanting
// compression should start from DefaultFileWriterConfig.
func applyFileWriterDefaults(config FileWriterConfig) FileWriterConfig {
	result := config

	if result.MaxSizeMB == 0 {
		result.MaxSizeMB = DefaultMaxSizeMB
	}
	if result.MaxBackups == 0 {
		result.MaxBackups = DefaultMaxBackups
	}
	if result.MaxAgeDays == 0 {
		result.MaxAgeDays = DefaultMaxAgeDays
	}

	return result
}
