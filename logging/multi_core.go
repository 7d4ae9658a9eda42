package logging

import (
	"os"

	"go.uber.org/zap/zapcore"
)

// NewMultiCore creates a zapcore.Core that tees output to both console and file.
// This is a molecule that composes the encoder config atoms from encoder_config.go
// and the rotating FileWriter from file_writer.go.
//
// Parameters:
//   - level: The minimum log level for both outputs
//   - filePath: Path to the log file (created on first write, rotated by lumberjack)
//   - isDev: When true, console uses human-readable format; when false, both use JSON
//
// The file output always uses JSON encoding for structured log processing.
// The console output uses:
//   - Development mode (isDev=true): colored, human-readable format
//   - Production mode (isDev=false): JSON format for consistency
//
// Example:
//
//	core, err := NewMultiCore(zapcore.InfoLevel, "adei.log", true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger := zap.New(core)
func NewMultiCore(level zapcore.Level, filePath string, isDev bool) (zapcore.Core, error) {
	fileWriter := NewFileWriter(filePath)
	return NewMultiCoreWithWriters(level, consoleWriterSync(), fileWriter, isDev), nil
}

// NewMultiCoreWithWriters creates a zapcore.Core that tees output to provided writers.
// This variant allows for custom writers, useful for testing or special output destinations.
//
// Parameters:
//   - level: The minimum log level for both outputs
//   - consoleWriter: Writer for console output (typically os.Stdout)
//   - fileWriter: Writer for file output
//   - isDev: When true, console uses human-readable format; when false, both use JSON
//
// Example:
//
//	var buf zaptest.Buffer
//	core := NewMultiCoreWithWriters(zapcore.DebugLevel, zapcore.AddSync(os.Stdout), &buf, true)
//	logger := zap.New(core)
func NewMultiCoreWithWriters(level zapcore.Level, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	// File always uses JSON encoder
	fileEncoder := zapcore.NewJSONEncoder(NewEncoderConfig())
	fileCore := zapcore.NewCore(
		fileEncoder,
		fileWriter,
		level,
	)

	// Console encoder depends on mode
	var consoleEncoder zapcore.Encoder
	if isDev {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}

	consoleCore := zapcore.NewCore(
		consoleEncoder,
		consoleWriter,
		level,
	)

	return zapcore.NewTee(consoleCore, fileCore)
}

// consoleWriterSync returns the standard console write syncer.
func consoleWriterSync() zapcore.WriteSyncer {
	return zapcore.AddSync(os.Stdout)
}
