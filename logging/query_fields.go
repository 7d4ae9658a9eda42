// Package logging provides structured logging utilities for the ADEI Explorer backend.
// This file contains molecule-level helpers that compose the QueryMetrics and
// ExtractionMetrics atoms into ready-to-use zap.Field values.
package logging

import (
	"time"

	"go.uber.org/zap"
)

// QueryFields creates a structured zap field from query metrics.
//
// Example:
//
//	logger.Info("question answered", logging.QueryFields(metrics))
func QueryFields(metrics QueryMetrics) zap.Field {
	return zap.Object("query", metrics)
}

// ExtractionFields creates a structured zap field from extraction metrics.
//
// Example:
//
//	logger.Info("country extracted", logging.ExtractionFields(metrics))
func ExtractionFields(metrics ExtractionMetrics) zap.Field {
	return zap.Object("extraction", metrics)
}

// TokenFields creates a slice of zap fields for token counts.
// Convenience for logging token usage without a full metrics struct.
//
// Example:
//
//	logger.Info("token usage", logging.TokenFields(820, 145, 965)...)
func TokenFields(prompt, completion, total int) []zap.Field {
	return []zap.Field{
		zap.Int("prompt_tokens", prompt),
		zap.Int("completion_tokens", completion),
		zap.Int("total_tokens", total),
	}
}

// TimingFields creates a slice of zap fields for operation timing.
//
// Example:
//
//	start := time.Now()
//	// ... run the pipeline stage ...
//	logger.Info("stage timing", logging.TimingFields(start, time.Now())...)
func TimingFields(startTime, endTime time.Time) []zap.Field {
	return []zap.Field{
		zap.Time("start_time", startTime),
		zap.Time("end_time", endTime),
		zap.Duration("duration", endTime.Sub(startTime)),
	}
}
