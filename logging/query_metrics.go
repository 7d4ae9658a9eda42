package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// QueryMetrics represents metrics collected while answering a natural
// language question against the index database.
// Implements zapcore.ObjectMarshaler for structured logging.
//
// This is a pure data structure with no dependencies on other logging atoms.
//
// Example:
//
//	metrics := QueryMetrics{
//	    ModelName:        "gpt-4o-mini",
//	    PromptTokens:     820,
//	    CompletionTokens: 145,
//	    TotalTokens:      965,
//	    RowCount:         10,
//	    Attempts:         1,
//	    Duration:         3 * time.Second,
//	}
//	logger.Info("question answered", zap.Object("query", metrics))
type QueryMetrics struct {
	// ModelName identifies which model generated the SQL and the answer
	ModelName string `json:"model_name"`

	// PromptTokens is the count of tokens sent across both model calls
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the count of tokens generated across both model calls
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the sum of PromptTokens and CompletionTokens
	TotalTokens int `json:"total_tokens"`

	// RowCount is the number of rows the generated SQL returned
	RowCount int `json:"row_count"`

	// Attempts is how many SQL generation attempts were made (1 or 2)
	Attempts int `json:"attempts"`

	// Duration is the total time from question to answer
	Duration time.Duration `json:"duration"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler so QueryMetrics can be
// logged as a nested JSON object. Duration is encoded in milliseconds.
func (m QueryMetrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("model_name", m.ModelName)
	enc.AddInt("prompt_tokens", m.PromptTokens)
	enc.AddInt("completion_tokens", m.CompletionTokens)
	enc.AddInt("total_tokens", m.TotalTokens)
	enc.AddInt("row_count", m.RowCount)
	enc.AddInt("attempts", m.Attempts)
	enc.AddInt64("duration_ms", m.Duration.Milliseconds())
	return nil
}

// ExtractionMetrics represents metrics collected while extracting a single
// country's record from the report text.
// Implements zapcore.ObjectMarshaler for structured logging.
type ExtractionMetrics struct {
	// Country is the member state the record belongs to
	Country string `json:"country"`

	// SectionChars is the size of the isolated country section in characters
	SectionChars int `json:"section_chars"`

	// Chunks is the number of chunks the section was split into
	Chunks int `json:"chunks"`

	// TotalTokens is the token usage across extraction calls for this country
	TotalTokens int `json:"total_tokens"`

	// Attempts is how many extraction attempts were made (1 or 2)
	Attempts int `json:"attempts"`

	// Duration is the time spent on this country
	Duration time.Duration `json:"duration"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler so ExtractionMetrics can
// be logged as a nested JSON object. Duration is encoded in milliseconds.
func (m ExtractionMetrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("country", m.Country)
	enc.AddInt("section_chars", m.SectionChars)
	enc.AddInt("chunks", m.Chunks)
	enc.AddInt("total_tokens", m.TotalTokens)
	enc.AddInt("attempts", m.Attempts)
	enc.AddInt64("duration_ms", m.Duration.Milliseconds())
	return nil
}
