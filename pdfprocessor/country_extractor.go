// Package pdfprocessor turns the annual ADEI report PDF into the JSON country
// dataset.
//
// country_extractor.go implements the CountryExtractor molecule that asks the
// LLM for one country's structured record. It composes:
//   - sections.go: SectionContext for the per-country context block
//   - atoms.go: TruncateTextWithEllipsis for log previews
//
// The reply contract is strict JSON; core.DecodeJSONInto locates the object
// in the reply and a failed decode earns exactly one retry with the parse
// error fed back.
package pdfprocessor

import (
	"context"
	"errors"
	"fmt"

	"adei_backend/adei"
	"adei_backend/core"
	"adei_backend/logging"
)

// ErrUnparsableReply is returned when the LLM reply cannot be decoded into a
// valid country record even after the retry.
var ErrUnparsableReply = errors.New("LLM reply could not be parsed into a country record")

// extractionSystemPrompt instructs the model to behave as a data extraction
// system and emit schema-conformant JSON. The nine-pillar reminder keeps
// long replies from stopping early.
const extractionSystemPrompt = `You are an expert data extraction system. Your task is to extract detailed information from the provided document context based on the user's question.
Ensure you extract all nine pillars detailed in the context. Do not stop until all data for the requested country is included.
You must format the output strictly as a JSON object that adheres to the schema provided below.`

// formatInstructions describes the country record schema the reply must
// conform to. It is appended to every extraction prompt.
const formatInstructions = `The output must be a single JSON object conforming to this schema:

{
  "country_name": string,
  "overall_adei_score": integer,
  "overall_adei_rank": integer,
  "dimension_summary": [
    {"dimension": string, "pillar": string, "value": integer, "rank": integer}
  ],
  "detailed_pillars": [
    {
      "pillar_name": string,
      "total_pillar_score": number,
      "sub_pillars": [{"name": string, "score": number}]
    }
  ]
}

Scores in dimension_summary are integers; pillar and sub-pillar scores are
numbers with up to two decimals. Include every pillar and sub-pillar present
in the context. Do not wrap the JSON in markdown fences or add commentary.`

// CountryExtractorConfig holds the LLM parameters for structured extraction.
type CountryExtractorConfig struct {
	// Temperature for extraction calls. Low values keep the model from
	// paraphrasing numbers.
	Temperature float64

	// MaxTokens is the completion budget. A full nine-pillar record for a
	// country runs several thousand tokens.
	MaxTokens int
}

// DefaultCountryExtractorConfig returns the parameters extraction was tuned
// with: temperature 0.1, 8192 completion tokens.
func DefaultCountryExtractorConfig() CountryExtractorConfig {
	return CountryExtractorConfig{
		Temperature: 0.1,
		MaxTokens:   8192,
	}
}

// CountryExtractionResult contains one successful extraction.
type CountryExtractionResult struct {
	// Record is the decoded and validated country record.
	Record *adei.CountryData

	// RawResponse is the LLM reply the record was decoded from.
	RawResponse string

	// Usage is the token usage across the call, including the retry if one
	// was needed.
	Usage core.Usage

	// Retried is true when the first reply failed to decode and the record
	// came from the retry.
	Retried bool
}

// CountryExtractor asks the LLM for one country's structured index record.
//
// Thread-Safety:
//   - safe for concurrent use; all state is read-only after construction
type CountryExtractor struct {
	config    CountryExtractorConfig
	completer core.Completer
	log       *logging.Logger
}

// NewCountryExtractor creates a CountryExtractor using the given completion
// client. Pass logging.NewNopLogger() to silence it.
func NewCountryExtractor(config CountryExtractorConfig, completer core.Completer, log *logging.Logger) *CountryExtractor {
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultCountryExtractorConfig().MaxTokens
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CountryExtractor{
		config:    config,
		completer: completer,
		log:       log.Named("extract"),
	}
}

// ExtractCountry requests the structured record for country from the LLM,
// using contextText as the document context. The reply must decode into a
// valid country record; a reply that does not is retried once with the parse
// error appended to the prompt, and a second failure returns
// ErrUnparsableReply wrapped with the final parse error.
//
// Example:
//
//	extractor := NewCountryExtractor(DefaultCountryExtractorConfig(), client, log)
//	result, err := extractor.ExtractCountry(ctx, "Malaysia", sectionText)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Record.OverallADEIScore)
func (e *CountryExtractor) ExtractCountry(ctx context.Context, country, contextText string) (*CountryExtractionResult, error) {
	prompt := e.buildPrompt(country, contextText)

	completion, err := e.completer.Complete(ctx, core.CompletionRequest{
		System:      extractionSystemPrompt,
		User:        prompt,
		Temperature: e.config.Temperature,
		MaxTokens:   e.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call for %s: %w", country, err)
	}

	result := &CountryExtractionResult{
		RawResponse: completion.Content,
		Usage:       completion.Usage,
	}

	record, decodeErr := e.decodeRecord(country, completion.Content)
	if decodeErr == nil {
		result.Record = record
		return result, nil
	}

	e.log.Warnw("extraction reply failed to decode, retrying",
		"country", country,
		"error", decodeErr.Error(),
		"reply_preview", TruncateTextWithEllipsis(completion.Content, 200),
	)

	retryCompletion, err := e.completer.Complete(ctx, core.CompletionRequest{
		System:      extractionSystemPrompt,
		User:        retryPrompt(prompt, decodeErr),
		Temperature: e.config.Temperature,
		MaxTokens:   e.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction retry for %s: %w", country, err)
	}

	result.RawResponse = retryCompletion.Content
	result.Usage = sumUsage(completion.Usage, retryCompletion.Usage)
	result.Retried = true

	record, decodeErr = e.decodeRecord(country, retryCompletion.Content)
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnparsableReply, country, decodeErr)
	}
	result.Record = record
	return result, nil
}

// buildPrompt assembles the context/question/format-instructions prompt.
func (e *CountryExtractor) buildPrompt(country, contextText string) string {
	question := fmt.Sprintf("Extract the complete digital economy index data for %s from the provided context.", country)
	return fmt.Sprintf("CONTEXT:\n%s\n\nQUESTION:\n%s\n\nFORMAT INSTRUCTIONS:\n%s",
		contextText, question, formatInstructions)
}

// retryPrompt appends the decode failure to the original prompt so the model
// can correct its reply.
func retryPrompt(prompt string, decodeErr error) string {
	return fmt.Sprintf("%s\n\nYour previous reply could not be parsed: %v.\nRespond again with only the corrected JSON object.",
		prompt, decodeErr)
}

// decodeRecord decodes an LLM reply into a validated country record. The
// model occasionally answers for a neighbouring country whose section bleeds
// into the context; that is logged but the record is still returned, since
// the caller keys the dataset on the record's own name.
func (e *CountryExtractor) decodeRecord(country, reply string) (*adei.CountryData, error) {
	var record adei.CountryData
	if err := core.DecodeJSONInto(reply, &record); err != nil {
		return nil, err
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if record.CountryName != country {
		e.log.Warnw("extracted record names a different country",
			"requested", country,
			"extracted", record.CountryName,
		)
	}
	return &record, nil
}

// sumUsage adds token usage across the original call and the retry.
func sumUsage(a, b core.Usage) core.Usage {
	return core.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}
