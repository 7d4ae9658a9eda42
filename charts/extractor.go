// Package charts turns chat answers into bar chart images.
//
// extractor.go implements the ChartExtractor molecule that asks the LLM
// whether an answer contains chartable data. The reply contract is strict
// JSON; core.DecodeJSONInto locates the object in the reply and a failed
// decode earns exactly one retry with the parse error fed back.
package charts

import (
	"context"
	"errors"
	"fmt"

	"adei_backend/core"
	"adei_backend/logging"
)

// ErrUnparsableChart is returned when the LLM reply cannot be decoded into
// a valid chart payload even after the retry.
var ErrUnparsableChart = errors.New("LLM reply could not be parsed into a chart payload")

// chartSystemPrompt instructs the model to act as a chart data extractor.
// "Not chartable" is a first-class outcome: single figures, yes/no answers
// and prose must not be forced into a chart.
const chartSystemPrompt = `You decide whether a chatbot answer about the OIC Digital Economy Index contains data worth plotting as a bar chart.
An answer is chartable when it compares several numerical values, such as scores or ranks across countries or pillars.
A single number, a yes/no answer or plain prose is not chartable.
You must format the output strictly as a JSON object that adheres to the schema provided below.`

// chartFormatInstructions describes the chart payload schema the reply must
// conform to. It is appended to every extraction prompt.
const chartFormatInstructions = `The output must be a single JSON object conforming to this schema:

{
  "chartable": boolean,
  "title": string,
  "data": [
    {"label": string, "value": number}
  ]
}

Set "chartable" to true only if the text contains data suitable for a bar chart, otherwise false.
"title" is a descriptive title for the chart (e.g., "Top 5 Countries by Innovation Score").
Each data point has a "label" (e.g., a country name) and a numerical "value" (e.g., a score).
Include at most 12 data points, all from the answer text. When "chartable" is false, use an empty title and an empty data list.
Do not wrap the JSON in markdown fences or add commentary.`

// ChartExtractorConfig holds the LLM parameters for the chartable check.
type ChartExtractorConfig struct {
	// Temperature for extraction calls. Low values keep the model from
	// inventing values that are not in the answer.
	Temperature float64

	// MaxTokens is the completion budget. A twelve-point payload fits in a
	// few hundred tokens.
	MaxTokens int
}

// DefaultChartExtractorConfig returns the parameters the chartable check
// was tuned with: temperature 0.1, 1024 completion tokens.
func DefaultChartExtractorConfig() ChartExtractorConfig {
	return ChartExtractorConfig{
		Temperature: 0.1,
		MaxTokens:   1024,
	}
}

// ChartExtractionResult contains one chartable-check outcome.
type ChartExtractionResult struct {
	// Chart is the decoded and validated payload. Chart.Chartable false
	// means the answer had nothing to plot; that is a success, not an error.
	Chart *ChartData

	// RawResponse is the LLM reply the payload was decoded from.
	RawResponse string

	// Usage is the token usage across the call, including the retry if one
	// was needed.
	Usage core.Usage

	// Retried is true when the first reply failed to decode and the payload
	// came from the retry.
	Retried bool
}

// ChartExtractor asks the LLM whether an answer carries chartable data.
//
// Thread-Safety:
//   - safe for concurrent use; all state is read-only after construction
type ChartExtractor struct {
	config    ChartExtractorConfig
	completer core.Completer
	log       *logging.Logger
}

// NewChartExtractor creates a ChartExtractor using the given completion
// client. Pass logging.NewNopLogger() to silence it.
func NewChartExtractor(config ChartExtractorConfig, completer core.Completer, log *logging.Logger) *ChartExtractor {
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultChartExtractorConfig().MaxTokens
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ChartExtractor{
		config:    config,
		completer: completer,
		log:       log.Named("charts"),
	}
}

// ExtractChartData asks the model whether answer contains chartable data.
// question gives the model the context the answer was written for. The
// reply must decode into a valid chart payload; a reply that does not is
// retried once with the parse error appended to the prompt, and a second
// failure returns ErrUnparsableChart wrapped with the final parse error.
//
// Example:
//
//	extractor := NewChartExtractor(DefaultChartExtractorConfig(), client, log)
//	result, err := extractor.ExtractChartData(ctx, question, answer)
//	if err != nil {
//	    return err
//	}
//	if result.Chart.Chartable {
//	    png, err := RenderBarChart(result.Chart, DefaultRenderConfig())
//	    ...
//	}
func (e *ChartExtractor) ExtractChartData(ctx context.Context, question, answer string) (*ChartExtractionResult, error) {
	prompt := buildChartPrompt(question, answer)

	completion, err := e.completer.Complete(ctx, core.CompletionRequest{
		System:      chartSystemPrompt,
		User:        prompt,
		Temperature: e.config.Temperature,
		MaxTokens:   e.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chartable check: %w", err)
	}

	result := &ChartExtractionResult{
		RawResponse: completion.Content,
		Usage:       completion.Usage,
	}

	chart, decodeErr := decodeChart(completion.Content)
	if decodeErr == nil {
		result.Chart = chart
		return result, nil
	}

	e.log.Warnw("chart reply failed to decode, retrying",
		"error", decodeErr.Error(),
	)

	retryCompletion, err := e.completer.Complete(ctx, core.CompletionRequest{
		System:      chartSystemPrompt,
		User:        chartRetryPrompt(prompt, decodeErr),
		Temperature: e.config.Temperature,
		MaxTokens:   e.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chartable check retry: %w", err)
	}

	result.RawResponse = retryCompletion.Content
	result.Usage = addUsage(completion.Usage, retryCompletion.Usage)
	result.Retried = true

	chart, decodeErr = decodeChart(retryCompletion.Content)
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableChart, decodeErr)
	}
	result.Chart = chart
	return result, nil
}

// buildChartPrompt assembles the question/answer/format-instructions prompt.
func buildChartPrompt(question, answer string) string {
	return fmt.Sprintf("QUESTION:\n%s\n\nANSWER:\n%s\n\nFORMAT INSTRUCTIONS:\n%s",
		question, answer, chartFormatInstructions)
}

// chartRetryPrompt appends the decode failure to the original prompt so the
// model can correct its reply.
func chartRetryPrompt(prompt string, decodeErr error) string {
	return fmt.Sprintf("%s\n\nYour previous reply could not be parsed: %v.\nRespond again with only the corrected JSON object.",
		prompt, decodeErr)
}

// decodeChart decodes an LLM reply into a validated chart payload.
func decodeChart(reply string) (*ChartData, error) {
	var chart ChartData
	if err := core.DecodeJSONInto(reply, &chart); err != nil {
		return nil, err
	}
	if err := chart.Validate(); err != nil {
		return nil, err
	}
	return &chart, nil
}

// addUsage accumulates token usage across calls.
func addUsage(a, b core.Usage) core.Usage {
	return core.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}
