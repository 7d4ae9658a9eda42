package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"adei_backend/logging"
	"adei_backend/metrics"
)

// ErrNoChoices indicates the completion endpoint returned an empty choice list.
var ErrNoChoices = errors.New("no response choices returned from completion endpoint")

// Message is a single conversation turn passed as completion context.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Usage reports token consumption for a completion call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest describes one chat completion call.
type CompletionRequest struct {
	System      string    // System prompt; empty omits the system message
	History     []Message // Prior turns, oldest first
	User        string    // The user message for this turn
	Temperature float64
	MaxTokens   int
}

// CompletionResult holds the model output and call accounting.
type CompletionResult struct {
	Content  string
	Usage    Usage
	Attempts int // 1 when the first attempt succeeded
}

// Completer is the narrow interface consumed by the extraction pipeline and
// the chat agent. *AIClient satisfies it; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// AIClient wraps the OpenAI-compatible completion endpoint with the
// configured model, timeout, and retry policy. It is an organism composed
// from the config atoms and the go-openai client.
type AIClient struct {
	client *openai.Client
	cfg    *Config
	log    *logging.Logger
}

// NewAIClient creates an AIClient from configuration. The endpoint defaults
// to the hosted OpenAI API and is overridden by BaseLLMURL for local
// OpenAI-compatible servers.
func NewAIClient(cfg *Config, log *logging.Logger) *AIClient {
	return &AIClient{
		client: createOpenAIClient(cfg),
		cfg:    cfg,
		log:    log.Named("ai"),
	}
}

// Complete performs a chat completion with the configured retry policy.
// Each attempt gets its own timeout derived from AITimeoutSeconds. Transient
// failures are retried up to MaxRetries times with RetryDelay between
// attempts; the last error is returned when all attempts fail.
func (c *AIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	attempts := c.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.AITimeout())
		resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       c.cfg.Model,
			Messages:    messages,
			Temperature: float32(req.Temperature),
			MaxTokens:   req.MaxTokens,
		})
		cancel()

		if err != nil {
			lastErr = err
			c.log.Warnw("Chat completion attempt failed",
				"attempt", attempt,
				"max_attempts", attempts,
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err.Error(),
			)
			if attempt < attempts {
				if waitErr := sleepContext(ctx, c.cfg.RetryDelay()); waitErr != nil {
					return nil, fmt.Errorf("chat completion canceled during retry wait: %w", waitErr)
				}
			}
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = ErrNoChoices
			continue
		}

		result := &CompletionResult{
			Content: resp.Choices[0].Message.Content,
			Usage: Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
			Attempts: attempt,
		}
		metrics.RecordLLMCallLatency(time.Since(start).Seconds() * 1000)
		metrics.RecordLLMTokens(result.Usage.PromptTokens, result.Usage.CompletionTokens)
		c.log.Debug("Chat completion succeeded",
			append(
				logging.TokenFields(result.Usage.PromptTokens, result.Usage.CompletionTokens, result.Usage.TotalTokens),
				logging.TimingFields(start, time.Now())...,
			)...,
		)
		return result, nil
	}

	return nil, fmt.Errorf("chat completion failed after %d attempts: %w", attempts, lastErr)
}

// ListModels queries the endpoint's model catalog. Used by the startup
// validation suite as a cheap reachability probe.
func (c *AIClient) ListModels(ctx context.Context) ([]string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.AITimeout())
	defer cancel()

	list, err := c.client.ListModels(callCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// GenerateAIResponse performs a one-shot completion with a bare user prompt.
// Convenience for callers that do not hold an AIClient.
func GenerateAIResponse(ctx context.Context, cfg *Config, log *logging.Logger, prompt string) (string, error) {
	client := NewAIClient(cfg, log)
	result, err := client.Complete(ctx, CompletionRequest{
		User:        prompt,
		Temperature: cfg.ChatTemperature,
		MaxTokens:   cfg.ChatMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate AI response: %w", err)
	}
	return result.Content, nil
}

func createOpenAIClient(cfg *Config) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)

	if cfg.BaseLLMURL != "" {
		clientConfig.BaseURL = cfg.BaseLLMURL
	}

	// Client-level timeout stays above the per-call context timeout so the
	// context is what actually cancels a slow call.
	clientConfig.HTTPClient = GetHTTPClient(cfg, cfg.AITimeout()+5*time.Second)

	return openai.NewClientWithConfig(clientConfig)
}

// sleepContext waits for the duration or until the context is done,
// whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
