package validation

import (
	"context"
	"fmt"
	"time"

	"adei_backend/core"
	"adei_backend/logging"
)

// EndpointResult represents the result of an LLM endpoint reachability check.
type EndpointResult struct {
	Reachable  bool
	Warning    bool
	ModelCount int
	Latency    time.Duration
	Message    string
	Error      error
}

// LLMChecker verifies the completion endpoint is reachable. This is a
// molecule over the AIClient; it uses the model catalog as a cheap probe
// instead of spending tokens on a completion.
type LLMChecker struct {
	cfg *core.Config
}

// NewLLMChecker creates a new LLMChecker for the given configuration.
func NewLLMChecker(cfg *core.Config) *LLMChecker {
	return &LLMChecker{cfg: cfg}
}

// CheckEndpoint lists the endpoint's models and reports reachability.
// A reachable endpoint that does not advertise the configured model is a
// warning, not a failure: local servers often report arbitrary model names
// and serve whatever is loaded.
func (c *LLMChecker) CheckEndpoint(ctx context.Context) EndpointResult {
	client := core.NewAIClient(c.cfg, logging.NewNopLogger())

	startTime := time.Now()
	models, err := client.ListModels(ctx)
	latency := time.Since(startTime)

	if err != nil {
		return EndpointResult{
			Reachable: false,
			Latency:   latency,
			Message:   "Endpoint unreachable",
			Error:     core.ErrEndpointUnreachable(c.endpointLabel(), err.Error()),
		}
	}

	if len(models) > 0 && !containsModel(models, c.cfg.Model) {
		return EndpointResult{
			Reachable:  true,
			Warning:    true,
			ModelCount: len(models),
			Latency:    latency,
			Message:    fmt.Sprintf("Endpoint reachable (%d models) but %q is not advertised", len(models), c.cfg.Model),
		}
	}

	return EndpointResult{
		Reachable:  true,
		ModelCount: len(models),
		Latency:    latency,
		Message:    fmt.Sprintf("Endpoint reachable (%d models)", len(models)),
	}
}

// IsReachable is a convenience function to check if the endpoint responds.
func (c *LLMChecker) IsReachable(ctx context.Context) bool {
	return c.CheckEndpoint(ctx).Reachable
}

// endpointLabel names the endpoint for error messages.
func (c *LLMChecker) endpointLabel() string {
	if c.cfg.BaseLLMURL != "" {
		return c.cfg.BaseLLMURL
	}
	return "https://api.openai.com/v1"
}

func containsModel(models []string, model string) bool {
	for _, m := range models {
		if m == model {
			return true
		}
	}
	return false
}
