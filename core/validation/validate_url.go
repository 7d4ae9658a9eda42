package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateEndpointURL validates that a completion endpoint URL has a valid
// format with an http or https scheme. This is a pure function with no side
// effects; reachability is checked separately by the LLMChecker.
//
// Returns nil if the URL is valid, or an error describing the validation failure.
func ValidateEndpointURL(endpointURL string) error {
	endpointURL = strings.TrimSpace(endpointURL)

	if endpointURL == "" {
		return fmt.Errorf("endpoint URL cannot be empty")
	}

	parsedURL, err := url.Parse(endpointURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme, got: %q", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}
