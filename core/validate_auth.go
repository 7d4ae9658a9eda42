package core

import (
	"fmt"
	"strings"
)

// ValidateAPIKey checks that an API key is non-empty and plausibly shaped.
// It does not verify the key with any service; the validation suite's
// endpoint probe does that. No prefix is enforced because OpenAI-compatible
// local endpoints accept arbitrary or dummy keys.
func ValidateAPIKey(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)

	if apiKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	if len(apiKey) < 8 {
		return fmt.Errorf("API key appears invalid: too short (minimum 8 characters)")
	}

	return nil
}
