package core

import (
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeEnvFileMissing      = "ENV_FILE_MISSING"
	ErrCodeInvalidLLMURL       = "INVALID_LLM_URL"
	ErrCodeMissingAuth         = "MISSING_AUTH"
	ErrCodeEndpointUnreachable = "ENDPOINT_UNREACHABLE"
	ErrCodeDataFileMissing     = "DATA_FILE_MISSING"
	ErrCodeDatabaseUnavailable = "DATABASE_UNAVAILABLE"
	ErrCodeMissingConfig       = "MISSING_CONFIG"
)

// ErrEnvFileMissing returns an error for missing .env file
func ErrEnvFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFileMissing,
		Message: fmt.Sprintf("Configuration file not found: %s", path),
		Action:  "Copy example.env to .env and configure the required values",
	}
}

// ErrInvalidLLMURL returns an error for an invalid LLM endpoint URL
func ErrInvalidLLMURL(url string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidLLMURL,
		Message: fmt.Sprintf("Invalid ADEI_BASE_LLM_URL '%s': %s", url, reason),
		Action:  "Set ADEI_BASE_LLM_URL to a valid OpenAI-compatible endpoint (e.g., http://127.0.0.1:1234/v1) or leave it empty for the hosted API",
	}
}

// ErrMissingAuth returns an error for missing authentication credentials
func ErrMissingAuth(service string) *ConfigError {
	var action string
	switch service {
	case "openai":
		action = "Set OPENAI_API_KEY in your .env file (or point ADEI_BASE_LLM_URL at a local server)"
	case "webui":
		action = "Set ADEI_WEBUI_PASSWORD in your .env file"
	default:
		action = fmt.Sprintf("Set the required credentials for %s in your .env file", service)
	}
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("Missing authentication credentials for %s", service),
		Action:  action,
	}
}

// ErrEndpointUnreachable returns an error when the LLM endpoint cannot be reached
func ErrEndpointUnreachable(url string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEndpointUnreachable,
		Message: fmt.Sprintf("Cannot reach completion endpoint at %s: %s", url, reason),
		Action:  "Check that the endpoint URL is correct and the server is running. For self-signed certificates, set ADEI_ALLOW_SELF_SIGNED_CERTS=true",
	}
}

// ErrDataFileMissing returns an error when a required data file is absent
func ErrDataFileMissing(label string, path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeDataFileMissing,
		Message: fmt.Sprintf("%s not found: %s", label, path),
		Action:  "Check the configured path, or run the earlier pipeline stages to produce it",
	}
}

// ErrDatabaseUnavailable returns an error when the SQLite database cannot be opened
func ErrDatabaseUnavailable(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeDatabaseUnavailable,
		Message: fmt.Sprintf("Cannot open database at %s: %s", path, reason),
		Action:  "Check ADEI_DATABASE_PATH and directory permissions, then run 'adei load' to build the database",
	}
}

// ErrMissingConfig returns an error for missing required configuration
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so
func IsConfigError(err error) (*ConfigError, bool) {
	if configErr, ok := err.(*ConfigError); ok {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
