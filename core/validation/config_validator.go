package validation

import (
	"fmt"
	"strings"

	"adei_backend/core"
)

// ValidationResult represents the result of a single validation check.
// Warning marks a check that did not fully pass but should not block startup
// on its own; --strict promotes warnings to failures at the CLI level.
type ValidationResult struct {
	Valid   bool
	Warning bool
	Message string
	Error   error
}

// ConfigValidator composes validation atoms to provide comprehensive
// configuration checking over a loaded Config. This is a molecule that
// orchestrates URL validation, file existence, and credential checks; it
// performs no network calls.
type ConfigValidator struct {
	cfg     *core.Config
	envPath string // Path to .env file (default: ".env")
}

// NewConfigValidator creates a new ConfigValidator for the given configuration.
func NewConfigValidator(cfg *core.Config) *ConfigValidator {
	return &ConfigValidator{
		cfg:     cfg,
		envPath: ".env",
	}
}

// WithEnvPath sets a custom path for the .env file.
func (v *ConfigValidator) WithEnvPath(path string) *ConfigValidator {
	v.envPath = path
	return v
}

// CheckEnvFile reports whether the .env file exists. A missing file is a
// warning, not a failure: configuration can come entirely from environment
// variables and the optional YAML file.
func (v *ConfigValidator) CheckEnvFile() ValidationResult {
	if err := CheckFileExists(v.envPath); err != nil {
		return ValidationResult{
			Valid:   false,
			Warning: true,
			Message: "No " + v.envPath + " file; using environment variables and defaults",
			Error:   core.ErrEnvFileMissing(v.envPath),
		}
	}
	return ValidationResult{
		Valid:   true,
		Message: "Environment file found",
	}
}

// CheckEndpointURL validates the configured LLM endpoint URL. An empty URL
// means the hosted OpenAI API and is always valid.
func (v *ConfigValidator) CheckEndpointURL() ValidationResult {
	if v.cfg.BaseLLMURL == "" {
		return ValidationResult{
			Valid:   true,
			Message: "Using hosted OpenAI API",
		}
	}

	if err := ValidateEndpointURL(v.cfg.BaseLLMURL); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Invalid endpoint URL: " + v.cfg.BaseLLMURL,
			Error:   core.ErrInvalidLLMURL(v.cfg.BaseLLMURL, err.Error()),
		}
	}

	return ValidationResult{
		Valid:   true,
		Message: "Endpoint URL valid: " + v.cfg.BaseLLMURL,
	}
}

// CheckAPIKey validates the completion API key. The hosted OpenAI API always
// requires one; local OpenAI-compatible servers typically accept any key, so
// an empty key against a local endpoint passes.
func (v *ConfigValidator) CheckAPIKey() ValidationResult {
	key := strings.TrimSpace(v.cfg.OpenAIAPIKey)

	if key == "" {
		if v.cfg.UsesHostedEndpoint() {
			return ValidationResult{
				Valid:   false,
				Message: "API key required for the hosted OpenAI API",
				Error:   core.ErrMissingAuth("openai"),
			}
		}
		return ValidationResult{
			Valid:   true,
			Message: "Local endpoint configured; API key optional",
		}
	}

	if err := core.ValidateAPIKey(key); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "API key appears invalid",
			Error:   err,
		}
	}

	return ValidationResult{
		Valid:   true,
		Message: "API key configured",
	}
}

// CheckWebUIPassword reports whether the dashboard access gate is configured.
// An empty password is a warning: the app serves without authentication.
func (v *ConfigValidator) CheckWebUIPassword() ValidationResult {
	if strings.TrimSpace(v.cfg.WebUIPassword) == "" {
		return ValidationResult{
			Valid:   false,
			Warning: true,
			Message: "No UI password set; dashboard runs without authentication",
		}
	}
	return ValidationResult{
		Valid:   true,
		Message: "UI password configured",
	}
}

// CheckDataDirectory verifies the data directory exists (creating it if
// needed) and is writable.
func (v *ConfigValidator) CheckDataDirectory() ValidationResult {
	dir := v.cfg.DataDir
	if dir == "" {
		dir = "data"
	}

	if err := CheckDirWritable(dir); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Data directory not writable: " + dir,
			Error:   err,
		}
	}

	return ValidationResult{
		Valid:   true,
		Message: "Data directory writable: " + dir,
	}
}

// CheckDiskSpace verifies free space on the filesystem holding the data
// directory. Below MinimumFreeBytes fails; below LowSpaceWarningBytes warns.
func (v *ConfigValidator) CheckDiskSpace() ValidationResult {
	dir := v.cfg.DataDir
	if dir == "" {
		dir = "."
	}

	info, err := GetDiskSpace(dir)
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Warning: true,
			Message: "Could not determine disk space",
			Error:   err,
		}
	}

	switch {
	case info.Free < MinimumFreeBytes:
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("Only %s free (minimum %s)", info.FreeFormatted, core.FormatBytes(MinimumFreeBytes)),
			Error: &DiskSpaceError{
				Path:      dir,
				Required:  MinimumFreeBytes,
				Available: info.Free,
				Message: fmt.Sprintf("insufficient disk space at %s: need %s, have %s free",
					dir, core.FormatBytes(MinimumFreeBytes), info.FreeFormatted),
			},
		}
	case info.Free < LowSpaceWarningBytes:
		return ValidationResult{
			Valid:   false,
			Warning: true,
			Message: fmt.Sprintf("Low disk space: %s free", info.FreeFormatted),
		}
	default:
		return ValidationResult{
			Valid:   true,
			Message: fmt.Sprintf("%s free of %s (%.0f%% used)", info.FreeFormatted, info.TotalFormatted, info.UsedPercent),
		}
	}
}

// ValidateAll runs every configuration check and returns all results.
func (v *ConfigValidator) ValidateAll() []ValidationResult {
	return []ValidationResult{
		v.CheckEnvFile(),
		v.CheckEndpointURL(),
		v.CheckAPIKey(),
		v.CheckWebUIPassword(),
		v.CheckDataDirectory(),
		v.CheckDiskSpace(),
	}
}

// ValidateRequired runs only the checks that must pass before the pipeline or
// server can do useful work. Warnings (missing .env, no UI password, low disk)
// do not fail this.
// Returns the first hard validation failure, or nil if all required checks pass.
func (v *ConfigValidator) ValidateRequired() error {
	for _, result := range v.ValidateAll() {
		if !result.Valid && !result.Warning {
			if result.Error != nil {
				return result.Error
			}
			return fmt.Errorf("%s", result.Message)
		}
	}
	return nil
}

// IsValid returns true if all required configuration is valid.
func (v *ConfigValidator) IsValid() bool {
	return v.ValidateRequired() == nil
}

// CountValid returns the number of checks that fully passed.
func (v *ConfigValidator) CountValid() int {
	count := 0
	for _, r := range v.ValidateAll() {
		if r.Valid {
			count++
		}
	}
	return count
}

// CountInvalid returns the number of checks that did not fully pass,
// warnings included.
func (v *ConfigValidator) CountInvalid() int {
	results := v.ValidateAll()
	return len(results) - v.CountValid()
}
