package validation

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"adei_backend/core"
)

// ValidationStep represents a single validation step with its status.
type ValidationStep struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

// StepStatus represents the status of a validation step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepPassed
	StepFailed
	StepWarning
	StepSkipped
)

// String returns the string representation of a step status.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepWarning:
		return "warning"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SuiteResult represents the complete result of validation suite execution.
type SuiteResult struct {
	Steps       []ValidationStep
	TotalSteps  int
	PassedSteps int
	FailedSteps int
	Warnings    int
	Duration    time.Duration
	Success     bool
}

// ValidationSuite orchestrates all validation molecules for complete startup
// validation. This is an organism that composes ConfigValidator,
// DatabaseChecker, and LLMChecker to provide comprehensive validation with
// progress output. It backs the validate command and runs at serve boot.
type ValidationSuite struct {
	output          io.Writer
	configValidator *ConfigValidator
	databaseChecker *DatabaseChecker
	llmChecker      *LLMChecker
	timeout         time.Duration
	showProgress    bool
	failFast        bool
}

// NewValidationSuite creates a new ValidationSuite over the given configuration.
func NewValidationSuite(cfg *core.Config) *ValidationSuite {
	return &ValidationSuite{
		output:          os.Stdout,
		configValidator: NewConfigValidator(cfg),
		databaseChecker: NewDatabaseChecker(cfg.DatabasePath, cfg.MigrationsDir),
		llmChecker:      NewLLMChecker(cfg),
		timeout:         30 * time.Second,
		showProgress:    true,
		failFast:        false,
	}
}

// WithOutput sets the output writer for progress messages.
func (s *ValidationSuite) WithOutput(w io.Writer) *ValidationSuite {
	s.output = w
	return s
}

// WithTimeout sets the timeout for the network and database checks.
func (s *ValidationSuite) WithTimeout(timeout time.Duration) *ValidationSuite {
	s.timeout = timeout
	s.databaseChecker.WithTimeout(timeout)
	return s
}

// WithShowProgress enables or disables progress output.
func (s *ValidationSuite) WithShowProgress(show bool) *ValidationSuite {
	s.showProgress = show
	return s
}

// WithFailFast stops validation on first hard failure if enabled.
// Warnings never trigger fail-fast.
func (s *ValidationSuite) WithFailFast(failFast bool) *ValidationSuite {
	s.failFast = failFast
	return s
}

// WithEnvPath sets a custom path for the .env file.
func (s *ValidationSuite) WithEnvPath(path string) *ValidationSuite {
	s.configValidator.WithEnvPath(path)
	return s
}

// Validate runs all validation checks in sequence with progress output:
// configuration, filesystem, database, and finally the LLM endpoint.
// Returns a SuiteResult with complete validation results.
func (s *ValidationSuite) Validate(ctx context.Context) SuiteResult {
	startTime := time.Now()
	steps := make([]ValidationStep, 0, 10)

	if s.showProgress {
		s.printHeader("ADEI Explorer Startup Validation")
	}

	configChecks := []struct {
		name string
		fn   func() ValidationResult
	}{
		{"Environment File", s.configValidator.CheckEnvFile},
		{"LLM Endpoint URL", s.configValidator.CheckEndpointURL},
		{"API Key", s.configValidator.CheckAPIKey},
		{"Web UI Password", s.configValidator.CheckWebUIPassword},
		{"Data Directory", s.configValidator.CheckDataDirectory},
		{"Disk Space", s.configValidator.CheckDiskSpace},
	}

	for _, check := range configChecks {
		step := s.runStep(check.name, check.fn)
		steps = append(steps, step)
		if s.failFast && step.Status == StepFailed {
			return s.finish(steps, startTime)
		}
	}

	// Database checks: schema and dataset only make sense once the file opens
	dbStep := s.runStep("Database", s.databaseChecker.CheckDatabaseFile)
	steps = append(steps, dbStep)
	if s.failFast && dbStep.Status == StepFailed {
		return s.finish(steps, startTime)
	}

	if dbStep.Status == StepPassed {
		step := s.runStep("Schema Migrations", s.databaseChecker.CheckSchemaVersion)
		steps = append(steps, step)
		if s.failFast && step.Status == StepFailed {
			return s.finish(steps, startTime)
		}

		step = s.runStep("Dataset", s.databaseChecker.CheckDatasetCounts)
		steps = append(steps, step)
		if s.failFast && step.Status == StepFailed {
			return s.finish(steps, startTime)
		}
	} else {
		steps = append(steps, s.skipStep("Schema Migrations", "Skipped: database unavailable"))
		steps = append(steps, s.skipStep("Dataset", "Skipped: database unavailable"))
	}

	// LLM endpoint check: pointless when the endpoint config already failed
	if stepFailed(steps, "LLM Endpoint URL") || stepFailed(steps, "API Key") {
		steps = append(steps, s.skipStep("LLM Endpoint", "Skipped due to configuration errors"))
	} else {
		step := s.runStep("LLM Endpoint", func() ValidationResult {
			probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			result := s.llmChecker.CheckEndpoint(probeCtx)
			msg := result.Message
			if result.Reachable && result.Latency > 0 {
				msg = fmt.Sprintf("%s (latency: %v)", msg, result.Latency.Round(time.Millisecond))
			}
			return ValidationResult{
				Valid:   result.Reachable && !result.Warning,
				Warning: result.Warning,
				Message: msg,
				Error:   result.Error,
			}
		})
		steps = append(steps, step)
	}

	return s.finish(steps, startTime)
}

// ValidateQuick runs only the configuration and filesystem checks, no network
// or database access. Useful before the pipeline commands, which create the
// database themselves.
func (s *ValidationSuite) ValidateQuick() SuiteResult {
	startTime := time.Now()
	steps := make([]ValidationStep, 0, 6)

	if s.showProgress {
		s.printHeader("Quick Configuration Check")
	}

	checks := []struct {
		name string
		fn   func() ValidationResult
	}{
		{"Environment File", s.configValidator.CheckEnvFile},
		{"LLM Endpoint URL", s.configValidator.CheckEndpointURL},
		{"API Key", s.configValidator.CheckAPIKey},
		{"Data Directory", s.configValidator.CheckDataDirectory},
		{"Disk Space", s.configValidator.CheckDiskSpace},
	}

	for _, check := range checks {
		step := s.runStep(check.name, check.fn)
		steps = append(steps, step)
		if s.failFast && step.Status == StepFailed {
			break
		}
	}

	return s.finish(steps, startTime)
}

// runStep executes a validation step with timing and progress output.
func (s *ValidationSuite) runStep(name string, fn func() ValidationResult) ValidationStep {
	step := ValidationStep{Name: name, Status: StepRunning}

	if s.showProgress {
		s.printStepStart(name)
	}

	startTime := time.Now()
	result := fn()
	step.Latency = time.Since(startTime)
	step.Message = result.Message
	step.Error = result.Error

	switch {
	case result.Valid:
		step.Status = StepPassed
	case result.Warning:
		step.Status = StepWarning
	default:
		step.Status = StepFailed
	}

	if s.showProgress {
		s.printStep(step)
	}

	return step
}

// skipStep records a skipped step and prints it.
func (s *ValidationSuite) skipStep(name, reason string) ValidationStep {
	step := ValidationStep{
		Name:    name,
		Status:  StepSkipped,
		Message: reason,
	}
	if s.showProgress {
		s.printStep(step)
	}
	return step
}

// stepFailed reports whether a named step exists and failed.
func stepFailed(steps []ValidationStep, name string) bool {
	for _, step := range steps {
		if step.Name == name && step.Status == StepFailed {
			return true
		}
	}
	return false
}

// finish builds the SuiteResult and prints the summary.
func (s *ValidationSuite) finish(steps []ValidationStep, startTime time.Time) SuiteResult {
	result := SuiteResult{
		Steps:      steps,
		TotalSteps: len(steps),
		Duration:   time.Since(startTime),
		Success:    true,
	}

	for _, step := range steps {
		switch step.Status {
		case StepPassed:
			result.PassedSteps++
		case StepFailed:
			result.FailedSteps++
			result.Success = false
		case StepWarning:
			result.Warnings++
		}
	}

	if s.showProgress {
		s.printSummary(result)
	}

	return result
}

// printHeader prints a validation header.
func (s *ValidationSuite) printHeader(title string) {
	fmt.Fprintln(s.output)
	headerColor := color.New(color.FgCyan, color.Bold)
	headerColor.Fprintf(s.output, "━━━ %s ━━━\n", title)
	fmt.Fprintln(s.output)
}

// printStepStart prints the step name before execution (for real-time feedback).
func (s *ValidationSuite) printStepStart(name string) {
	fmt.Fprintf(s.output, "  ◌ %s...", name)
}

// printStep prints a completed validation step with status indicator.
func (s *ValidationSuite) printStep(step ValidationStep) {
	var icon string
	var clr *color.Color

	switch step.Status {
	case StepPassed:
		icon = "✓"
		clr = color.New(color.FgGreen)
	case StepFailed:
		icon = "✗"
		clr = color.New(color.FgRed)
	case StepWarning:
		icon = "!"
		clr = color.New(color.FgYellow)
	case StepSkipped:
		icon = "○"
		clr = color.New(color.FgHiBlack)
	default:
		icon = "?"
		clr = color.New(color.FgWhite)
	}

	// Clear the "running" line and print result
	fmt.Fprintf(s.output, "\r")
	clr.Fprintf(s.output, "  %s %s", icon, step.Name)

	// Add message if present
	if step.Message != "" {
		dim := color.New(color.FgHiBlack)
		dim.Fprintf(s.output, " - %s", step.Message)
	}

	fmt.Fprintln(s.output)

	// Print error details for failed steps
	if step.Status == StepFailed && step.Error != nil {
		errColor := color.New(color.FgRed)
		errColor.Fprintf(s.output, "    └─ %s\n", step.Error.Error())
	}
}

// printSummary prints the validation summary.
func (s *ValidationSuite) printSummary(result SuiteResult) {
	fmt.Fprintln(s.output)

	if result.Success {
		successColor := color.New(color.FgGreen, color.Bold)
		successColor.Fprintf(s.output, "━━━ Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d/%d checks passed in %v)",
			result.PassedSteps, result.TotalSteps, result.Duration.Round(time.Millisecond))
		successColor.Fprintln(s.output, " ━━━")
	} else {
		failColor := color.New(color.FgRed, color.Bold)
		failColor.Fprintf(s.output, "━━━ Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d failed)",
			result.PassedSteps, result.FailedSteps)
		failColor.Fprintln(s.output, " ━━━")
	}

	fmt.Fprintln(s.output)
}

// OK reports whether validation succeeded. In strict mode warnings count as
// failures; that is what the validate command's --strict flag maps to.
func (r SuiteResult) OK(strict bool) bool {
	if !r.Success {
		return false
	}
	if strict && r.Warnings > 0 {
		return false
	}
	return true
}

// GetErrors returns all errors from failed steps. Errors attached to warning
// steps are not included.
func (r SuiteResult) GetErrors() []error {
	errors := make([]error, 0)
	for _, step := range r.Steps {
		if step.Status == StepFailed && step.Error != nil {
			errors = append(errors, step.Error)
		}
	}
	return errors
}

// GetFirstError returns the first error from failed steps, or nil if none failed.
func (r SuiteResult) GetFirstError() error {
	for _, step := range r.Steps {
		if step.Status == StepFailed && step.Error != nil {
			return step.Error
		}
	}
	return nil
}

// Summary returns a human-readable summary string.
func (r SuiteResult) Summary() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Validation %s: ", map[bool]string{true: "Passed", false: "Failed"}[r.Success]))
	sb.WriteString(fmt.Sprintf("%d/%d checks passed", r.PassedSteps, r.TotalSteps))
	if r.FailedSteps > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed", r.FailedSteps))
	}
	if r.Warnings > 0 {
		sb.WriteString(fmt.Sprintf(", %d warnings", r.Warnings))
	}
	sb.WriteString(fmt.Sprintf(" (took %v)", r.Duration.Round(time.Millisecond)))
	return sb.String()
}
