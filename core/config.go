package core

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileEnvVar names the environment variable that points at an optional
// YAML configuration file. When unset, configuration comes from defaults and
// ADEI_-prefixed environment variables only.
const ConfigFileEnvVar = "ADEI_CONFIG_FILE"

// EnvPrefix is the prefix for all ADEI environment variables.
// ADEI_PORT maps to the "port" key, ADEI_CHUNK_SIZE to "chunk_size", etc.
const EnvPrefix = "ADEI_"

// Config holds all configuration values for the ADEI Explorer backend.
type Config struct {
	// LLM API configuration
	OpenAIAPIKey      string  `koanf:"openai_api_key"`     // API key for the completion endpoint (also read from OPENAI_API_KEY)
	BaseLLMURL        string  `koanf:"base_llm_url"`       // OpenAI-compatible base URL; empty uses the standard OpenAI API
	Model             string  `koanf:"model"`              // Completion model identifier
	AITimeoutSeconds  int     `koanf:"ai_timeout_seconds"` // Per-request timeout for LLM calls
	MaxRetries        int     `koanf:"max_retries"`        // Retry attempts for transient LLM failures
	RetryDelaySeconds int     `koanf:"retry_delay_seconds"`

	// Extraction pipeline configuration
	PDFPath               string  `koanf:"pdf_path"`       // Annual index report PDF
	JSONPath              string  `koanf:"json_path"`      // Extracted country records (pipeline output)
	XLSXPath              string  `koanf:"xlsx_path"`      // Official scores workbook
	SheetName             string  `koanf:"sheet_name"`     // Worksheet holding the scores table
	StructurePath         string  `koanf:"structure_path"` // Optional YAML pillar structure override
	ChunkSize             int     `koanf:"chunk_size"`     // Characters per section chunk
	ChunkOverlap          int     `koanf:"chunk_overlap"`  // Overlap between adjacent chunks
	ExtractionMaxTokens   int     `koanf:"extraction_max_tokens"`
	ExtractionTemperature float64 `koanf:"extraction_temperature"`
	MaxConcurrent         int     `koanf:"max_concurrent"` // Country sections extracted in parallel

	// Storage configuration
	DatabasePath  string `koanf:"database_path"`  // SQLite database file
	MigrationsDir string `koanf:"migrations_dir"` // Schema migration directory
	DataDir       string `koanf:"data_dir"`       // Root for raw and processed data files

	// Web UI configuration
	Host                   string `koanf:"host"`
	Port                   int    `koanf:"port"`
	WebUIPassword          string `koanf:"webui_password"`
	AllowSelfSignedCerts   bool   `koanf:"allow_self_signed_certs"`
	ReadTimeoutSeconds     int    `koanf:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `koanf:"write_timeout_seconds"` // Generous: chat responses wait on the LLM
	ShutdownTimeoutSeconds int    `koanf:"shutdown_timeout_seconds"`

	// Chat agent configuration
	ChatMaxTokens    int     `koanf:"chat_max_tokens"`
	ChatTemperature  float64 `koanf:"chat_temperature"`
	ChatHistoryLimit int     `koanf:"chat_history_limit"` // Prior messages included as context

	// Chat rate limiting, applied per client IP on the chat endpoints
	ChatRatePerMinute int `koanf:"chat_rate_per_minute"` // Sustained questions per minute
	ChatRateBurst     int `koanf:"chat_rate_burst"`      // Questions allowed in a burst

	// Logging configuration
	LogFilePath string `koanf:"log_file_path"`
	Development bool   `koanf:"development"` // Colored console logs, debug level
}

// DefaultConfig returns a Config populated with defaults suitable for a
// local deployment. LoadConfig layers file and environment values on top.
func DefaultConfig() *Config {
	return &Config{
		Model:             "gpt-4o-mini",
		AITimeoutSeconds:  120,
		MaxRetries:        3,
		RetryDelaySeconds: 2,

		PDFPath:               "data/raw/adei_report.pdf",
		JSONPath:              "data/processed/oic_digital_economy_index.json",
		XLSXPath:              "data/raw/adei_scores.xlsx",
		SheetName:             "Sheet1",
		ChunkSize:             1000,
		ChunkOverlap:          100,
		ExtractionMaxTokens:   8192,
		ExtractionTemperature: 0.1,
		MaxConcurrent:         3,

		DatabasePath:  "data/processed/digital_economy.db",
		MigrationsDir: "db/migrations",
		DataDir:       "data",

		Host:                   "0.0.0.0",
		Port:                   8080,
		ReadTimeoutSeconds:     15,
		WriteTimeoutSeconds:    120,
		ShutdownTimeoutSeconds: 10,

		ChatMaxTokens:    2048,
		ChatTemperature:  0.1,
		ChatHistoryLimit: 20,

		ChatRatePerMinute: 12,
		ChatRateBurst:     5,

		LogFilePath: "logs/adei.log",
	}
}

// LoadConfig builds the configuration by layering, lowest to highest
// precedence: defaults, an optional YAML file named by ADEI_CONFIG_FILE,
// and ADEI_-prefixed environment variables. OPENAI_API_KEY is honored
// unprefixed as a fallback since that is where most tooling puts it.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(ConfigFileEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// ADEI_CHUNK_SIZE -> chunk_size, matching the koanf tags above.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := *DefaultConfig()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = os.Getenv("OPENAI_KEY") // Legacy support
	}
	if cfg.WebUIPassword == "" {
		cfg.WebUIPassword = os.Getenv("WEBUI_PWD") // Legacy support
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks value coherence and reports every problem at once.
// Requiredness of the API key and UI password is per-command and checked
// by the validation suite, not here.
func (c *Config) Validate() error {
	var problems []string

	if c.ChunkSize < 1 {
		problems = append(problems, fmt.Sprintf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 {
		problems = append(problems, fmt.Sprintf("chunk_overlap must not be negative, got %d", c.ChunkOverlap))
	}
	if c.ChunkSize > 0 && c.ChunkOverlap >= c.ChunkSize {
		problems = append(problems, fmt.Sprintf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize))
	}
	if c.ExtractionMaxTokens < 1 {
		problems = append(problems, fmt.Sprintf("extraction_max_tokens must be positive, got %d", c.ExtractionMaxTokens))
	}
	if c.ExtractionTemperature < 0 || c.ExtractionTemperature > 2 {
		problems = append(problems, fmt.Sprintf("extraction_temperature must be between 0 and 2, got %.2f", c.ExtractionTemperature))
	}
	if c.ChatTemperature < 0 || c.ChatTemperature > 2 {
		problems = append(problems, fmt.Sprintf("chat_temperature must be between 0 and 2, got %.2f", c.ChatTemperature))
	}
	if c.MaxConcurrent < 1 {
		problems = append(problems, fmt.Sprintf("max_concurrent must be at least 1, got %d", c.MaxConcurrent))
	}
	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.MaxRetries < 0 {
		problems = append(problems, fmt.Sprintf("max_retries must not be negative, got %d", c.MaxRetries))
	}
	if c.ChatHistoryLimit < 0 {
		problems = append(problems, fmt.Sprintf("chat_history_limit must not be negative, got %d", c.ChatHistoryLimit))
	}
	if c.ChatRatePerMinute < 1 {
		problems = append(problems, fmt.Sprintf("chat_rate_per_minute must be positive, got %d", c.ChatRatePerMinute))
	}
	if c.ChatRateBurst < 1 {
		problems = append(problems, fmt.Sprintf("chat_rate_burst must be positive, got %d", c.ChatRateBurst))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// AITimeout returns the per-request LLM timeout.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

// RetryDelay returns the delay between LLM retry attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// ReadTimeout returns the HTTP server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the HTTP server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the deadline for graceful shutdown handlers.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// ListenAddr returns the host:port address for the web server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UsesHostedEndpoint reports whether LLM calls go to the hosted OpenAI API,
// which always requires an API key. Local OpenAI-compatible servers
// typically accept any key.
func (c *Config) UsesHostedEndpoint() bool {
	return c.BaseLLMURL == ""
}

// GetHTTPClient returns an HTTP client configured with TLS settings based on AllowSelfSignedCerts.
// This should be used for all HTTP requests to external APIs to ensure TLS configuration is respected.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}

// GetDefaultHTTPClient returns an HTTP client with default timeout (30s) configured with TLS settings.
func GetDefaultHTTPClient(cfg *Config) *http.Client {
	return GetHTTPClient(cfg, 30*time.Second)
}
