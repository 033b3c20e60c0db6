package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Browser     BrowserConfig   `toml:"browser"`
	Detection   DetectionConfig `toml:"detection"`
	Auth        AuthConfig      `toml:"auth"`
	LLM         LLMConfig       `toml:"llm"`
	Claude      ClaudeConfig    `toml:"claude"`
	Gemini      GeminiConfig    `toml:"gemini"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// BrowserConfig contains headless Chrome pool configuration
type BrowserConfig struct {
	MaxInstances      int           `toml:"max_instances"`      // Pool size; bounds concurrent browser sessions
	UserAgent         string        `toml:"user_agent"`         // User agent string for page loads
	Headless          bool          `toml:"headless"`           // Run Chrome headless (default: true)
	DisableGPU        bool          `toml:"disable_gpu"`        // Disable GPU acceleration
	NoSandbox         bool          `toml:"no_sandbox"`         // Disable Chrome sandbox (required in most containers)
	NavigationTimeout time.Duration `toml:"navigation_timeout"` // Page navigation timeout
	StabilizeWait     time.Duration `toml:"stabilize_wait"`     // Post-load wait for JavaScript rendering
}

// DetectionConfig contains field detection engine parameters
type DetectionConfig struct {
	ConfidenceThreshold float64       `toml:"confidence_threshold"` // Below this, the refiner is consulted
	MinConfidenceFloor  float64       `toml:"min_confidence_floor"` // Below this, candidates are dropped
	RefineMinElements   int           `toml:"refine_min_elements"`  // Min interactive elements for refining an empty result
	ClassifyTimeout     time.Duration `toml:"classify_timeout"`     // Classification stage timeout
	RefineTimeout       time.Duration `toml:"refine_timeout"`       // Refiner stage timeout
}

// AuthConfig contains authentication probe and session cache configuration
type AuthConfig struct {
	SubmitWait    time.Duration `toml:"submit_wait"`    // Max wait for navigation/landmark after submit
	SessionTTL    time.Duration `toml:"session_ttl"`    // Cached session lifetime
	SweepInterval time.Duration `toml:"sweep_interval"` // Expired session sweep interval ("0" disables sweeping)
}

// LLMConfig selects the refiner completion provider
type LLMConfig struct {
	Provider string `toml:"provider"` // "claude", "gemini", or "disabled"
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model name (default: "claude-haiku-4-5")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "30s")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between calls (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model name (default: "gemini-2.0-flash")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "30s")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between calls (default: "4s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0)
}

// DefaultConfig returns a config populated with defaults suitable for local use
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8085,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout"},
		},
		Browser: BrowserConfig{
			MaxInstances:      3,
			UserAgent:         "Scrutor-FieldDetection/1.0",
			Headless:          true,
			DisableGPU:        true,
			NoSandbox:         true,
			NavigationTimeout: 30 * time.Second,
			StabilizeWait:     2 * time.Second,
		},
		Detection: DetectionConfig{
			ConfidenceThreshold: 0.60,
			MinConfidenceFloor:  0.30,
			RefineMinElements:   5,
			ClassifyTimeout:     5 * time.Second,
			RefineTimeout:       15 * time.Second,
		},
		Auth: AuthConfig{
			SubmitWait:    10 * time.Second,
			SessionTTL:    30 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		LLM: LLMConfig{
			Provider: "disabled",
		},
		Claude: ClaudeConfig{
			Model:     "claude-haiku-4-5",
			MaxTokens: 4096,
			Timeout:   "30s",
			RateLimit: "1s",
		},
		Gemini: GeminiConfig{
			Model:     "gemini-2.0-flash",
			Timeout:   "30s",
			RateLimit: "4s",
		},
	}
}

// LoadFromFiles loads configuration from TOML files with later files overriding
// earlier ones, then applies environment variable overrides.
// Precedence: defaults -> file1 -> file2 -> ... -> env
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// applyEnvOverrides applies SCRUTOR_* environment variable overrides
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("SCRUTOR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("SCRUTOR_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("SCRUTOR_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("SCRUTOR_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.Claude.APIKey == "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && config.Gemini.APIKey == "" {
		config.Gemini.APIKey = v
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Browser.MaxInstances <= 0 {
		return fmt.Errorf("browser.max_instances must be greater than 0, got %d", config.Browser.MaxInstances)
	}
	if config.Detection.ConfidenceThreshold < 0 || config.Detection.ConfidenceThreshold > 1 {
		return fmt.Errorf("detection.confidence_threshold must be in [0,1], got %f", config.Detection.ConfidenceThreshold)
	}
	if config.Detection.MinConfidenceFloor < 0 || config.Detection.MinConfidenceFloor > config.Detection.ConfidenceThreshold {
		return fmt.Errorf("detection.min_confidence_floor must be in [0, confidence_threshold], got %f", config.Detection.MinConfidenceFloor)
	}
	switch provider := strings.ToLower(config.LLM.Provider); provider {
	case "claude", "gemini", "disabled":
	default:
		return fmt.Errorf("invalid llm.provider '%s': must be 'claude', 'gemini', or 'disabled'", config.LLM.Provider)
	}
	return nil
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
