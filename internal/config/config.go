package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	LinkedIn LinkedInConfig `yaml:"linkedin"`
	Browser  BrowserConfig  `yaml:"browser"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Search   SearchConfig   `yaml:"search"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LinkedInConfig contains LinkedIn credentials
type LinkedInConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// BrowserConfig controls how each session's browser is launched
type BrowserConfig struct {
	Headless     bool   `yaml:"headless"`
	SlowMotionMs int    `yaml:"slow_motion_ms"`
	BinPath      string `yaml:"bin_path"`
	Stealth      bool   `yaml:"stealth"`
}

// WorkflowConfig contains the bounded waits of the connection workflow
type WorkflowConfig struct {
	LoginTimeoutSeconds      int `yaml:"login_timeout_seconds"`
	NavigationTimeoutSeconds int `yaml:"navigation_timeout_seconds"`
	SettleDelayMs            int `yaml:"settle_delay_ms"`
	PreConnectDelayMs        int `yaml:"pre_connect_delay_ms"`
	NoteTimeoutSeconds       int `yaml:"note_timeout_seconds"`
	SendTimeoutSeconds       int `yaml:"send_timeout_seconds"`
}

// SearchConfig contains SerpAPI settings
type SearchConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	MaxResults      int    `yaml:"max_results"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
}

// OpenAIConfig contains message generation settings
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Addr                  string `yaml:"addr"`
	MaxConcurrentSessions int    `yaml:"max_concurrent_sessions"`
	ShutdownTimeoutSec    int    `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level    string `yaml:"level"`
	ToFile   bool   `yaml:"to_file"`
	FilePath string `yaml:"file_path"`
}

// defaultDocument is used when no config file exists, so the process can be
// configured from the environment alone.
const defaultDocument = `
linkedin:
  email: ${LINKEDIN_EMAIL}
  password: ${LINKEDIN_PASSWORD}
browser:
  headless: ${BROWSER_HEADLESS:false}
  slow_motion_ms: 50
  bin_path: ${BROWSER_BIN:}
  stealth: true
workflow:
  login_timeout_seconds: 15
  navigation_timeout_seconds: 30
  settle_delay_ms: 2000
  pre_connect_delay_ms: 1000
  note_timeout_seconds: 5
  send_timeout_seconds: 50
search:
  api_key: ${SERPAPI_KEY}
  base_url: https://serpapi.com/search
  max_results: 3
  timeout_seconds: 30
  cache_ttl_minutes: 60
openai:
  api_key: ${OPENAI_API_KEY}
  base_url: ${OPENAI_BASE_URL:}
  model: ${OPENAI_MODEL:gpt-4}
  temperature: 0.7
  max_tokens: 200
server:
  addr: "${LISTEN_ADDR::8000}"
  max_concurrent_sessions: 2
  shutdown_timeout_seconds: 10
database:
  path: ${DATABASE_PATH:./data/search_cache.db}
logging:
  level: ${LOG_LEVEL:info}
  to_file: false
  file_path: ./logs/linkedin-connect.log
`

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// Load loads configuration from YAML file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if not present)
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		data = []byte(defaultDocument)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse expands environment variables in data, decodes it and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Missing credentials are fatal for the whole process
	if c.LinkedIn.Email == "" {
		return fmt.Errorf("LinkedIn email is required")
	}
	if c.LinkedIn.Password == "" {
		return fmt.Errorf("LinkedIn password is required")
	}
	if c.Search.APIKey == "" {
		return fmt.Errorf("SerpAPI key is required")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}

	w := c.Workflow
	if w.LoginTimeoutSeconds <= 0 || w.NavigationTimeoutSeconds <= 0 ||
		w.NoteTimeoutSeconds <= 0 || w.SendTimeoutSeconds <= 0 {
		return fmt.Errorf("workflow timeouts must be positive")
	}
	if w.SettleDelayMs < 0 || w.PreConnectDelayMs < 0 {
		return fmt.Errorf("workflow delays must be non-negative")
	}
	if c.Browser.SlowMotionMs < 0 {
		return fmt.Errorf("slow_motion_ms must be non-negative")
	}

	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive")
	}
	if c.Search.CacheTTLMinutes < 0 {
		return fmt.Errorf("cache_ttl_minutes must be non-negative")
	}
	if c.OpenAI.MaxTokens <= 0 {
		return fmt.Errorf("openai max_tokens must be positive")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.Server.MaxConcurrentSessions <= 0 {
		return fmt.Errorf("max_concurrent_sessions must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) > 2 {
			return parts[2]
		}
		return ""
	})
}

// LoginTimeout bounds the wait for the post-login landmark.
func (c *Config) LoginTimeout() time.Duration {
	return time.Duration(c.Workflow.LoginTimeoutSeconds) * time.Second
}

// NavigationTimeout bounds the profile page's initial DOM parse.
func (c *Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Workflow.NavigationTimeoutSeconds) * time.Second
}

// SettleDelay returns the fixed pause after profile navigation.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Workflow.SettleDelayMs) * time.Millisecond
}

// PreConnectDelay returns the pause before the connect control is searched.
func (c *Config) PreConnectDelay() time.Duration {
	return time.Duration(c.Workflow.PreConnectDelayMs) * time.Millisecond
}

// NoteTimeout bounds the wait for the "Add a note" affordance.
func (c *Config) NoteTimeout() time.Duration {
	return time.Duration(c.Workflow.NoteTimeoutSeconds) * time.Second
}

// SendTimeout bounds filling the note and activating send.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Workflow.SendTimeoutSeconds) * time.Second
}

// SlowMotion returns the delay rod inserts between browser actions.
func (c *Config) SlowMotion() time.Duration {
	return time.Duration(c.Browser.SlowMotionMs) * time.Millisecond
}

// SearchTimeout bounds a single SerpAPI request.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.Search.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long search results stay cached; zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Search.CacheTTLMinutes) * time.Minute
}

// ShutdownTimeout bounds graceful HTTP shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSec) * time.Second
}
