// Package config provides application configuration with multi-source
// priority: environment variables override the config file, which overrides
// defaults.
//
// Sensitive values (database password, auth secret) are never logged;
// MarshalJSON masks them. Validation lives in validation.go and uses
// sentinel errors checked with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported AI providers. "gemini" is accepted as an alias for the
// Google AI provider.
const (
	ProviderGoogleAI = "googleai"
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
)

// Defaults applied when neither environment nor config file set a value.
const (
	DefaultAddr = "127.0.0.1:8080"

	DefaultProvider  = ProviderGoogleAI
	DefaultModelName = "gemini-2.5-flash"

	// DefaultMaxTurns bounds the agentic loop per request.
	DefaultMaxTurns = 10

	// DefaultHistoryLimit is the number of messages loaded as model context.
	DefaultHistoryLimit int32 = 20

	// MaxHistoryLimit is the absolute maximum to prevent unbounded context.
	MaxHistoryLimit int32 = 200

	DefaultRetryMaxAttempts  = 3
	DefaultRetryInitialDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay     = 10 * time.Second
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON. When adding new
// secrets, update MarshalJSON.
type Config struct {
	// HTTP server
	Addr string `mapstructure:"addr" json:"addr"`

	// AI provider and model
	Provider   string `mapstructure:"provider" json:"provider"`     // "googleai" (default), "ollama", "openai"
	ModelName  string `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-flash", "llama3.3", "gpt-4o"
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Agent behavior
	MaxTurns     int   `mapstructure:"max_turns" json:"max_turns"`
	HistoryLimit int32 `mapstructure:"history_limit" json:"history_limit"`

	// Generation-service retry
	RetryMaxAttempts  int           `mapstructure:"retry_max_attempts" json:"retry_max_attempts"`
	RetryInitialDelay time.Duration `mapstructure:"retry_initial_delay" json:"retry_initial_delay"`
	RetryMaxDelay     time.Duration `mapstructure:"retry_max_delay" json:"retry_max_delay"`

	// PostgreSQL
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"`
	PostgresDBName   string `mapstructure:"postgres_dbname" json:"postgres_dbname"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode" json:"postgres_sslmode"`

	// AuthSecret signs and verifies API bearer tokens (HMAC-SHA256).
	AuthSecret string `mapstructure:"auth_secret" json:"-"`

	// Rate limiting for model calls (requests/sec sustained, burst).
	RateLimit float64 `mapstructure:"rate_limit" json:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" json:"rate_burst"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug|info|warn|error
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Tracing (optional; empty endpoint disables export)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
	Environment  string `mapstructure:"environment" json:"environment"`
}

// MarshalJSON masks sensitive fields so Config can be logged safely.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(*c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	if masked.AuthSecret != "" {
		masked.AuthSecret = "***"
	}
	return json.Marshal(masked)
}

// Load reads configuration from environment variables and the optional
// config file (~/.taskpilot/config.yaml), applying defaults last.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("provider", DefaultProvider)
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("max_turns", DefaultMaxTurns)
	v.SetDefault("history_limit", DefaultHistoryLimit)
	v.SetDefault("retry_max_attempts", DefaultRetryMaxAttempts)
	v.SetDefault("retry_initial_delay", DefaultRetryInitialDelay)
	v.SetDefault("retry_max_delay", DefaultRetryMaxDelay)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "taskpilot")
	v.SetDefault("postgres_dbname", "taskpilot")
	v.SetDefault("postgres_sslmode", "disable")
	v.SetDefault("rate_limit", 10.0)
	v.SetDefault("rate_burst", 30)
	v.SetDefault("log_level", "info")
	v.SetDefault("service_name", "taskpilot")
	v.SetDefault("environment", "development")

	v.SetEnvPrefix("TASKPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, ".taskpilot"))
	}
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; environment + defaults suffice.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// PostgresURL returns a postgres:// URL for golang-migrate.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:   fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:   c.PostgresDBName,
	}
	q := u.Query()
	q.Set("sslmode", c.PostgresSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// PostgresConnString returns a keyword/value connection string for pgx.
func (c *Config) PostgresConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword,
		c.PostgresDBName, c.PostgresSSLMode)
}
