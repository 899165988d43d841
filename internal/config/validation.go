package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration validation.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidMaxTurns indicates the turn limit is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidHistoryLimit indicates the history limit is out of range.
	ErrInvalidHistoryLimit = errors.New("invalid history limit")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresSSLMode indicates an unknown sslmode value.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrMissingAuthSecret indicates the auth secret is not set.
	ErrMissingAuthSecret = errors.New("missing auth secret")

	// ErrWeakAuthSecret indicates the auth secret is too short for HMAC use.
	ErrWeakAuthSecret = errors.New("auth secret too short")

	// ErrInvalidRetry indicates retry settings are out of range.
	ErrInvalidRetry = errors.New("invalid retry configuration")
)

// MinAuthSecretLength is the minimum byte length of the HMAC secret.
const MinAuthSecretLength = 32

var validSSLModes = map[string]bool{
	"disable":     true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

var validProviders = map[string]bool{
	ProviderGoogleAI: true,
	ProviderGemini:   true,
	ProviderOllama:   true,
	ProviderOpenAI:   true,
}

// ValidateServe checks everything the serve command needs. It returns the
// first violation found, wrapped with context.
func (c *Config) ValidateServe() error {
	if c == nil {
		return ErrConfigNil
	}

	if !validProviders[c.Provider] {
		return fmt.Errorf("%w: %q (want googleai, gemini, ollama, or openai)", ErrInvalidProvider, c.Provider)
	}
	if c.ModelName == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}

	if c.MaxTurns < 1 || c.MaxTurns > 100 {
		return fmt.Errorf("%w: %d (want 1-100)", ErrInvalidMaxTurns, c.MaxTurns)
	}
	if c.HistoryLimit < 1 || c.HistoryLimit > MaxHistoryLimit {
		return fmt.Errorf("%w: %d (want 1-%d)", ErrInvalidHistoryLimit, c.HistoryLimit, MaxHistoryLimit)
	}

	if c.RetryMaxAttempts < 1 || c.RetryInitialDelay <= 0 || c.RetryMaxDelay < c.RetryInitialDelay {
		return fmt.Errorf("%w: attempts=%d initial=%s max=%s",
			ErrInvalidRetry, c.RetryMaxAttempts, c.RetryInitialDelay, c.RetryMaxDelay)
	}

	if err := c.validatePostgres(); err != nil {
		return err
	}

	if c.AuthSecret == "" {
		return ErrMissingAuthSecret
	}
	if len(c.AuthSecret) < MinAuthSecretLength {
		return fmt.Errorf("%w: got %d bytes, want at least %d",
			ErrWeakAuthSecret, len(c.AuthSecret), MinAuthSecretLength)
	}

	return nil
}

// ValidateMigrate checks the subset needed by the migrate command.
func (c *Config) ValidateMigrate() error {
	if c == nil {
		return ErrConfigNil
	}
	return c.validatePostgres()
}

func (c *Config) validatePostgres() error {
	if c.PostgresHost == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}
