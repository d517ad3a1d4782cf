package config

import (
	"fmt"
	"strings"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Search configuration
	if c.SearchAddress == "" {
		return fmt.Errorf("%w: address cannot be empty", ErrInvalidSearchAddress)
	}
	if !strings.HasPrefix(c.SearchAddress, "http://") && !strings.HasPrefix(c.SearchAddress, "https://") {
		return fmt.Errorf("%w: must start with http:// or https://, got %q",
			ErrInvalidSearchAddress, c.SearchAddress)
	}
	if c.SearchIndex == "" {
		return fmt.Errorf("%w: index name cannot be empty", ErrInvalidSearchIndex)
	}
	// Elasticsearch index names must be lowercase.
	if c.SearchIndex != strings.ToLower(c.SearchIndex) {
		return fmt.Errorf("%w: index name must be lowercase, got %q",
			ErrInvalidSearchIndex, c.SearchIndex)
	}

	// Cache configuration
	if c.RedisAddr == "" {
		return fmt.Errorf("%w: address cannot be empty", ErrInvalidRedisAddr)
	}
	if c.ContextTTLSeconds <= 0 {
		return fmt.Errorf("%w: context_ttl_seconds must be positive, got %d",
			ErrInvalidCacheTTL, c.ContextTTLSeconds)
	}
	if c.VectorTTLSeconds <= 0 {
		return fmt.Errorf("%w: vector_ttl_seconds must be positive, got %d",
			ErrInvalidCacheTTL, c.VectorTTLSeconds)
	}

	// PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d",
			ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	// Generation configuration
	if c.PrimaryModel == "" {
		return fmt.Errorf("%w: primary_model cannot be empty", ErrInvalidModelName)
	}
	if c.FallbackModel == "" {
		return fmt.Errorf("%w: fallback_model cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidModelName)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: must be >= 0, got %d", ErrInvalidTolerance, c.Tolerance)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("%w: must be between 0 and 10, got %d",
			ErrInvalidMaxRetries, c.MaxRetries)
	}
	// Temperature range follows the OpenAI/Gemini sampling contract.
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f",
			ErrInvalidTemperature, c.Temperature)
	}

	return nil
}
