// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.unipost/config.yaml, or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Search: Elasticsearch cluster and index (ContextRetriever backend)
//   - Cache: Redis connection and per-namespace TTLs
//   - Storage: PostgreSQL connection for texts and statistics
//   - Generation: LLM providers, models, word-count tolerance and retries
//   - Server: HTTP listen address
//
// Security: sensitive fields (passwords, API keys) are masked in MarshalJSON.
// Validation uses sentinel errors checked with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidSearchAddress indicates the Elasticsearch address is invalid.
	ErrInvalidSearchAddress = errors.New("invalid search address")

	// ErrInvalidSearchIndex indicates the Elasticsearch index name is invalid.
	ErrInvalidSearchIndex = errors.New("invalid search index")

	// ErrInvalidRedisAddr indicates the Redis address is invalid.
	ErrInvalidRedisAddr = errors.New("invalid redis address")

	// ErrInvalidCacheTTL indicates a cache TTL is out of range.
	ErrInvalidCacheTTL = errors.New("invalid cache ttl")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidModelName indicates a model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTolerance indicates the word-count tolerance is out of range.
	ErrInvalidTolerance = errors.New("invalid tolerance")

	// ErrInvalidMaxRetries indicates the retry budget is out of range.
	ErrInvalidMaxRetries = errors.New("invalid max retries")

	// ErrInvalidTemperature indicates the sampling temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation to 768 dimensions, which is
	// what the embeddings table schema expects; see vector.Dim.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultPrimaryModel is the default model for the primary generation backend.
	DefaultPrimaryModel = "gpt-4o-mini"

	// DefaultFallbackModel is the default model for the fallback generation backend.
	DefaultFallbackModel = "gemini-2.5-flash"

	// DefaultContextTTL is the default lifetime for cached search contexts.
	DefaultContextTTL = time.Hour

	// DefaultVectorTTL is the default lifetime for cached embeddings.
	// Embeddings are static per text, so they live much longer than contexts.
	DefaultVectorTTL = 24 * time.Hour
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Elasticsearch configuration
	SearchAddress  string `mapstructure:"search_address" json:"search_address"`
	SearchUsername string `mapstructure:"search_username" json:"search_username"`
	SearchPassword string `mapstructure:"search_password" json:"search_password"` // SENSITIVE: masked in MarshalJSON
	SearchIndex    string `mapstructure:"search_index" json:"search_index"`

	// Redis configuration
	RedisAddr     string `mapstructure:"redis_addr" json:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" json:"redis_password"` // SENSITIVE: masked in MarshalJSON
	RedisDB       int    `mapstructure:"redis_db" json:"redis_db"`

	// Cache TTLs in seconds (context = search results, vector = embeddings)
	ContextTTLSeconds int `mapstructure:"context_ttl_seconds" json:"context_ttl_seconds"`
	VectorTTLSeconds  int `mapstructure:"vector_ttl_seconds" json:"vector_ttl_seconds"`

	// PostgreSQL configuration
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Generation configuration
	PrimaryModel  string  `mapstructure:"primary_model" json:"primary_model"`
	FallbackModel string  `mapstructure:"fallback_model" json:"fallback_model"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Tolerance     int     `mapstructure:"tolerance" json:"tolerance"`
	MaxRetries    int     `mapstructure:"max_retries" json:"max_retries"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Server configuration
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".unipost")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Elasticsearch defaults
	v.SetDefault("search_address", "http://127.0.0.1:9200")
	v.SetDefault("search_username", "elastic")
	v.SetDefault("search_index", "unipost_context")

	// Redis defaults
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("context_ttl_seconds", int(DefaultContextTTL.Seconds()))
	v.SetDefault("vector_ttl_seconds", int(DefaultVectorTTL.Seconds()))

	// PostgreSQL defaults for local development
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "unipost")
	v.SetDefault("postgres_password", "unipost_dev_password")
	v.SetDefault("postgres_db_name", "unipost")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Generation defaults
	v.SetDefault("primary_model", DefaultPrimaryModel)
	v.SetDefault("fallback_model", DefaultFallbackModel)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("tolerance", 15)
	v.SetDefault("max_retries", 2)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 1024)

	// Server defaults
	v.SetDefault("server_addr", "127.0.0.1:8005")
}

// bindEnvVariables binds environment variables explicitly.
// Secrets stay in the environment, never in the config file:
//   - UNIPOST_SEARCH_PASSWORD: Elasticsearch password
//   - UNIPOST_REDIS_PASSWORD: Redis password
//   - UNIPOST_POSTGRES_PASSWORD: PostgreSQL password
//
// API keys (OPENAI_API_KEY, GEMINI_API_KEY) are read by the client SDKs.
func bindEnvVariables(v *viper.Viper) {
	v.SetEnvPrefix("UNIPOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ContextTTL returns the TTL for cached search contexts.
func (c *Config) ContextTTL() time.Duration {
	return time.Duration(c.ContextTTLSeconds) * time.Second
}

// VectorTTL returns the TTL for cached embeddings.
func (c *Config) VectorTTL() time.Duration {
	return time.Duration(c.VectorTTLSeconds) * time.Second
}

// PostgresConnectionString returns the PostgreSQL DSN for pgx.
// Password is single-quoted to handle special characters.
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresUser,
		quoteDSNValue(c.PostgresPassword),
		c.PostgresDBName,
		c.PostgresSSLMode,
	)
}

// PostgresURL returns the PostgreSQL URL for golang-migrate.
// Uses url.URL for proper encoding of special characters in credentials.
func (c *Config) PostgresURL() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:     c.PostgresDBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.PostgresSSLMode),
	}
	return u.String()
}

// quoteDSNValue quotes a value for PostgreSQL key=value DSN format.
func quoteDSNValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// MarshalJSON masks sensitive fields so the config can be logged safely.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(*c)
	if masked.SearchPassword != "" {
		masked.SearchPassword = "***"
	}
	if masked.RedisPassword != "" {
		masked.RedisPassword = "***"
	}
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	return json.Marshal(masked)
}
