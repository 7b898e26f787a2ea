// Package common provides shared utilities for uang
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for uang
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Auth        AuthConfig    `toml:"auth"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects the remote table store backend and the local cache
// location.
type StorageConfig struct {
	Driver    string         `toml:"driver"`     // "supabase" (default) or "surreal"
	CachePath string         `toml:"cache_path"` // directory for snapshot.json and prefs.json
	Supabase  SupabaseConfig `toml:"supabase"`
	Surreal   SurrealConfig  `toml:"surreal"`
}

// SupabaseConfig holds the Supabase REST table store configuration.
type SupabaseConfig struct {
	URL       string `toml:"url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *SupabaseConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// SurrealConfig holds the SurrealDB table store configuration.
type SurrealConfig struct {
	Address   string `toml:"address"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Gemini GeminiConfig `toml:"gemini"`
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// AuthConfig holds bearer-token authentication configuration. When JWTSecret
// is empty the API runs open (single-user local deployment).
type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret"`
	TokenExpiry string `toml:"token_expiry"`
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"` // "console" or "json"
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Driver:    "supabase",
			CachePath: "data",
			Supabase: SupabaseConfig{
				RateLimit: 10,
				Timeout:   "30s",
			},
			Surreal: SurrealConfig{
				Address:   "ws://localhost:8000/rpc",
				Username:  "root",
				Password:  "root",
				Namespace: "uang",
				Database:  "uang",
			},
		},
		Clients: ClientsConfig{
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Auth: AuthConfig{
			TokenExpiry: "24h",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/uang.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("UANG_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("UANG_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("UANG_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("UANG_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if driver := os.Getenv("UANG_STORAGE_DRIVER"); driver != "" {
		config.Storage.Driver = strings.ToLower(driver)
	}

	if path := os.Getenv("UANG_CACHE_PATH"); path != "" {
		config.Storage.CachePath = path
	}

	if v := os.Getenv("UANG_SUPABASE_URL"); v != "" {
		config.Storage.Supabase.URL = v
	}
	if v := os.Getenv("UANG_SUPABASE_KEY"); v != "" {
		config.Storage.Supabase.APIKey = v
	}

	if v := os.Getenv("UANG_SURREAL_ADDRESS"); v != "" {
		config.Storage.Surreal.Address = v
	}

	if v := os.Getenv("UANG_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}

	// Gemini key: dedicated env vars take priority over the config file.
	for _, name := range []string{"UANG_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			config.Clients.Gemini.APIKey = v
			break
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
