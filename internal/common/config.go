// Package common provides shared utilities for Regradar
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Regradar
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Clients     ClientsConfig  `toml:"clients"`
	Analysis    AnalysisConfig `toml:"analysis"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *ServerConfig) MaxUploadBytes() int64 {
	mb := c.MaxUploadMB
	if mb <= 0 {
		mb = 16
	}
	return int64(mb) << 20
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD  EODHDConfig  `toml:"eodhd"`
	Gemini GeminiConfig `toml:"gemini"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// AnalysisConfig tunes the chunked document analysis engine.
// Chunk sizing and the boundary lookback window are deliberately explicit
// configuration rather than inferred constants.
type AnalysisConfig struct {
	ChunkSize   int    `toml:"chunk_size"`   // max chunk size in bytes
	Lookback    int    `toml:"lookback"`     // boundary lookback window in bytes
	Workers     int    `toml:"workers"`      // concurrent chunk analyses
	MaxAttempts int    `toml:"max_attempts"` // attempts per chunk before degrading
	CallTimeout string `toml:"call_timeout"` // per-call AI timeout
	BackoffBase string `toml:"backoff_base"` // initial retry backoff, doubles per attempt
	RetainFor   string `toml:"retain_for"`   // how long finished runs stay retrievable
	IndexSymbol string `toml:"index_symbol"` // dashboard index ticker
}

// GetCallTimeout parses the per-call AI timeout.
func (c *AnalysisConfig) GetCallTimeout() time.Duration {
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil {
		return 90 * time.Second
	}
	return d
}

// GetBackoffBase parses the initial retry backoff.
func (c *AnalysisConfig) GetBackoffBase() time.Duration {
	d, err := time.ParseDuration(c.BackoffBase)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetRetainFor parses the finished-run retention window.
func (c *AnalysisConfig) GetRetainFor() time.Duration {
	d, err := time.ParseDuration(c.RetainFor)
	if err != nil {
		return time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			MaxUploadMB: 16,
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Analysis: AnalysisConfig{
			ChunkSize:   12000,
			Lookback:    2000,
			Workers:     4,
			MaxAttempts: 3,
			CallTimeout: "90s",
			BackoffBase: "2s",
			RetainFor:   "1h",
			IndexSymbol: "GSPC.INDX",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("REGRADAR_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("REGRADAR_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("REGRADAR_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("REGRADAR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if model := os.Getenv("REGRADAR_GEMINI_MODEL"); model != "" {
		config.Clients.Gemini.Model = model
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment variables, falling
// back to the config file value.
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key":  {"EODHD_API_KEY", "REGRADAR_EODHD_API_KEY"},
		"gemini_api_key": {"GEMINI_API_KEY", "REGRADAR_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}
