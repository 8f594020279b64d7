package config

import (
	"os"
	"strconv"

	"expstat/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Stats    StatsConfig
	Analysis AnalysisConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// StatsConfig holds statistics engine defaults
type StatsConfig struct {
	// ConfidenceLevel is the default confidence level for significance
	// requests that do not specify one. Must be strictly inside (0, 1).
	ConfidenceLevel float64
}

// AnalysisConfig holds analysis pipeline settings
type AnalysisConfig struct {
	// Concurrency bounds how many secondary metrics are compared in parallel.
	Concurrency int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Stats: StatsConfig{
			ConfidenceLevel: getEnvFloatOrDefault("CONFIDENCE_LEVEL", 0.95),
		},
		Analysis: AnalysisConfig{
			Concurrency: getEnvIntOrDefault("ANALYSIS_CONCURRENCY", 4),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if cl := config.Stats.ConfidenceLevel; cl <= 0 || cl >= 1 {
		return errors.ConfigInvalid("CONFIDENCE_LEVEL must be between 0 and 1 exclusive")
	}
	if config.Analysis.Concurrency < 1 {
		return errors.ConfigInvalid("ANALYSIS_CONCURRENCY must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
