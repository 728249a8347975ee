// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	SnapshotCap int
	AI          AIConfig
}

// AIConfig controls the generative-AI gateway.
type AIConfig struct {
	APIKey        string
	Model         string
	IdentityPath  string
	Temperature   float64
	MaxTokens     int
	HistoryWindow int
	RateLimit     int // calls per user per minute
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/thrive.db"),
		SnapshotCap: getEnvInt("SNAPSHOT_CAP", 10),
		AI: AIConfig{
			APIKey:        getEnv("GEMINI_API_KEY", ""),
			Model:         getEnv("GEMINI_MODEL", "gemini-flash-lite-latest"),
			IdentityPath:  getEnv("IDENTITY_PROMPT_PATH", "./identity.txt"),
			Temperature:   getEnvFloat("AI_TEMPERATURE", 0.8),
			MaxTokens:     getEnvInt("AI_MAX_TOKENS", 1024),
			HistoryWindow: getEnvInt("AI_HISTORY_WINDOW", 10),
			RateLimit:     getEnvInt("AI_RATE_LIMIT", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SnapshotCap <= 0 {
		return fmt.Errorf("SNAPSHOT_CAP must be > 0")
	}
	if c.AI.Model == "" {
		return fmt.Errorf("GEMINI_MODEL cannot be empty")
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("AI_MAX_TOKENS must be > 0")
	}
	if c.AI.HistoryWindow <= 0 {
		return fmt.Errorf("AI_HISTORY_WINDOW must be > 0")
	}
	return nil
}

// AIEnabled returns true if a Gemini API key is configured.
func (c *Config) AIEnabled() bool {
	return c.AI.APIKey != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}
