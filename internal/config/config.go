// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Models maps each prompt type to the model that serves it.
type Models struct {
	Text     string
	Image    string
	Document string
	Audio    string
}

// Config holds all application configuration. It is built once at startup
// and treated as immutable for the process lifetime.
type Config struct {
	Port          string
	GeminiAPIKey  string
	GeminiBaseURL string // empty = provider default
	UploadDir     string
	DisableStatic bool // skip serving the embedded client bundle
	Models        Models
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "4000"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		DisableStatic: getEnvBool("DISABLE_STATIC", false),
		Models: Models{
			Text:     getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash-lite"),
			Image:    getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash"),
			Document: getEnv("GEMINI_DOCUMENT_MODEL", "gemini-2.5-flash-lite"),
			Audio:    getEnv("GEMINI_AUDIO_MODEL", "gemini-2.5-flash"),
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
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY cannot be empty")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR cannot be empty")
	}
	if c.Models.Text == "" || c.Models.Image == "" || c.Models.Document == "" || c.Models.Audio == "" {
		return fmt.Errorf("model names cannot be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
