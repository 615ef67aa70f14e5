package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/ca-srg/nova/internal/types"
	"github.com/joho/godotenv"
	env "github.com/netflix/go-env"
)

// Type alias for Config
type Config = types.Config

// LoadDotEnv loads variables from the given .env files (default ".env").
// A missing file is not an error; variables already set in the process win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	config.LLMProvider = strings.ToLower(strings.TrimSpace(config.LLMProvider))
	if config.LLMProvider == "" {
		config.LLMProvider = types.ProviderGemini
	}
	config.AnalyticsAPIURL = strings.TrimSpace(config.AnalyticsAPIURL)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	switch config.LLMProvider {
	case types.ProviderGemini:
		if strings.TrimSpace(config.GoogleAPIKey) == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required when LLM_PROVIDER=gemini")
		}
	case types.ProviderBedrock:
		if config.ChatModel == "" {
			return fmt.Errorf("CHAT_MODEL is required when LLM_PROVIDER=bedrock")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q (expected gemini or bedrock)", config.LLMProvider)
	}

	if err := validateAnalyticsURL(config.AnalyticsAPIURL); err != nil {
		return err
	}

	if config.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be greater than 0")
	}
	if config.AnalyticsTimeout <= 0 {
		return fmt.Errorf("ANALYTICS_TIMEOUT must be greater than 0")
	}
	if config.AnalyticsRateLimit <= 0 {
		return fmt.Errorf("ANALYTICS_RATE_LIMIT must be greater than 0")
	}
	if config.AnalyticsRateBurst <= 0 {
		config.AnalyticsRateBurst = 1
	}

	// Session store bounds
	if config.SessionMaxContexts < 1 {
		config.SessionMaxContexts = 1
	}
	if config.SessionMaxContexts > 10000 {
		config.SessionMaxContexts = 10000
	}
	if config.SessionSweepEvery < 1 {
		config.SessionSweepEvery = 1
	}
	if config.SessionMaxAge < 0 {
		config.SessionMaxAge = 0
	}

	if config.DefaultYear < 0 {
		config.DefaultYear = 0
	}

	if config.PlanCAC <= 0 {
		return fmt.Errorf("PLAN_CAC must be greater than 0")
	}
	if config.PlanFillRatio <= 0 || config.PlanFillRatio > 1 {
		return fmt.Errorf("PLAN_FILL_RATIO must be in (0, 1]")
	}

	if config.ReportsS3Bucket != "" && !strings.HasSuffix(config.ReportsS3Prefix, "/") && config.ReportsS3Prefix != "" {
		config.ReportsS3Prefix += "/"
	}

	return nil
}

func validateAnalyticsURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("ANALYTICS_API_URL cannot be empty")
	}
	parsedURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid ANALYTICS_API_URL format: %w", err)
	}
	if !strings.HasPrefix(parsedURL.Scheme, "http") {
		return fmt.Errorf("ANALYTICS_API_URL scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("ANALYTICS_API_URL must include a valid host")
	}
	return nil
}
