// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP settings
	Port string

	// Gemini settings
	GeminiAPIKey      string
	GeminiModel       string
	GeminiGrounding   bool // feed RSS headlines into the prompt
	GroundingMaxRunes int
	MaxGeminiRequests int // per 24h (0 = unlimited)

	// Naver settings
	NaverClientID     string
	NaverClientSecret string
	NaverAPIURL       string

	// RSS settings
	GoogleNewsRSSURL string

	// Aggregation settings
	RequestTimeout   time.Duration
	MaxArticles      int
	TopicsConfigPath string // empty = built-in tabs

	// Cache settings
	RedisURL       string // empty = in-process cache
	CacheKeyPrefix string

	// App settings
	Debug     bool
	LogFormat string // text | json
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiGrounding:   getEnvBoolOrDefault("GEMINI_GROUNDING", true),
		GroundingMaxRunes: getEnvIntOrDefault("GROUNDING_MAX_RUNES", 4000),
		MaxGeminiRequests: getEnvIntOrDefault("MAX_GEMINI_REQUESTS", 0),

		NaverClientID:     os.Getenv("NAVER_CLIENT_ID"),
		NaverClientSecret: os.Getenv("NAVER_CLIENT_SECRET"),
		NaverAPIURL:       os.Getenv("NAVER_API_URL"),
		GoogleNewsRSSURL:  os.Getenv("GOOGLE_NEWS_RSS_URL"),

		RequestTimeout:   getEnvDurationOrDefault("REQUEST_TIMEOUT", 15*time.Second),
		MaxArticles:      getEnvIntOrDefault("MAX_ARTICLES", 20),
		TopicsConfigPath: os.Getenv("TOPICS_CONFIG_PATH"),

		RedisURL:       os.Getenv("REDIS_URL"),
		CacheKeyPrefix: getEnvOrDefault("CACHE_KEY_PREFIX", "nrfinsight:tab:"),

		Debug:     os.Getenv("DEBUG") == "true",
		LogFormat: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text")),
	}

	return cfg, cfg.Validate()
}

// NaverEnabled reports whether both Naver credentials are present.
func (c *Config) NaverEnabled() bool {
	return c.NaverClientID != "" && c.NaverClientSecret != ""
}

// GeminiEnabled reports whether the generative source can be registered.
func (c *Config) GeminiEnabled() bool {
	return c.GeminiAPIKey != ""
}

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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// bare numbers are seconds
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.MaxGeminiRequests < 0 {
		return fmt.Errorf("MAX_GEMINI_REQUESTS must not be negative")
	}
	if c.GroundingMaxRunes <= 0 {
		return fmt.Errorf("GROUNDING_MAX_RUNES must be positive")
	}
	if (c.NaverClientID == "") != (c.NaverClientSecret == "") {
		return fmt.Errorf("NAVER_CLIENT_ID and NAVER_CLIENT_SECRET must be set together")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be 'text' or 'json'")
	}
	return nil
}
