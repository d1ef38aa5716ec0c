// Package config loads process configuration from environment variables and
// the YAML feeds file. A missing Gemini key is the only fatal condition.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FeedSource describes one RSS feed to poll.
type FeedSource struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Priority int    `yaml:"priority"`
	MaxItems int    `yaml:"max_items"`
	Enabled  *bool  `yaml:"enabled"`
}

// IsEnabled treats an absent enabled flag as true.
func (s FeedSource) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type feedsFile struct {
	Categories []string     `yaml:"categories"`
	Feeds      []FeedSource `yaml:"feeds"`
}

type Config struct {
	// Gemini settings
	GeminiAPIKey    string
	GeminiModel     string
	Temperature     float32
	MaxOutputTokens int32
	MaxRetries      int
	RequestTimeout  time.Duration
	RetryDelay      time.Duration
	RequestInterval time.Duration // minimum spacing between live API calls
	MaxAPIRequests  int           // live generation calls per run (0 = unlimited)

	// Optional OpenAI fallback generator
	OpenAIAPIKey string
	OpenAIModel  string

	// Feeds and categories
	FeedsConfigPath string
	Feeds           []FeedSource
	Categories      []string

	// Deduplication
	SimilarityThreshold float64

	// Annotation cache
	CacheDir string
	CacheTTL time.Duration

	// Batch settings
	Concurrency int

	// Output
	OutputHTMLPath string
	DatabasePath   string

	// Notification
	WebhookURL string

	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		GeminiModel:         "gemini-2.0-flash-lite",
		Temperature:         0.7,
		MaxOutputTokens:     400,
		MaxRetries:          2,
		RequestTimeout:      30 * time.Second,
		RetryDelay:          2 * time.Second,
		RequestInterval:     500 * time.Millisecond,
		MaxAPIRequests:      0,
		OpenAIModel:         "gpt-4o-mini",
		FeedsConfigPath:     "configs/feeds.yaml",
		SimilarityThreshold: 0.8,
		CacheDir:            "cache",
		CacheTTL:            7 * 24 * time.Hour,
		Concurrency:         10,
		OutputHTMLPath:      "index.html",
		DatabasePath:        "lumen.db",
		Categories: []string{
			"기술/혁신",
			"규제/가이드라인",
			"연구/임상",
			"안전/품질",
			"교육/훈련",
		},
	}

	// Load from environment
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.WebhookURL = os.Getenv("NOTIFY_WEBHOOK_URL")

	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.CacheDir = getEnvOrDefault("CACHE_DIR", cfg.CacheDir)
	cfg.OutputHTMLPath = getEnvOrDefault("OUTPUT_HTML_PATH", cfg.OutputHTMLPath)
	cfg.DatabasePath = getEnvOrDefault("DATABASE_PATH", cfg.DatabasePath)

	cfg.MaxRetries = getEnvIntOrDefault("MAX_RETRIES", cfg.MaxRetries)
	cfg.Concurrency = getEnvIntOrDefault("CONCURRENCY", cfg.Concurrency)
	cfg.MaxAPIRequests = getEnvIntOrDefault("MAX_API_REQUESTS", cfg.MaxAPIRequests)

	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RequestTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("CACHE_TTL_HOURS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.CacheTTL = time.Duration(val) * time.Hour
		}
	}
	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil && val > 0 && val <= 1 {
			cfg.SimilarityThreshold = val
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	if err := cfg.loadFeedsFile(); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) loadFeedsFile() error {
	raw, err := os.ReadFile(c.FeedsConfigPath)
	if err != nil {
		return fmt.Errorf("read feeds config %s: %w", c.FeedsConfigPath, err)
	}

	var file feedsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse feeds config %s: %w", c.FeedsConfigPath, err)
	}

	if len(file.Feeds) == 0 {
		return fmt.Errorf("feeds config %s lists no feeds", c.FeedsConfigPath)
	}
	c.Feeds = file.Feeds

	if len(file.Categories) > 0 {
		c.Categories = file.Categories
	}

	return nil
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

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("CONCURRENCY must be at least 1")
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("category list must not be empty")
	}
	return nil
}
