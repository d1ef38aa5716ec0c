package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testFeedsYAML = `categories:
  - "기술/혁신"
  - "연구/임상"

feeds:
  - name: "Feed A"
    url: "https://a.example/rss"
    priority: 1
    max_items: 5

  - name: "Feed B"
    url: "https://b.example/rss"
    priority: 2
    enabled: false
`

func writeFeedsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write feeds file: %v", err)
	}
	return path
}

func TestLoad_DefaultsAndFeedsFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("FEEDS_CONFIG_PATH", writeFeedsFile(t, testFeedsYAML))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.GeminiModel != "gemini-2.0-flash-lite" {
		t.Errorf("model = %q", cfg.GeminiModel)
	}
	if cfg.MaxRetries != 2 || cfg.RetryDelay != 2*time.Second || cfg.RequestTimeout != 30*time.Second {
		t.Errorf("retry defaults wrong: %+v", cfg)
	}
	if cfg.SimilarityThreshold != 0.8 {
		t.Errorf("similarity threshold = %v", cfg.SimilarityThreshold)
	}
	if cfg.CacheTTL != 7*24*time.Hour {
		t.Errorf("cache ttl = %v", cfg.CacheTTL)
	}

	if len(cfg.Feeds) != 2 {
		t.Fatalf("feeds = %d, want 2", len(cfg.Feeds))
	}
	if !cfg.Feeds[0].IsEnabled() {
		t.Errorf("feed without enabled flag must default to enabled")
	}
	if cfg.Feeds[1].IsEnabled() {
		t.Errorf("explicitly disabled feed must stay disabled")
	}
	if len(cfg.Categories) != 2 || cfg.Categories[0] != "기술/혁신" {
		t.Errorf("categories from feeds file not applied: %v", cfg.Categories)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("FEEDS_CONFIG_PATH", writeFeedsFile(t, testFeedsYAML))
	t.Setenv("GEMINI_MODEL", "gemini-exp")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("CACHE_TTL_HOURS", "24")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GeminiModel != "gemini-exp" {
		t.Errorf("model override ignored: %q", cfg.GeminiModel)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("retries override ignored: %d", cfg.MaxRetries)
	}
	if cfg.SimilarityThreshold != 0.9 {
		t.Errorf("threshold override ignored: %v", cfg.SimilarityThreshold)
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Errorf("ttl override ignored: %v", cfg.CacheTTL)
	}
}

func TestLoad_MissingAPIKeyFails(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("FEEDS_CONFIG_PATH", writeFeedsFile(t, testFeedsYAML))

	if _, err := Load(); err == nil {
		t.Errorf("missing GEMINI_API_KEY must fail validation")
	}
}

func TestLoad_MissingFeedsFileFails(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("FEEDS_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Errorf("absent feeds file must fail")
	}
}

func TestLoad_EmptyFeedListFails(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("FEEDS_CONFIG_PATH", writeFeedsFile(t, "feeds: []\n"))

	if _, err := Load(); err == nil {
		t.Errorf("empty feed list must fail")
	}
}
