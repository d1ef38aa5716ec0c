package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lumenmedi/lumen/internal/config"
	"github.com/lumenmedi/lumen/internal/feed"
	"github.com/lumenmedi/lumen/internal/notify"
)

type fixedGenerator struct{ raw string }

func (g *fixedGenerator) Name() string { return "gemini" }

func (g *fixedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.raw, nil
}

const fixedReply = `제목: 새 진단 장비 승인
카테고리: 규제/가이드라인
짧은요약: 새로운 진단 장비가 승인을 받았습니다.
긴요약: 새로운 진단 장비가 규제 당국의 승인을 받았습니다. 곧 병원에 공급될 예정입니다.`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Categories:          []string{"기술/혁신", "규제/가이드라인", "연구/임상"},
		SimilarityThreshold: 0.8,
		CacheDir:            filepath.Join(dir, "cache"),
		CacheTTL:            time.Hour,
		MaxRetries:          1,
		RetryDelay:          time.Millisecond,
		Concurrency:         2,
		OutputHTMLPath:      filepath.Join(dir, "index.html"),
		DatabasePath:        filepath.Join(dir, "history.db"),
	}
}

func TestProcess_UnusableCacheDirStillPublishes(t *testing.T) {
	cfg := testConfig(t)

	// A regular file where the cache directory should be makes MkdirAll fail.
	if err := os.WriteFile(cfg.CacheDir, []byte("in the way"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	articles := []feed.Article{
		{OriginalTitle: "New diagnostic device approved", URL: "https://example.com/1", SourceName: "Feed A", PublishedAt: time.Now()},
	}

	err := process(context.Background(), cfg, notify.New(""), articles, &fixedGenerator{raw: fixedReply}, nil)
	if err != nil {
		t.Fatalf("a broken cache must not fail the run: %v", err)
	}

	data, err := os.ReadFile(cfg.OutputHTMLPath)
	if err != nil {
		t.Fatalf("page not rendered: %v", err)
	}
	if !strings.Contains(string(data), "새 진단 장비 승인") {
		t.Errorf("rendered page missing annotated article")
	}
}

func TestOpenCache_FailureReturnsNil(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	if c := openCache(blocker, time.Hour); c != nil {
		t.Errorf("unusable cache dir should yield no cache, got %T", c)
	}
}

func TestProcess_EndToEnd(t *testing.T) {
	cfg := testConfig(t)

	articles := []feed.Article{
		{OriginalTitle: "New diagnostic device approved", URL: "https://example.com/1", SourceName: "Feed A", PublishedAt: time.Now()},
		{OriginalTitle: "New diagnostic device approved!", URL: "https://example.com/dup", SourceName: "Feed B", PublishedAt: time.Now()},
	}

	if err := process(context.Background(), cfg, notify.New(""), articles, &fixedGenerator{raw: fixedReply}, nil); err != nil {
		t.Fatalf("process: %v", err)
	}

	data, err := os.ReadFile(cfg.OutputHTMLPath)
	if err != nil {
		t.Fatalf("page not rendered: %v", err)
	}
	if !strings.Contains(string(data), "총 1건") {
		t.Errorf("near-duplicate should be dropped before rendering")
	}
	if _, err := os.Stat(cfg.DatabasePath); err != nil {
		t.Errorf("history database not created: %v", err)
	}
}
