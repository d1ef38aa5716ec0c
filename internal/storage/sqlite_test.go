package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumenmedi/lumen/internal/annotate"
	"github.com/lumenmedi/lumen/internal/batch"
	"github.com/lumenmedi/lumen/internal/feed"
)

func testArticle(url, title, category string) batch.AnnotatedArticle {
	return batch.AnnotatedArticle{
		Article: feed.Article{
			OriginalTitle: title,
			URL:           url,
			PublishedAt:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
			SourceName:    "Test Feed",
		},
		Annotation: annotate.Annotation{
			TranslatedTitle: "번역된 " + title,
			ShortSummary:    "짧은 요약 내용입니다.",
			LongSummary:     "긴 요약 내용입니다. 원문 기사를 참고하세요.",
			Category:        category,
		},
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveArticles_InsertAndCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	articles := []batch.AnnotatedArticle{
		testArticle("https://example.com/1", "First", "기술/혁신"),
		testArticle("https://example.com/2", "Second", "연구/임상"),
	}
	if err := s.SaveArticles(ctx, articles); err != nil {
		t.Fatalf("SaveArticles: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestSaveArticles_UpsertByURL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := testArticle("https://example.com/1", "First", "기술/혁신")
	if err := s.SaveArticles(ctx, []batch.AnnotatedArticle{first}); err != nil {
		t.Fatalf("SaveArticles: %v", err)
	}

	updated := testArticle("https://example.com/1", "First updated", "안전/품질")
	if err := s.SaveArticles(ctx, []batch.AnnotatedArticle{updated}); err != nil {
		t.Fatalf("SaveArticles update: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("re-saving the same URL must not create a second row, count = %d", n)
	}

	counts, err := s.CategoryCounts(ctx)
	if err != nil {
		t.Fatalf("CategoryCounts: %v", err)
	}
	if counts["안전/품질"] != 1 || counts["기술/혁신"] != 0 {
		t.Errorf("upsert did not replace the category: %v", counts)
	}
}

func TestSaveArticles_SkipsEmptyURL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	articles := []batch.AnnotatedArticle{
		testArticle("", "No link", "기술/혁신"),
		testArticle("https://example.com/ok", "Has link", "기술/혁신"),
	}
	if err := s.SaveArticles(ctx, articles); err != nil {
		t.Fatalf("SaveArticles: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("article without url must be skipped, count = %d", n)
	}
}
