// Package batch fans article annotation out over a bounded worker pool.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lumenmedi/lumen/internal/annotate"
	"github.com/lumenmedi/lumen/internal/feed"
)

// AnnotatedArticle pairs a fetched article with its annotation.
type AnnotatedArticle struct {
	feed.Article
	annotate.Annotation
}

// Annotator is satisfied by annotate.Client.
type Annotator interface {
	Annotate(ctx context.Context, title string) annotate.Annotation
}

// Run annotates every article with at most concurrency in flight and returns
// the results in input order. Annotate never fails, so the output always has
// one entry per input article.
func Run(ctx context.Context, ann Annotator, articles []feed.Article, concurrency int) []AnnotatedArticle {
	if len(articles) == 0 {
		return nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	start := time.Now()
	results := make([]AnnotatedArticle, len(articles))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, article := range articles {
		wg.Add(1)
		go func(i int, article feed.Article) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = AnnotatedArticle{
				Article:    article,
				Annotation: ann.Annotate(ctx, article.OriginalTitle),
			}
		}(i, article)
	}
	wg.Wait()

	slog.Info("batch annotation done", "articles", len(articles), "elapsed", time.Since(start).Round(time.Millisecond))
	return results
}
