// Package app runs one end-to-end pipeline pass: fetch, dedupe, annotate,
// render, persist, notify.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumenmedi/lumen/internal/annotate"
	"github.com/lumenmedi/lumen/internal/batch"
	"github.com/lumenmedi/lumen/internal/cache"
	"github.com/lumenmedi/lumen/internal/config"
	"github.com/lumenmedi/lumen/internal/dedupe"
	"github.com/lumenmedi/lumen/internal/feed"
	"github.com/lumenmedi/lumen/internal/metrics"
	"github.com/lumenmedi/lumen/internal/notify"
	"github.com/lumenmedi/lumen/internal/ratelimit"
	"github.com/lumenmedi/lumen/internal/render"
	"github.com/lumenmedi/lumen/internal/storage"
)

// Run executes one pipeline pass. It returns an error only for failures that
// leave no page to publish; persistence and notification problems are logged
// and absorbed.
func Run(ctx context.Context, cfg *config.Config) error {
	start := time.Now()
	notifier := notify.New(cfg.WebhookURL)

	err := run(ctx, cfg, notifier)
	if err != nil {
		metrics.Global.SetError(err.Error())
		notifier.Send(ctx, notify.Message{Status: notify.StatusError, Detail: err.Error()})
		return err
	}

	metrics.Global.RecordRun(time.Since(start))
	return nil
}

func run(ctx context.Context, cfg *config.Config, notifier *notify.Notifier) error {
	slog.Info("pipeline started", "feeds", len(cfg.Feeds), "categories", len(cfg.Categories))

	fetcher := feed.NewFetcher()
	articles := fetcher.FetchAll(ctx, cfg.Feeds)
	metrics.Global.AddArticlesFetched(len(articles))

	if len(articles) == 0 {
		slog.Warn("no articles fetched, nothing to publish")
		notifier.Send(ctx, notify.Message{Status: notify.StatusNoArticles})
		return nil
	}

	gemini, err := annotate.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Temperature, cfg.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}
	defer gemini.Close()

	var fallback annotate.Generator
	if cfg.OpenAIAPIKey != "" {
		fallback = annotate.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, int(cfg.MaxOutputTokens))
	}

	return process(ctx, cfg, notifier, articles, gemini, fallback)
}

func process(ctx context.Context, cfg *config.Config, notifier *notify.Notifier, articles []feed.Article, gen, fallback annotate.Generator) error {
	articles = dedupe.Filter(articles, cfg.SimilarityThreshold)

	budget := ratelimit.NewBudget(cfg.MaxAPIRequests, 0)
	client := annotate.NewClient(gen, annotate.Options{
		Categories:      cfg.Categories,
		MaxRetries:      cfg.MaxRetries,
		RequestTimeout:  cfg.RequestTimeout,
		RetryDelay:      cfg.RetryDelay,
		RequestInterval: cfg.RequestInterval,
	}).WithBudget(budget)

	if annCache := openCache(cfg.CacheDir, cfg.CacheTTL); annCache != nil {
		client.WithCache(annCache)
	}
	if fallback != nil {
		client.WithFallback(fallback)
	}

	annotated := batch.Run(ctx, client, articles, cfg.Concurrency)
	slog.Info("annotation budget", "stats", budget.Stats(), "cache_hit_rate", fmt.Sprintf("%.1f%%", budget.CacheHitRate()))

	if err := render.Render(cfg.OutputHTMLPath, annotated); err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	persistArticles(ctx, cfg, annotated)

	notifier.Send(ctx, notify.Message{Status: notify.StatusSuccess, ArticleCount: len(annotated)})
	metrics.Global.IncrementNotificationsSent()

	slog.Info("pipeline finished", "articles", len(annotated))
	return nil
}

// openCache opens the annotation cache and sweeps expired entries. Caching
// is best-effort: if the cache directory is unusable the run proceeds
// without one, it only costs extra API calls.
func openCache(dir string, ttl time.Duration) annotate.Cache {
	c, err := cache.New(dir, ttl)
	if err != nil {
		slog.Warn("annotation cache unavailable, running without cache", "dir", dir, "error", err)
		return nil
	}
	c.Sweep()
	return c
}

// persistArticles saves the run to the history database. The page is already
// published at this point, so a storage failure only loses history.
func persistArticles(ctx context.Context, cfg *config.Config, annotated []batch.AnnotatedArticle) {
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("history database unavailable", "path", cfg.DatabasePath, "error", err)
		return
	}
	defer store.Close()

	if err := store.SaveArticles(ctx, annotated); err != nil {
		slog.Error("history save failed", "error", err)
		return
	}
	metrics.Global.AddArticlesPersisted(len(annotated))

	if counts, err := store.CategoryCounts(ctx); err == nil {
		slog.Info("history category totals", "counts", counts)
	}
}
