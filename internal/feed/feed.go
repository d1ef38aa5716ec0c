// Package feed pulls articles from the configured RSS sources. A source that
// is empty or unreachable contributes zero articles and never aborts the run.
package feed

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/lumenmedi/lumen/internal/config"
)

// Article is one feed entry. Immutable once fetched.
type Article struct {
	OriginalTitle  string
	URL            string
	PublishedAt    time.Time
	SourceName     string
	SourcePriority int
}

// Layouts tried against the raw published string when the feed parser could
// not produce a time itself.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 02 Jan 2006",
	"2006-01-02",
}

type Fetcher struct {
	parser *gofeed.Parser
}

func NewFetcher() *Fetcher {
	return &Fetcher{parser: gofeed.NewParser()}
}

// FetchAll downloads every enabled source and returns the merged article
// list in source order.
func (f *Fetcher) FetchAll(ctx context.Context, sources []config.FeedSource) []Article {
	var all []Article
	successCount := 0

	for _, src := range sources {
		if !src.IsEnabled() {
			continue
		}

		parsed, err := f.parser.ParseURLWithContext(src.URL, ctx)
		if err != nil {
			slog.Warn("feed fetch failed", "source", src.Name, "error", err)
			continue
		}
		if len(parsed.Items) == 0 {
			slog.Warn("feed is empty", "source", src.Name)
			continue
		}

		articles := articlesFromItems(src, parsed.Items)
		all = append(all, articles...)
		successCount++
		slog.Info("feed loaded", "source", src.Name, "articles", len(articles))
	}

	slog.Info("feeds processed", "ok", successCount, "total", len(sources))
	return all
}

// articlesFromItems converts feed items into Articles, applying the
// per-source item cap and skipping entries without a title.
func articlesFromItems(src config.FeedSource, items []*gofeed.Item) []Article {
	limit := src.MaxItems
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	articles := make([]Article, 0, limit)
	for _, item := range items[:limit] {
		title := CleanText(item.Title)
		if title == "" {
			continue
		}

		articles = append(articles, Article{
			OriginalTitle:  title,
			URL:            item.Link,
			PublishedAt:    publishedTime(item),
			SourceName:     src.Name,
			SourcePriority: src.Priority,
		})
	}
	return articles
}

func publishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}

	raw := strings.TrimSpace(item.Published)
	if raw != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
		// Some feeds append a nonstandard zone suffix; retry on the
		// seconds-precision prefix.
		if len(raw) > 25 {
			if t, err := time.Parse("Mon, 02 Jan 2006 15:04:05", strings.TrimSpace(raw[:25])); err == nil {
				return t
			}
		}
	}

	return time.Now()
}

// CleanText strips HTML markup and entities that some feeds embed in titles
// and collapses whitespace.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + s + "</div>"))
		if err == nil {
			s = doc.Text()
		}
	}

	return strings.Join(strings.Fields(s), " ")
}
