// Package storage keeps a history of annotated articles in SQLite, keyed by
// article URL so re-fetched articles update in place.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lumenmedi/lumen/internal/batch"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	url              TEXT PRIMARY KEY,
	original_title   TEXT NOT NULL,
	translated_title TEXT NOT NULL,
	short_summary    TEXT NOT NULL,
	long_summary     TEXT NOT NULL,
	category         TEXT NOT NULL,
	source_name      TEXT NOT NULL,
	published_at     TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
`

const upsertQuery = `
INSERT INTO articles (url, original_title, translated_title, short_summary, long_summary, category, source_name, published_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
	original_title   = excluded.original_title,
	translated_title = excluded.translated_title,
	short_summary    = excluded.short_summary,
	long_summary     = excluded.long_summary,
	category         = excluded.category,
	source_name      = excluded.source_name,
	published_at     = excluded.published_at,
	updated_at       = excluded.updated_at
`

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc's driver serializes access itself; one connection avoids
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveArticles upserts every article in one transaction. Articles without a
// URL are skipped; they cannot be keyed.
func (s *Store) SaveArticles(ctx context.Context, articles []batch.AnnotatedArticle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	saved := 0
	for _, a := range articles {
		if a.URL == "" {
			slog.Debug("article without url skipped", "title", a.OriginalTitle)
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			a.URL, a.OriginalTitle, a.TranslatedTitle, a.ShortSummary,
			a.LongSummary, a.Category, a.SourceName, a.PublishedAt, now,
		); err != nil {
			return fmt.Errorf("upsert article %s: %w", a.URL, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.Info("articles persisted", "saved", saved)
	return nil
}

// CategoryCounts returns how many stored articles each category holds.
func (s *Store) CategoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM articles GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("query category counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[category] = n
	}
	return counts, rows.Err()
}

// Count returns the total number of stored articles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n)
	return n, err
}
