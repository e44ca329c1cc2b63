package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedloom/feedloom/internal/feed"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool behind the article store.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore is the Postgres-backed ArticleStore.
//
// Expected schema:
//
//	CREATE TABLE articles (
//	    id UUID PRIMARY KEY,
//	    feed_id TEXT NOT NULL,
//	    title TEXT NOT NULL,
//	    url TEXT NOT NULL,
//	    published TIMESTAMPTZ NOT NULL,
//	    content TEXT,
//	    summary TEXT,
//	    author TEXT,
//	    external_id TEXT,
//	    score INT,
//	    thumbnail_url TEXT,
//	    media_url TEXT,
//	    duration_sec INT,
//	    view_count BIGINT,
//	    media_type TEXT,
//	    stored_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    UNIQUE (feed_id, url)
//	);
type PostgresStore struct {
	pool  pgxPool
	table string
}

// NewPostgresStore connects a pool and returns the store.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newPostgresStore(pool, cfg.Table)
}

// NewPostgresStoreWithPool constructs a store from an existing pool,
// primarily for testing.
func NewPostgresStoreWithPool(pool pgxPool, table string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newPostgresStore(pool, table)
}

func newPostgresStore(pool pgxPool, table string) (*PostgresStore, error) {
	if table == "" {
		table = "articles"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// SaveArticles inserts the articles, skipping (feed_id, url) duplicates.
func (s *PostgresStore) SaveArticles(ctx context.Context, feedID string, arts []feed.RawArticle) (int, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, feed_id, title, url, published, content, summary, author,
	external_id, score, thumbnail_url, media_url, duration_sec,
	view_count, media_type
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (feed_id, url) DO NOTHING`, s.table)

	stored := 0
	for _, art := range arts {
		if art.URL == "" {
			continue
		}
		tag, err := s.pool.Exec(ctx, query,
			uuid.NewString(),
			feedID,
			art.Title,
			art.URL,
			art.Published,
			art.Content,
			art.Summary,
			art.Author,
			art.ExternalID,
			art.Score,
			art.ThumbnailURL,
			art.MediaURL,
			art.DurationSec,
			art.ViewCount,
			art.MediaType,
		)
		if err != nil {
			return stored, fmt.Errorf("insert article %s: %w", art.URL, err)
		}
		stored += int(tag.RowsAffected())
	}
	return stored, nil
}

// ExistingURLs returns the URL set stored for the feed.
func (s *PostgresStore) ExistingURLs(ctx context.Context, feedID string) (map[string]struct{}, error) {
	query := fmt.Sprintf(`SELECT url FROM %s WHERE feed_id = $1`, s.table)

	rows, err := s.pool.Query(ctx, query, feedID)
	if err != nil {
		return nil, fmt.Errorf("query existing urls: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		out[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate urls: %w", err)
	}
	return out, nil
}

// PostStats counts articles stored for the feed since the cutoff.
func (s *PostgresStore) PostStats(ctx context.Context, feedID string, since time.Time) (feed.PostStats, error) {
	query := fmt.Sprintf(`
SELECT COUNT(*), COALESCE(MAX(stored_at), 'epoch'::timestamptz)
FROM %s WHERE feed_id = $1 AND stored_at >= $2`, s.table)

	var stats feed.PostStats
	var latest time.Time
	if err := s.pool.QueryRow(ctx, query, feedID, since).Scan(&stats.Count, &latest); err != nil {
		return feed.PostStats{}, fmt.Errorf("query post stats: %w", err)
	}
	// The epoch sentinel means no rows in the window.
	if stats.Count > 0 {
		stats.Latest = latest
	}
	return stats, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
