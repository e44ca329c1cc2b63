// Package store persists the articles the pipeline produces and answers the
// two read queries the pipeline needs per run: the set of already stored
// URLs and the posts-since-midnight stats the quota scheduler consumes.
package store

import (
	"context"
	"time"

	"github.com/feedloom/feedloom/internal/feed"
)

// ArticleStore is the persistence contract for pipeline output.
type ArticleStore interface {
	// SaveArticles inserts the run's articles for the feed, skipping URLs
	// already present. It returns the number of newly stored rows.
	SaveArticles(ctx context.Context, feedID string, arts []feed.RawArticle) (int, error)
	// ExistingURLs returns the set of URLs already stored for the feed.
	ExistingURLs(ctx context.Context, feedID string) (map[string]struct{}, error)
	// PostStats reports how many articles were stored for the feed since
	// the cutoff and when the latest one arrived.
	PostStats(ctx context.Context, feedID string, since time.Time) (feed.PostStats, error)
	// Close releases the store's resources.
	Close()
}
