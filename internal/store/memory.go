package store

import (
	"context"
	"sync"
	"time"

	"github.com/feedloom/feedloom/internal/feed"
)

type storedArticle struct {
	article  feed.RawArticle
	storedAt time.Time
}

// MemoryStore is an in-memory ArticleStore for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	feeds map[string]map[string]storedArticle
	clock feed.Clock
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock injects the time source.
func WithClock(c feed.Clock) MemoryOption {
	return func(s *MemoryStore) { s.clock = c }
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		feeds: make(map[string]map[string]storedArticle),
		clock: systemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveArticles stores the articles, skipping URLs already present.
func (s *MemoryStore) SaveArticles(_ context.Context, feedID string, arts []feed.RawArticle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byURL, ok := s.feeds[feedID]
	if !ok {
		byURL = make(map[string]storedArticle)
		s.feeds[feedID] = byURL
	}

	stored := 0
	for _, art := range arts {
		if art.URL == "" {
			continue
		}
		if _, exists := byURL[art.URL]; exists {
			continue
		}
		byURL[art.URL] = storedArticle{article: art, storedAt: s.clock.Now()}
		stored++
	}
	return stored, nil
}

// ExistingURLs returns the URL set stored for the feed.
func (s *MemoryStore) ExistingURLs(_ context.Context, feedID string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]struct{}, len(s.feeds[feedID]))
	for url := range s.feeds[feedID] {
		out[url] = struct{}{}
	}
	return out, nil
}

// PostStats counts articles stored since the cutoff.
func (s *MemoryStore) PostStats(_ context.Context, feedID string, since time.Time) (feed.PostStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats feed.PostStats
	for _, rec := range s.feeds[feedID] {
		if rec.storedAt.Before(since) {
			continue
		}
		stats.Count++
		if rec.storedAt.After(stats.Latest) {
			stats.Latest = rec.storedAt
		}
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() {}
