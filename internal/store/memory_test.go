package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feedloom/feedloom/internal/feed"
)

type tickClock struct {
	now  time.Time
	step time.Duration
}

func (c *tickClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	t.Parallel()

	clock := &tickClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), step: time.Minute}
	s := NewMemoryStore(WithClock(clock))
	ctx := context.Background()

	stored, err := s.SaveArticles(ctx, "f1", []feed.RawArticle{
		{Title: "a", URL: "https://example.com/a"},
		{Title: "b", URL: "https://example.com/b"},
		{Title: "dup", URL: "https://example.com/a"},
		{Title: "no url"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, stored)

	urls, err := s.ExistingURLs(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, urls, 2)
	require.Contains(t, urls, "https://example.com/a")

	stats, err := s.PostStats(ctx, "f1", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 2, stats.Count)
	require.Equal(t, time.Date(2026, 3, 2, 10, 2, 0, 0, time.UTC), stats.Latest)
}

func TestMemoryStore_PostStatsHonorsCutoff(t *testing.T) {
	t.Parallel()

	clock := &tickClock{now: time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC), step: time.Hour}
	s := NewMemoryStore(WithClock(clock))
	ctx := context.Background()

	// First stored at 2026-03-02 00:00, second at 01:00.
	_, err := s.SaveArticles(ctx, "f1", []feed.RawArticle{{URL: "https://example.com/a"}})
	require.NoError(t, err)
	_, err = s.SaveArticles(ctx, "f1", []feed.RawArticle{{URL: "https://example.com/b"}})
	require.NoError(t, err)

	stats, err := s.PostStats(ctx, "f1", time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 1, stats.Count)

	stats, err = s.PostStats(ctx, "f2", time.Time{})
	require.NoError(t, err)
	require.Zero(t, stats.Count)
	require.True(t, stats.Latest.IsZero())
}
