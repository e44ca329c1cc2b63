package archive

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feedloom/feedloom/internal/archive/memory"
	"github.com/feedloom/feedloom/internal/feed"
)

func TestArchiver_ArchiveRun(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	a := NewArchiver(store)

	started := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	rec := RunRecord{
		RunID:      "run-123",
		FeedID:     "f1",
		SourceType: feed.SourceRSS,
		StartedAt:  started,
		Articles: []feed.RawArticle{
			{Title: "a", URL: "https://example.com/a", Published: started},
		},
	}

	uri, err := a.ArchiveRun(context.Background(), rec)
	require.NoError(t, err)
	require.Equal(t, "memory://runs/f1/2026-03-02/run-123.json", uri)

	raw, ok := store.GetObject("runs/f1/2026-03-02/run-123.json")
	require.True(t, ok)

	var got RunRecord
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, rec.FeedID, got.FeedID)
	require.Len(t, got.Articles, 1)
	require.Equal(t, "https://example.com/a", got.Articles[0].URL)
}

func TestArchiver_RequiresIdentity(t *testing.T) {
	t.Parallel()

	a := NewArchiver(memory.NewBlobStore())

	_, err := a.ArchiveRun(context.Background(), RunRecord{FeedID: "f1"})
	require.Error(t, err)

	_, err = a.ArchiveRun(context.Background(), RunRecord{RunID: "run-123"})
	require.Error(t, err)
}
