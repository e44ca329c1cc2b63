// Package archive persists raw pipeline output as JSON blobs, one object per
// run, for replay and offline analysis. The blob backend is pluggable:
// Google Cloud Storage in production, the local filesystem or memory for
// development.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/feedloom/feedloom/internal/feed"
)

// BlobStore writes a blob and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// RunRecord is the archived form of one pipeline run.
type RunRecord struct {
	RunID      string            `json:"run_id"`
	FeedID     string            `json:"feed_id"`
	SourceType feed.SourceType   `json:"source_type"`
	StartedAt  time.Time         `json:"started_at"`
	Articles   []feed.RawArticle `json:"articles"`
}

// Archiver serializes run records into a blob store.
type Archiver struct {
	store BlobStore
}

// NewArchiver builds an Archiver.
func NewArchiver(store BlobStore) *Archiver {
	return &Archiver{store: store}
}

// ArchiveRun writes the record under runs/<feed>/<day>/<run-id>.json and
// returns the blob URI.
func (a *Archiver) ArchiveRun(ctx context.Context, rec RunRecord) (string, error) {
	if rec.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}
	if rec.FeedID == "" {
		return "", fmt.Errorf("feed id is required")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal run record: %w", err)
	}

	path := fmt.Sprintf("runs/%s/%s/%s.json",
		rec.FeedID, rec.StartedAt.UTC().Format("2006-01-02"), rec.RunID)

	uri, err := a.store.PutObject(ctx, path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("put run record: %w", err)
	}
	return uri, nil
}
