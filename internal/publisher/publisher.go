// Package publisher declares the event publishing contract used to announce
// newly stored articles to downstream consumers.
package publisher

import "context"

// Publisher delivers a payload to a named topic and returns the message id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// ArticleBatchEvent is the payload announcing one pipeline run's stored
// articles.
type ArticleBatchEvent struct {
	RunID      string `json:"run_id"`
	FeedID     string `json:"feed_id"`
	SourceType string `json:"source_type"`
	Stored     int    `json:"stored"`
	ArchiveURI string `json:"archive_uri,omitempty"`
}
