// Package feed defines the core types and interfaces shared across the
// ingestion subsystems: the canonical article record, per-feed configuration,
// the error taxonomy, and the contracts the pipeline collaborators satisfy.
package feed

import (
	"time"
)

// SourceType identifies a content origin kind with its own strategy.
type SourceType string

// Source types known to the registry.
const (
	SourceRSS     SourceType = "rss"
	SourceWebPage SourceType = "webpage"
	SourceYouTube SourceType = "youtube"
	SourceReddit  SourceType = "reddit"
	SourcePodcast SourceType = "podcast"
)

// RawArticle is the canonical record produced per pipeline run. It is
// transient: the pipeline returns it to the caller, which owns persistence.
type RawArticle struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Published time.Time `json:"published"`

	// Content is the final processed HTML, populated by enrichment.
	// Summary is the fallback text used when enrichment degrades.
	Content string `json:"content,omitempty"`
	Summary string `json:"summary,omitempty"`

	Author       string `json:"author,omitempty"`
	ExternalID   string `json:"external_id,omitempty"`
	Score        int    `json:"score,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	MediaURL     string `json:"media_url,omitempty"`
	DurationSec  int    `json:"duration_sec,omitempty"`
	ViewCount    int64  `json:"view_count,omitempty"`
	MediaType    string `json:"media_type,omitempty"`
}

// FormatPolicy is the per-feed formatting policy applied by the processor.
type FormatPolicy struct {
	GenerateTitleImage  bool `json:"generate_title_image" mapstructure:"generate_title_image"`
	AddSourceFooter     bool `json:"add_source_footer" mapstructure:"add_source_footer"`
	UseCurrentTimestamp bool `json:"use_current_timestamp" mapstructure:"use_current_timestamp"`
}

// Daily post limit sentinels. Positive values are the daily target.
const (
	DailyLimitUnlimited = -1
	DailyLimitDisabled  = 0
)

// SourceConfig is the read-only per-feed configuration consumed by a run.
// It is owned by the external CRUD layer; the pipeline never persists it.
type SourceConfig struct {
	FeedID string     `json:"feed_id" mapstructure:"feed_id"`
	Name   string     `json:"name" mapstructure:"name"`
	Type   SourceType `json:"type" mapstructure:"type"`
	URL    string     `json:"url" mapstructure:"url"`

	Policy         FormatPolicy `json:"policy" mapstructure:"policy"`
	DailyPostLimit int          `json:"daily_post_limit" mapstructure:"daily_post_limit"`

	// Options is the opaque per-source options bag, validated against the
	// source's option schema before a run starts.
	Options map[string]any `json:"options" mapstructure:"options"`

	// Credentials are supplied by the external user-settings store for
	// vendor-API-backed sources. Absence of a required key is a fatal
	// validation error.
	Credentials map[string]string `json:"-" mapstructure:"credentials"`
}

// Option reads a typed option with a fallback default.
func (c SourceConfig) Option(key string) (any, bool) {
	if c.Options == nil {
		return nil, false
	}
	v, ok := c.Options[key]
	return v, ok
}

// StringOption returns the option as a string, or fallback when unset.
func (c SourceConfig) StringOption(key, fallback string) string {
	if v, ok := c.Option(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// BoolOption returns the option as a bool, or fallback when unset.
func (c SourceConfig) BoolOption(key string, fallback bool) bool {
	if v, ok := c.Option(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

// IntOption returns the option as an int, or fallback when unset. JSON
// decoding yields float64 for numbers, so both are accepted.
func (c SourceConfig) IntOption(key string, fallback int) int {
	v, ok := c.Option(key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

// PostStats summarizes a feed's persisted activity since a cutoff. Latest is
// the zero time when no post exists in the window.
type PostStats struct {
	Count  int
	Latest time.Time
}
