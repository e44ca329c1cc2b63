package pipeline

import (
	"context"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/feedloom/feedloom/internal/feed"
)

// Option keys honored by the default strategy. Concrete sources may define
// additional keys in their own option schemas.
const (
	OptContentSelector = "content_selector"
	OptRemoveSelectors = "remove_selectors"
	OptRenderJS        = "render_js"
	OptWaitSelector    = "wait_selector"
)

// Strategy is the capability set a source type can customize. Every method
// has a baseline implementation in BaseStrategy; concrete sources embed it
// and override only the stages that differ.
type Strategy interface {
	// Validate confirms required configuration before any fetch happens.
	// A returned error is fatal for the run.
	Validate(ctx context.Context, cfg feed.SourceConfig) error
	// FetchSourceData retrieves the source's opaque payload (parsed feed,
	// API response).
	FetchSourceData(ctx context.Context, cfg feed.SourceConfig, limit int) (any, error)
	// ParseArticles deterministically maps the payload to raw articles.
	ParseArticles(cfg feed.SourceConfig, payload any) ([]feed.RawArticle, error)
	// ShouldSkipArticle applies source-specific content/title filters.
	ShouldSkipArticle(cfg feed.SourceConfig, art feed.RawArticle) bool
	// ShouldFetchContent reports whether the item's content must be
	// fetched from the web; items with inline content pass through.
	ShouldFetchContent(cfg feed.SourceConfig, art feed.RawArticle) bool
	// ExtractContent isolates the meaningful fragment of a fetched page.
	ExtractContent(html string, cfg feed.SourceConfig) (string, error)
	// ProcessContent sanitizes and formats the extracted fragment.
	ProcessContent(html string, art feed.RawArticle, cfg feed.SourceConfig) (string, error)
	// ValidateContent rejects unusable enrichment output; a failing item
	// is dropped with a warning, not fatal.
	ValidateContent(content string) error
}

// Deps are the collaborators the default strategy builds on.
type Deps struct {
	Feeds     feed.FeedFetcher
	Extractor feed.Extractor
	Processor feed.Processor
	Clock     feed.Clock
}

// BaseStrategy provides the baseline pipeline behavior: a generic RSS/Atom
// source with goquery extraction and policy processing. A source that
// overrides nothing still produces a working pipeline.
type BaseStrategy struct {
	Deps Deps
}

// NewBaseStrategy builds a BaseStrategy.
func NewBaseStrategy(deps Deps) *BaseStrategy {
	return &BaseStrategy{Deps: deps}
}

// Validate requires a feed URL.
func (s *BaseStrategy) Validate(_ context.Context, cfg feed.SourceConfig) error {
	if strings.TrimSpace(cfg.URL) == "" {
		return feed.NewValidationError("url", "feed url is required")
	}
	return nil
}

// FetchSourceData fetches and parses the syndication document.
func (s *BaseStrategy) FetchSourceData(ctx context.Context, cfg feed.SourceConfig, _ int) (any, error) {
	return s.Deps.Feeds.FetchFeed(ctx, cfg.URL)
}

// ParseArticles maps a gofeed document to raw articles. Items without a
// link are dropped here; url is the stable external identity downstream.
func (s *BaseStrategy) ParseArticles(cfg feed.SourceConfig, payload any) ([]feed.RawArticle, error) {
	parsed, ok := payload.(*gofeed.Feed)
	if !ok {
		return nil, feed.NewValidationError("payload", "expected a parsed feed")
	}

	arts := make([]feed.RawArticle, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}
		arts = append(arts, s.articleFromItem(cfg, item))
	}
	return arts, nil
}

func (s *BaseStrategy) articleFromItem(cfg feed.SourceConfig, item *gofeed.Item) feed.RawArticle {
	art := feed.RawArticle{
		Title:      strings.TrimSpace(item.Title),
		URL:        item.Link,
		Summary:    strings.TrimSpace(item.Description),
		Content:    strings.TrimSpace(item.Content),
		ExternalID: item.GUID,
	}

	switch {
	case cfg.Policy.UseCurrentTimestamp:
		art.Published = s.Deps.Clock.Now()
	case item.PublishedParsed != nil:
		art.Published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		art.Published = *item.UpdatedParsed
	default:
		art.Published = s.Deps.Clock.Now()
	}

	if item.Author != nil {
		art.Author = item.Author.Name
	}
	if item.Image != nil {
		art.ThumbnailURL = item.Image.URL
	}
	return art
}

// ShouldSkipArticle keeps everything by default.
func (s *BaseStrategy) ShouldSkipArticle(_ feed.SourceConfig, _ feed.RawArticle) bool {
	return false
}

// ShouldFetchContent fetches only when the feed supplied no inline content.
func (s *BaseStrategy) ShouldFetchContent(_ feed.SourceConfig, art feed.RawArticle) bool {
	return strings.TrimSpace(art.Content) == ""
}

// ExtractContent applies the feed's extraction options.
func (s *BaseStrategy) ExtractContent(html string, cfg feed.SourceConfig) (string, error) {
	return s.Deps.Extractor.Extract(html, feed.ExtractOptions{
		ContentSelector: cfg.StringOption(OptContentSelector, ""),
		RemoveSelectors: removeSelectors(cfg),
	})
}

// ProcessContent applies the feed's format policy.
func (s *BaseStrategy) ProcessContent(html string, art feed.RawArticle, cfg feed.SourceConfig) (string, error) {
	return s.Deps.Processor.Process(html, art, cfg.Policy)
}

// ValidateContent rejects empty enrichment output.
func (s *BaseStrategy) ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return feed.NewValidationError("content", "empty after extraction")
	}
	return nil
}

func removeSelectors(cfg feed.SourceConfig) []string {
	raw := cfg.StringOption(OptRemoveSelectors, "")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
