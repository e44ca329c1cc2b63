package feed

import (
	"context"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedFetcher retrieves and parses a syndication document over HTTP.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, url string) (*gofeed.Feed, error)
}

// PageFetcher retrieves a static HTML page without JavaScript execution.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// RenderOptions control a single rendered-page fetch.
type RenderOptions struct {
	// Timeout bounds navigation plus any selector wait. Zero means the
	// renderer default.
	Timeout time.Duration
	// WaitSelector, when set, is a CSS selector the renderer waits for
	// after the content-loaded event, attesting client-side rendering
	// finished.
	WaitSelector string
}

// Renderer executes a page in a headless browser and returns its DOM
// snapshot. Implementations must release the page resource on every exit
// path.
type Renderer interface {
	Render(ctx context.Context, url string, opts RenderOptions) (string, error)
}

// ExtractOptions configure content extraction for a feed.
type ExtractOptions struct {
	// ContentSelector names the content root. Empty means the fallback
	// chain (article, main, [role=main], body).
	ContentSelector string
	// RemoveSelectors are stripped from the extracted subtree.
	RemoveSelectors []string
}

// Extractor isolates the meaningful content sub-tree from raw HTML.
type Extractor interface {
	Extract(html string, opts ExtractOptions) (string, error)
}

// Processor sanitizes extracted HTML and applies the feed's format policy.
// Processing is idempotent: reprocessing already-processed content must not
// duplicate the injected blocks.
type Processor interface {
	Process(html string, art RawArticle, policy FormatPolicy) (string, error)
}

// ContentCache maps (sourceID, url) to previously processed content.
type ContentCache interface {
	Get(sourceID, url string) (string, bool)
	Set(sourceID, url, content string)
}

// StatsProvider supplies a feed's persisted post activity, used by the
// quota scheduler.
type StatsProvider interface {
	PostStats(ctx context.Context, feedID string, since time.Time) (PostStats, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
