package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/feedloom/feedloom/internal/feed"
)

// DefaultUserAgent identifies the service to origin servers.
const DefaultUserAgent = "feedloom/1.0 (+https://github.com/feedloom/feedloom)"

// FeedFetcher retrieves and parses syndication documents with gofeed. It
// performs no retries; retry policy belongs to the caller.
type FeedFetcher struct {
	parser  *gofeed.Parser
	limiter *Limiter
	timeout time.Duration
}

// NewFeedFetcher builds a FeedFetcher with a fixed user agent and per-call
// timeout.
func NewFeedFetcher(limiter *Limiter, userAgent string, timeout time.Duration) *FeedFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &FeedFetcher{parser: parser, limiter: limiter, timeout: timeout}
}

// FetchFeed GETs and parses the feed at url. Non-2xx responses and parse
// failures both surface as a FetchError carrying the original cause.
func (f *FeedFetcher) FetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, url); err != nil {
			return nil, &feed.FetchError{URL: url, Err: err}
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parsed, err := f.parser.ParseURLWithContext(url, fetchCtx)
	if err != nil {
		return nil, &feed.FetchError{URL: url, Err: fmt.Errorf("parse feed: %w", err)}
	}
	return parsed, nil
}
