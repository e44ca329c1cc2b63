package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/feedloom/feedloom/internal/feed"
)

// PageFetcher retrieves static HTML pages using a Colly collector with a
// pooled transport. It is the fast path for pages that do not need
// JavaScript execution.
type PageFetcher struct {
	cfg           PageConfig
	limiter       *Limiter
	baseCollector *colly.Collector
}

// PageConfig controls collector behavior.
type PageConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// NewPageFetcher builds a PageFetcher.
func NewPageFetcher(limiter *Limiter, cfg PageConfig) *PageFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &PageFetcher{cfg: cfg, limiter: limiter, baseCollector: c}
}

// FetchPage executes a single HTTP GET and returns the response body.
func (f *PageFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, url); err != nil {
			return "", &feed.FetchError{URL: url, Err: err}
		}
	}

	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return "", &feed.FetchError{URL: url, Err: err}
	}
	return string(body), nil
}

func (f *PageFetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("page fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit: %w", err)
		}
		if *fetchErr != nil {
			return *fetchErr
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
