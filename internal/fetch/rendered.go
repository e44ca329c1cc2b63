package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/feedloom/feedloom/internal/browser"
	"github.com/feedloom/feedloom/internal/feed"
)

// RenderedFetcher implements feed.Renderer on top of the shared browser
// pool. Every fetch acquires its own tab and releases it on all exit paths.
type RenderedFetcher struct {
	pool           *browser.Pool
	limiter        *Limiter
	defaultTimeout time.Duration
	logger         *zap.Logger
}

// NewRenderedFetcher builds a RenderedFetcher.
func NewRenderedFetcher(pool *browser.Pool, limiter *Limiter, defaultTimeout time.Duration, logger *zap.Logger) *RenderedFetcher {
	if defaultTimeout <= 0 {
		defaultTimeout = 25 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RenderedFetcher{
		pool:           pool,
		limiter:        limiter,
		defaultTimeout: defaultTimeout,
		logger:         logger,
	}
}

// Render navigates with JavaScript enabled and returns the DOM snapshot.
// When opts.WaitSelector is set the renderer additionally waits for it to
// become visible, attesting that client-side rendering finished.
func (r *RenderedFetcher) Render(ctx context.Context, url string, opts feed.RenderOptions) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, url); err != nil {
			return "", &feed.FetchError{URL: url, Err: err}
		}
	}

	tab, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", &feed.FetchError{URL: url, Err: err}
	}
	defer tab.Release()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	taskCtx, cancel := context.WithTimeout(tab.Context(), timeout)
	defer cancel()

	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	status := recordDocumentStatus(taskCtx)

	tasks := chromedp.Tasks{
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if opts.WaitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery))
	}
	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(taskCtx, tasks); err != nil {
		r.logger.Warn("rendered fetch failed",
			zap.String("url", url),
			zap.String("wait_selector", opts.WaitSelector),
			zap.Error(err),
		)
		return "", &feed.FetchError{URL: url, Err: err}
	}
	if code := status.code(); code >= 400 {
		return "", &feed.FetchError{URL: url, Err: fmt.Errorf("document status %d", code)}
	}
	return html, nil
}

type documentStatus struct {
	once sync.Once
	val  int
}

func (d *documentStatus) code() int { return d.val }

// recordDocumentStatus captures the status of the main document response;
// subresource responses are ignored.
func recordDocumentStatus(tabCtx context.Context) *documentStatus {
	status := &documentStatus{}
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		status.once.Do(func() {
			status.val = int(resp.Response.Status)
		})
	})
	return status
}

// forwardCancel propagates the caller's cancellation into the chromedp task
// context, which is derived from the browser rather than the caller.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
