// Package browser owns the process-wide headless Chrome instance and hands
// out scoped tabs to renderers. The browser is created lazily on first
// acquire, reused across pipeline runs, and torn down on shutdown.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls the shared browser instance.
type Config struct {
	// MaxTabs bounds concurrent tab acquisitions. Values <= 0 mean 1.
	MaxTabs int
	// UserAgent is applied to the browser process.
	UserAgent string
	// StartupTimeout bounds the initial browser warmup.
	StartupTimeout time.Duration
}

// Pool is the shared browser resource. Acquire/Release are safe under
// concurrent callers; creation happens exactly once.
type Pool struct {
	cfg    Config
	logger *zap.Logger

	startMu sync.Mutex
	started bool
	startErr error

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	sem chan struct{}

	closeOnce sync.Once
}

// NewPool builds an unstarted Pool. The browser process launches on the
// first Acquire.
func NewPool(cfg Config, logger *zap.Logger) *Pool {
	if cfg.MaxTabs <= 0 {
		cfg.MaxTabs = 1
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxTabs),
	}
}

// Tab is a scoped browser page. Release must be called on every exit path;
// it is safe to call more than once.
type Tab struct {
	ctx         context.Context
	cancel      context.CancelFunc
	releaseOnce sync.Once
	pool        *Pool
}

// Context returns the chromedp context bound to this tab.
func (t *Tab) Context() context.Context {
	return t.ctx
}

// Release closes the tab and returns its slot to the pool.
func (t *Tab) Release() {
	t.releaseOnce.Do(func() {
		t.cancel()
		<-t.pool.sem
	})
}

// Acquire blocks for a tab slot, starting the browser if needed.
func (p *Pool) Acquire(ctx context.Context) (*Tab, error) {
	if err := p.start(); err != nil {
		return nil, err
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire browser tab: %w", ctx.Err())
	}

	tabCtx, tabCancel := chromedp.NewContext(p.browserCtx)
	return &Tab{ctx: tabCtx, cancel: tabCancel, pool: p}, nil
}

// start launches the browser exactly once. Subsequent calls return the
// first outcome, so a failed launch is not retried silently mid-run.
func (p *Pool) start() error {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.started {
		return p.startErr
	}
	p.started = true

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if p.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(p.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	warmupCtx, warmupCancel := context.WithTimeout(browserCtx, p.cfg.StartupTimeout)
	defer warmupCancel()
	if err := chromedp.Run(warmupCtx); err != nil {
		browserCancel()
		allocCancel()
		p.startErr = fmt.Errorf("browser warmup: %w", err)
		return p.startErr
	}

	p.allocCancel = allocCancel
	p.browserCtx = browserCtx
	p.browserCancel = browserCancel
	p.logger.Info("headless browser started", zap.Int("max_tabs", p.cfg.MaxTabs))
	return nil
}

// Close tears down the browser process. Safe to call without a prior start
// and safe to call more than once; a best-effort synchronous close is all
// that is possible on hard process exit.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.startMu.Lock()
		defer p.startMu.Unlock()
		if p.browserCancel != nil {
			p.browserCancel()
		}
		if p.allocCancel != nil {
			p.allocCancel()
		}
		if p.started && p.startErr == nil {
			p.logger.Info("headless browser closed")
		}
	})
}
