// Package fetch retrieves remote source data: syndication feeds over HTTP,
// static article pages, and JavaScript-rendered pages via the shared
// headless browser.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter enforces a per-host request budget before every outbound fetch,
// so frequent runs do not overload origin servers.
type Limiter struct {
	qps      float64
	limiters sync.Map
}

// NewLimiter builds a Limiter allowing qps requests per second per host.
// The default of 1 matches the ~1s artificial delay applied before fetches.
func NewLimiter(qps float64) *Limiter {
	if qps <= 0 {
		qps = 1
	}
	return &Limiter{qps: qps}
}

// Wait blocks until the host's budget allows another request.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url for rate limit: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := l.limiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(l.qps), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait host budget: %w", err)
	}
	return nil
}
