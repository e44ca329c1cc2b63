package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/feedloom/feedloom/internal/feed"
)

// Quota scheduler defaults.
const (
	// DefaultUnlimitedPerRun caps a single run for feeds with an unlimited
	// daily limit, preventing runaway single-run ingestion.
	DefaultUnlimitedPerRun = 25
	// DefaultMinRunInterval floors the estimated scheduler cadence so a
	// burst of posts does not blow up the remaining-runs division.
	DefaultMinRunInterval = 5 * time.Minute
)

// QuotaScheduler distributes a feed's daily post limit evenly across the
// estimated pipeline runs remaining before the next UTC midnight. The
// elapsed time since the most recently added post serves as a proxy for the
// external scheduler's run interval.
type QuotaScheduler struct {
	stats           feed.StatsProvider
	clock           feed.Clock
	unlimitedPerRun int
	minRunInterval  time.Duration
}

// NewQuotaScheduler builds a QuotaScheduler.
func NewQuotaScheduler(stats feed.StatsProvider, clock feed.Clock) *QuotaScheduler {
	return &QuotaScheduler{
		stats:           stats,
		clock:           clock,
		unlimitedPerRun: DefaultUnlimitedPerRun,
		minRunInterval:  DefaultMinRunInterval,
	}
}

// DynamicLimit computes how many new items the feed may emit in this run.
// The result is always >= 0.
func (q *QuotaScheduler) DynamicLimit(ctx context.Context, cfg feed.SourceConfig, forceRefresh bool) (int, error) {
	limit := cfg.DailyPostLimit
	switch {
	case limit == feed.DailyLimitUnlimited:
		return q.unlimitedPerRun, nil
	case limit == feed.DailyLimitDisabled:
		return 0, nil
	case limit < 0:
		// Anything below -1 is a configuration bug; treat as disabled.
		return 0, nil
	}

	// A forced refresh ignores today's count and grants the full daily
	// limit for this run.
	if forceRefresh {
		return limit, nil
	}

	now := q.clock.Now().UTC()
	midnight := now.Truncate(24 * time.Hour)

	stats, err := q.stats.PostStats(ctx, cfg.FeedID, midnight)
	if err != nil {
		return 0, fmt.Errorf("post stats for feed %s: %w", cfg.FeedID, err)
	}

	remaining := limit - stats.Count
	if remaining <= 0 {
		return 0, nil
	}

	// Estimate the scheduler's run interval from the time since the last
	// post today, or since midnight when nothing has been added yet.
	interval := now.Sub(stats.Latest)
	if stats.Latest.IsZero() {
		interval = now.Sub(midnight)
	}
	if interval < q.minRunInterval {
		interval = q.minRunInterval
	}

	untilMidnight := midnight.Add(24 * time.Hour).Sub(now)
	runs := int(untilMidnight / interval)
	if runs < 1 {
		runs = 1
	}

	per := (remaining + runs - 1) / runs
	if per < 1 {
		per = 1
	}
	return per, nil
}
