package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feedloom/feedloom/internal/feed"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fakeStats struct {
	stats feed.PostStats
	err   error
}

func (s fakeStats) PostStats(context.Context, string, time.Time) (feed.PostStats, error) {
	return s.stats, s.err
}

func TestQuotaScheduler_DynamicLimit(t *testing.T) {
	t.Parallel()

	noon := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		dailyLimit   int
		forceRefresh bool
		now          time.Time
		stats        feed.PostStats
		want         int
	}{
		{
			name:       "unlimited gets the per run ceiling",
			dailyLimit: feed.DailyLimitUnlimited,
			now:        noon,
			want:       DefaultUnlimitedPerRun,
		},
		{
			name:       "disabled yields zero",
			dailyLimit: feed.DailyLimitDisabled,
			now:        noon,
			want:       0,
		},
		{
			name:       "negative misconfiguration yields zero",
			dailyLimit: -7,
			now:        noon,
			want:       0,
		},
		{
			name:         "force refresh grants the full daily limit",
			dailyLimit:   10,
			forceRefresh: true,
			now:          noon,
			stats:        feed.PostStats{Count: 9, Latest: noon.Add(-time.Hour)},
			want:         10,
		},
		{
			name:       "exhausted quota yields zero",
			dailyLimit: 5,
			now:        noon,
			stats:      feed.PostStats{Count: 5, Latest: noon.Add(-time.Hour)},
			want:       0,
		},
		{
			name:       "remaining spread across estimated runs",
			dailyLimit: 10,
			now:        noon,
			// 30 minute cadence, 24 runs until midnight, 6 remaining.
			stats: feed.PostStats{Count: 4, Latest: noon.Add(-30 * time.Minute)},
			want:  1,
		},
		{
			name:       "no posts today grants a large first slice",
			dailyLimit: 100,
			now:        noon,
			// Latest is zero, interval is time since midnight (12h), one run left.
			stats: feed.PostStats{Count: 0},
			want:  100,
		},
		{
			name:       "last run of the day takes everything remaining",
			dailyLimit: 20,
			now:        time.Date(2026, 3, 2, 23, 50, 0, 0, time.UTC),
			stats: feed.PostStats{
				Count:  12,
				Latest: time.Date(2026, 3, 2, 23, 40, 0, 0, time.UTC),
			},
			want: 8,
		},
		{
			name:       "burst cadence is floored at the minimum interval",
			dailyLimit: 48,
			now:        noon,
			// 10 second cadence would estimate thousands of runs; the 5
			// minute floor caps it at 144.
			stats: feed.PostStats{Count: 0, Latest: noon.Add(-10 * time.Second)},
			want:  1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			q := NewQuotaScheduler(fakeStats{stats: tc.stats}, fakeClock{now: tc.now})
			cfg := feed.SourceConfig{FeedID: "feed-1", DailyPostLimit: tc.dailyLimit}

			got, err := q.DynamicLimit(context.Background(), cfg, tc.forceRefresh)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestQuotaScheduler_StatsErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	q := NewQuotaScheduler(fakeStats{err: boom}, fakeClock{now: time.Now()})
	cfg := feed.SourceConfig{FeedID: "feed-1", DailyPostLimit: 10}

	_, err := q.DynamicLimit(context.Background(), cfg, false)
	require.ErrorIs(t, err, boom)
}
