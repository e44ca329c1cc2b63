// Package runner owns the ingestion loop: it executes the pipeline for every
// configured feed on a fixed cadence, persists the results, archives the raw
// run output, and announces stored batches to the publisher.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feedloom/feedloom/internal/api"
	"github.com/feedloom/feedloom/internal/archive"
	"github.com/feedloom/feedloom/internal/feed"
	"github.com/feedloom/feedloom/internal/pipeline"
	"github.com/feedloom/feedloom/internal/publisher"
	"github.com/feedloom/feedloom/internal/resilience"
	"github.com/feedloom/feedloom/internal/sources"
	"github.com/feedloom/feedloom/internal/store"
)

// DefaultTopic names the publish topic for stored article batches.
const DefaultTopic = "feedloom.articles"

// Config collects the Runner collaborators. Archiver and Publisher are
// optional; a nil value disables that concern.
type Config struct {
	Feeds     []feed.SourceConfig
	Registry  *sources.Registry
	Pipeline  *pipeline.Pipeline
	Store     store.ArticleStore
	Archiver  *archive.Archiver
	Publisher publisher.Publisher
	Topic     string
	Interval  time.Duration
	// MaxAttempts bounds pipeline runs per feed when failures are
	// classified as transient. Values <= 0 mean 3.
	MaxAttempts int
	// RetryBase seeds the exponential backoff between attempts.
	// Values <= 0 mean 2s.
	RetryBase time.Duration
	Clock     feed.Clock
	Logger    *zap.Logger
}

// Runner executes scheduled and on-demand pipeline runs.
type Runner struct {
	feeds     []feed.SourceConfig
	registry  *sources.Registry
	pipe      *pipeline.Pipeline
	store     store.ArticleStore
	archiver  *archive.Archiver
	publisher publisher.Publisher
	topic     string
	interval  time.Duration
	attempts  int
	retryBase time.Duration
	clock     feed.Clock
	logger    *zap.Logger

	mu       sync.RWMutex
	statuses map[string]api.RunStatus
}

// New builds a Runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = 2 * time.Second
	}
	return &Runner{
		feeds:     cfg.Feeds,
		registry:  cfg.Registry,
		pipe:      cfg.Pipeline,
		store:     cfg.Store,
		archiver:  cfg.Archiver,
		publisher: cfg.Publisher,
		topic:     topic,
		interval:  interval,
		attempts:  attempts,
		retryBase: retryBase,
		clock:     cfg.Clock,
		logger:    logger,
		statuses:  make(map[string]api.RunStatus),
	}
}

// Start runs every feed once immediately, then on each tick until the
// context is canceled.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("ingestion loop started",
		zap.Duration("interval", r.interval),
		zap.Int("feeds", len(r.feeds)),
	)

	r.RunAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("ingestion loop stopped")
			return
		case <-ticker.C:
			r.RunAll(ctx)
		}
	}
}

// RunAll executes one pipeline run per configured feed. Per-feed failures
// are recorded and do not stop the sweep.
func (r *Runner) RunAll(ctx context.Context) {
	for _, cfg := range r.feeds {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.runFeed(ctx, cfg, false); err != nil {
			r.logger.Warn("feed run failed",
				zap.String("feed_id", cfg.FeedID),
				zap.Error(err),
			)
		}
	}
}

// Feeds lists the managed feed configurations.
func (r *Runner) Feeds() []feed.SourceConfig {
	out := make([]feed.SourceConfig, len(r.feeds))
	copy(out, r.feeds)
	return out
}

// Trigger executes an on-demand run for one feed.
func (r *Runner) Trigger(ctx context.Context, feedID string, forceRefresh bool) (api.RunStatus, error) {
	for _, cfg := range r.feeds {
		if cfg.FeedID == feedID {
			return r.runFeed(ctx, cfg, forceRefresh)
		}
	}
	return api.RunStatus{}, api.ErrUnknownFeed
}

// LastStatus reports the most recent run status for the feed.
func (r *Runner) LastStatus(feedID string) (api.RunStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.statuses[feedID]
	return st, ok
}

func (r *Runner) runFeed(ctx context.Context, cfg feed.SourceConfig, forceRefresh bool) (api.RunStatus, error) {
	status := api.RunStatus{
		RunID:      uuid.NewString(),
		FeedID:     cfg.FeedID,
		SourceType: string(cfg.Type),
		Status:     "running",
		StartedAt:  r.now(),
	}
	r.setStatus(status)

	arts, err := r.execute(ctx, cfg, forceRefresh, &status)
	status.FinishedAt = r.now()
	if err != nil {
		status.Status = "error"
		status.Error = err.Error()
		r.setStatus(status)
		return status, err
	}
	status.Status = "ok"
	status.Articles = len(arts)
	r.setStatus(status)
	return status, nil
}

func (r *Runner) execute(ctx context.Context, cfg feed.SourceConfig, forceRefresh bool, status *api.RunStatus) ([]feed.RawArticle, error) {
	cfg, err := r.registry.NormalizeConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}
	strat, err := r.registry.StrategyFor(cfg.Type)
	if err != nil {
		return nil, err
	}

	existing, err := r.store.ExistingURLs(ctx, cfg.FeedID)
	if err != nil {
		return nil, fmt.Errorf("load existing urls: %w", err)
	}

	arts, err := r.runWithRetry(ctx, strat, pipeline.RunRequest{
		Source:       cfg,
		ForceRefresh: forceRefresh,
		ExistingURLs: existing,
	})
	if err != nil {
		return nil, err
	}

	stored, err := r.store.SaveArticles(ctx, cfg.FeedID, arts)
	if err != nil {
		return nil, fmt.Errorf("save articles: %w", err)
	}

	archiveURI := r.archiveRun(ctx, cfg, *status, arts)

	if r.publisher != nil && stored > 0 {
		event := publisher.ArticleBatchEvent{
			RunID:      status.RunID,
			FeedID:     cfg.FeedID,
			SourceType: string(cfg.Type),
			Stored:     stored,
			ArchiveURI: archiveURI,
		}
		if _, err := r.publisher.Publish(ctx, r.topic, event); err != nil {
			// Delivery is best-effort; the articles are already stored.
			r.logger.Warn("publish article batch failed",
				zap.String("feed_id", cfg.FeedID),
				zap.Error(err),
			)
		}
	}

	r.logger.Info("feed run stored articles",
		zap.String("feed_id", cfg.FeedID),
		zap.Int("returned", len(arts)),
		zap.Int("stored", stored),
	)
	return arts, nil
}

// runWithRetry re-runs the pipeline on transient failures. Parse and
// validation errors surface immediately.
func (r *Runner) runWithRetry(ctx context.Context, strat pipeline.Strategy, req pipeline.RunRequest) ([]feed.RawArticle, error) {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			delay := resilience.RetryDelay(attempt-1, r.retryBase)
			r.logger.Info("retrying feed run",
				zap.String("feed_id", req.Source.FeedID),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", delay),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		arts, err := r.pipe.Run(ctx, strat, req)
		if err == nil {
			return arts, nil
		}
		lastErr = err
		if !resilience.ShouldRetry(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (r *Runner) archiveRun(ctx context.Context, cfg feed.SourceConfig, status api.RunStatus, arts []feed.RawArticle) string {
	if r.archiver == nil || len(arts) == 0 {
		return ""
	}
	uri, err := r.archiver.ArchiveRun(ctx, archive.RunRecord{
		RunID:      status.RunID,
		FeedID:     cfg.FeedID,
		SourceType: cfg.Type,
		StartedAt:  status.StartedAt,
		Articles:   arts,
	})
	if err != nil {
		r.logger.Warn("archive run failed",
			zap.String("feed_id", cfg.FeedID),
			zap.Error(err),
		)
		return ""
	}
	return uri
}

func (r *Runner) setStatus(st api.RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[st.FeedID] = st
}

func (r *Runner) now() time.Time {
	if r.clock != nil {
		return r.clock.Now()
	}
	return time.Now().UTC()
}
