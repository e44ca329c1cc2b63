// Package pipeline implements the staged ingestion run shared by all source
// types: validate, fetch source data, parse, filter, enrich, finalize. Source
// strategies customize individual stages; the orchestration, quota
// accounting, caching and per-item degradation live here.
package pipeline

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/feedloom/feedloom/internal/feed"
	"github.com/feedloom/feedloom/internal/metrics"
)

// RunRequest describes a single pipeline run for one feed.
type RunRequest struct {
	Source feed.SourceConfig
	// ForceRefresh bypasses the cache read and the quota accounting,
	// granting the full daily limit for this run.
	ForceRefresh bool
	// ExistingURLs are article URLs the caller already holds for this
	// feed. Matching items are dropped before quota truncation.
	ExistingURLs map[string]struct{}
	// Limit, when positive, caps the run below whatever the quota
	// scheduler allows.
	Limit int
}

// Pipeline orchestrates runs. Collaborators are shared across feeds; the
// strategy is chosen per run.
type Pipeline struct {
	quota    *QuotaScheduler
	cache    feed.ContentCache
	pages    feed.PageFetcher
	renderer feed.Renderer
	logger   *zap.Logger
}

// Config collects the Pipeline collaborators. Renderer may be nil, in which
// case render_js feeds fall back to static fetching.
type Config struct {
	Quota    *QuotaScheduler
	Cache    feed.ContentCache
	Pages    feed.PageFetcher
	Renderer feed.Renderer
	Logger   *zap.Logger
}

// New builds a Pipeline.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		quota:    cfg.Quota,
		cache:    cfg.Cache,
		pages:    cfg.Pages,
		renderer: cfg.Renderer,
		logger:   logger,
	}
}

// Run executes the staged pipeline for one feed and returns the finished
// articles, newest first. A stage error is fatal and wrapped in a
// *PipelineError; per-item enrichment failures degrade instead.
func (p *Pipeline) Run(ctx context.Context, strat Strategy, req RunRequest) ([]feed.RawArticle, error) {
	cfg := req.Source
	start := time.Now()
	logger := p.logger.With(
		zap.String("feed_id", cfg.FeedID),
		zap.String("source_type", string(cfg.Type)),
	)

	arts, err := p.run(ctx, strat, req, logger)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ObserveRun(string(cfg.Type), status, time.Since(start))
	metrics.ObserveArticles(string(cfg.Type), len(arts))
	if err != nil {
		logger.Error("pipeline run failed", zap.Error(err))
		return nil, err
	}

	logger.Info("pipeline run complete",
		zap.Int("articles", len(arts)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return arts, nil
}

func (p *Pipeline) run(ctx context.Context, strat Strategy, req RunRequest, logger *zap.Logger) ([]feed.RawArticle, error) {
	cfg := req.Source

	if err := strat.Validate(ctx, cfg); err != nil {
		return nil, stageErr(StageValidate, cfg.FeedID, err)
	}

	limit, err := p.quota.DynamicLimit(ctx, cfg, req.ForceRefresh)
	if err != nil {
		return nil, stageErr(StageFilter, cfg.FeedID, err)
	}
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}
	if limit == 0 {
		logger.Debug("daily quota exhausted, skipping run")
		return nil, nil
	}

	payload, err := strat.FetchSourceData(ctx, cfg, limit)
	if err != nil {
		return nil, stageErr(StageFetchSource, cfg.FeedID, err)
	}

	arts, err := strat.ParseArticles(cfg, payload)
	if err != nil {
		return nil, stageErr(StageParse, cfg.FeedID, err)
	}

	arts = p.filter(strat, req, arts, limit, logger)

	out := make([]feed.RawArticle, 0, len(arts))
	for _, art := range arts {
		if err := ctx.Err(); err != nil {
			return nil, stageErr(StageEnrich, cfg.FeedID, err)
		}
		enriched, keep := p.enrich(ctx, strat, cfg, art, req.ForceRefresh, logger)
		if keep {
			out = append(out, enriched)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Published.After(out[j].Published)
	})
	return out, nil
}

// filter drops known and unwanted items, then truncates to the quota limit.
func (p *Pipeline) filter(strat Strategy, req RunRequest, arts []feed.RawArticle, limit int, logger *zap.Logger) []feed.RawArticle {
	kept := arts[:0]
	for _, art := range arts {
		if art.URL == "" {
			continue
		}
		if !req.ForceRefresh {
			if _, exists := req.ExistingURLs[art.URL]; exists {
				continue
			}
		}
		if strat.ShouldSkipArticle(req.Source, art) {
			logger.Debug("article filtered by source strategy", zap.String("url", art.URL))
			continue
		}
		kept = append(kept, art)
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// enrich runs the fetch, extract, process chain for one item. Items whose
// content needs no web fetch pass through unchanged. Failures degrade
// stepwise: a fetch failure keeps the summary, an extraction failure keeps
// the raw page, a processing failure keeps the extracted fragment. Only a
// fully processed result is written back to the cache. An item whose final
// content fails validation is dropped.
func (p *Pipeline) enrich(ctx context.Context, strat Strategy, cfg feed.SourceConfig, art feed.RawArticle, forceRefresh bool, logger *zap.Logger) (feed.RawArticle, bool) {
	content := art.Content

	if strat.ShouldFetchContent(cfg, art) {
		cached, hit := "", false
		if !forceRefresh {
			cached, hit = p.cache.Get(cfg.FeedID, art.URL)
			metrics.ObserveCacheLookup(hit)
		}
		if hit {
			content = cached
		} else {
			var processed bool
			content, processed = p.fetchAndProcess(ctx, strat, cfg, art, logger)
			if processed && content != "" {
				p.cache.Set(cfg.FeedID, art.URL, content)
			}
		}
	}

	if err := strat.ValidateContent(content); err != nil {
		logger.Warn("dropping article with unusable content",
			zap.String("url", art.URL),
			zap.Error(err),
		)
		return art, false
	}
	art.Content = content
	return art, true
}

// fetchAndProcess reports whether the returned content completed the full
// chain; degraded fallbacks are returned with processed=false and must not
// be cached.
func (p *Pipeline) fetchAndProcess(ctx context.Context, strat Strategy, cfg feed.SourceConfig, art feed.RawArticle, logger *zap.Logger) (string, bool) {
	raw, err := p.fetchPage(ctx, cfg, art.URL)
	if err != nil {
		metrics.ObserveDegrade("fetch")
		logger.Warn("content fetch failed, falling back to summary",
			zap.String("url", art.URL),
			zap.Error(err),
		)
		return art.Summary, false
	}

	extracted, err := strat.ExtractContent(raw, cfg)
	if err != nil {
		metrics.ObserveDegrade("extract")
		logger.Warn("content extraction failed, keeping raw page",
			zap.String("url", art.URL),
			zap.Error(err),
		)
		return raw, false
	}

	processed, err := strat.ProcessContent(extracted, art, cfg)
	if err != nil {
		metrics.ObserveDegrade("process")
		logger.Warn("content processing failed, keeping extracted fragment",
			zap.String("url", art.URL),
			zap.Error(err),
		)
		return extracted, false
	}
	return processed, true
}

// fetchPage selects the fetch mode: a headless render when the feed opts in
// and a renderer is wired, otherwise a plain HTTP fetch.
func (p *Pipeline) fetchPage(ctx context.Context, cfg feed.SourceConfig, url string) (string, error) {
	start := time.Now()
	if cfg.BoolOption(OptRenderJS, false) && p.renderer != nil {
		html, err := p.renderer.Render(ctx, url, feed.RenderOptions{
			WaitSelector: cfg.StringOption(OptWaitSelector, ""),
		})
		metrics.ObserveFetch("rendered", time.Since(start))
		return html, err
	}
	html, err := p.pages.FetchPage(ctx, url)
	metrics.ObserveFetch("static", time.Since(start))
	return html, err
}
