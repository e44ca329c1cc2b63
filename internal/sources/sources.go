// Package sources holds the per-source-type pipeline strategies and the
// registry that resolves a feed's configured type to a strategy. Each source
// type embeds the default strategy and overrides only the stages where its
// origin differs: vendor API listings, index page scraping, media enclosures.
package sources

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/feedloom/feedloom/internal/feed"
	"github.com/feedloom/feedloom/internal/pipeline"
)

// Deps are the shared collaborators strategies are built from.
type Deps struct {
	Feeds      feed.FeedFetcher
	Pages      feed.PageFetcher
	Renderer   feed.Renderer
	Extractor  feed.Extractor
	Processor  feed.Processor
	Clock      feed.Clock
	HTTPClient *http.Client
	UserAgent  string
	Logger     *zap.Logger
}

// Registry resolves source types to strategies and option schemas.
type Registry struct {
	strategies map[feed.SourceType]pipeline.Strategy
	schemas    map[feed.SourceType]feed.OptionSchema
}

// NewRegistry wires one strategy instance per source type. Strategies are
// stateless beyond their collaborators and safe for concurrent runs.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	base := pipeline.Deps{
		Feeds:     deps.Feeds,
		Extractor: deps.Extractor,
		Processor: deps.Processor,
		Clock:     deps.Clock,
	}

	return &Registry{
		strategies: map[feed.SourceType]pipeline.Strategy{
			feed.SourceRSS:     NewRSSStrategy(base),
			feed.SourceWebPage: NewWebPageStrategy(base, deps.Pages, deps.Renderer),
			feed.SourceYouTube: NewYouTubeStrategy(base),
			feed.SourceReddit:  NewRedditStrategy(base, deps.HTTPClient, deps.UserAgent),
			feed.SourcePodcast: NewPodcastStrategy(base),
		},
		schemas: map[feed.SourceType]feed.OptionSchema{
			feed.SourceRSS:     rssOptionSchema,
			feed.SourceWebPage: webPageOptionSchema,
			feed.SourceYouTube: youtubeOptionSchema,
			feed.SourceReddit:  redditOptionSchema,
			feed.SourcePodcast: podcastOptionSchema,
		},
	}
}

// StrategyFor returns the strategy registered for the source type.
func (r *Registry) StrategyFor(t feed.SourceType) (pipeline.Strategy, error) {
	s, ok := r.strategies[t]
	if !ok {
		return nil, feed.NewValidationError("type", "unknown source type "+string(t))
	}
	return s, nil
}

// NormalizeConfig validates the feed's options bag against the source type's
// schema and returns a copy of the config with defaults applied. It runs
// before the pipeline so option typos are fatal up front.
func (r *Registry) NormalizeConfig(cfg feed.SourceConfig) (feed.SourceConfig, error) {
	schema, ok := r.schemas[cfg.Type]
	if !ok {
		return cfg, feed.NewValidationError("type", "unknown source type "+string(cfg.Type))
	}
	opts, err := schema.Validate(cfg.Options)
	if err != nil {
		return cfg, err
	}
	cfg.Options = opts
	return cfg, nil
}

// Types lists the registered source types.
func (r *Registry) Types() []feed.SourceType {
	out := make([]feed.SourceType, 0, len(r.strategies))
	for t := range r.strategies {
		out = append(out, t)
	}
	return out
}
