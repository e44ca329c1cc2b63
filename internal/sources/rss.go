package sources

import (
	"github.com/feedloom/feedloom/internal/feed"
	"github.com/feedloom/feedloom/internal/pipeline"
)

var rssOptionSchema = feed.OptionSchema{
	pipeline.OptContentSelector: {Type: feed.OptionString, Default: ""},
	pipeline.OptRemoveSelectors: {Type: feed.OptionString, Default: ""},
	pipeline.OptRenderJS:        {Type: feed.OptionBool, Default: false},
	pipeline.OptWaitSelector:    {Type: feed.OptionString, Default: ""},
}

// RSSStrategy is the generic RSS/Atom source. The default strategy already
// is one, so nothing is overridden.
type RSSStrategy struct {
	*pipeline.BaseStrategy
}

// NewRSSStrategy builds the RSS strategy.
func NewRSSStrategy(deps pipeline.Deps) *RSSStrategy {
	return &RSSStrategy{BaseStrategy: pipeline.NewBaseStrategy(deps)}
}
