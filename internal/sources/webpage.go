package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/feedloom/feedloom/internal/feed"
	"github.com/feedloom/feedloom/internal/pipeline"
)

// Option keys specific to the webpage source.
const (
	optItemSelector  = "item_selector"
	optLinkSelector  = "link_selector"
	optTitleSelector = "title_selector"
	optMaxItems      = "max_items"
)

var webPageOptionSchema = feed.OptionSchema{
	optItemSelector:             {Type: feed.OptionString, Default: "article"},
	optLinkSelector:             {Type: feed.OptionString, Default: "a"},
	optTitleSelector:            {Type: feed.OptionString, Default: ""},
	optMaxItems:                 {Type: feed.OptionInt, Default: 20, Min: feed.IntPtr(1), Max: feed.IntPtr(100)},
	pipeline.OptContentSelector: {Type: feed.OptionString, Default: ""},
	pipeline.OptRemoveSelectors: {Type: feed.OptionString, Default: ""},
	pipeline.OptRenderJS:        {Type: feed.OptionBool, Default: false},
	pipeline.OptWaitSelector:    {Type: feed.OptionString, Default: ""},
}

// WebPageStrategy ingests sites without a syndication feed by scraping an
// index page for article links. Items never carry inline content, so every
// surviving item goes through the fetch/extract/process chain.
type WebPageStrategy struct {
	*pipeline.BaseStrategy
	pages    feed.PageFetcher
	renderer feed.Renderer
}

// NewWebPageStrategy builds the webpage strategy. Renderer may be nil; the
// render_js option then falls back to a static fetch.
func NewWebPageStrategy(deps pipeline.Deps, pages feed.PageFetcher, renderer feed.Renderer) *WebPageStrategy {
	return &WebPageStrategy{
		BaseStrategy: pipeline.NewBaseStrategy(deps),
		pages:        pages,
		renderer:     renderer,
	}
}

// FetchSourceData retrieves the index page HTML.
func (s *WebPageStrategy) FetchSourceData(ctx context.Context, cfg feed.SourceConfig, _ int) (any, error) {
	if cfg.BoolOption(pipeline.OptRenderJS, false) && s.renderer != nil {
		return s.renderer.Render(ctx, cfg.URL, feed.RenderOptions{
			WaitSelector: cfg.StringOption(pipeline.OptWaitSelector, ""),
		})
	}
	return s.pages.FetchPage(ctx, cfg.URL)
}

// ParseArticles scrapes the index page for item links. Relative links are
// resolved against the index URL; items without a resolvable link are
// skipped.
func (s *WebPageStrategy) ParseArticles(cfg feed.SourceConfig, payload any) ([]feed.RawArticle, error) {
	html, ok := payload.(string)
	if !ok {
		return nil, feed.NewValidationError("payload", "expected index page html")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse index page: %w", err)
	}

	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, feed.NewValidationError("url", "index url does not parse")
	}

	itemSel := cfg.StringOption(optItemSelector, "article")
	linkSel := cfg.StringOption(optLinkSelector, "a")
	titleSel := cfg.StringOption(optTitleSelector, "")
	maxItems := cfg.IntOption(optMaxItems, 20)

	now := s.Deps.Clock.Now()
	seen := make(map[string]struct{})
	var arts []feed.RawArticle

	doc.Find(itemSel).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		link := item.Find(linkSel).First()
		href, exists := link.Attr("href")
		if !exists {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref).String()
		if _, dup := seen[abs]; dup {
			return true
		}
		seen[abs] = struct{}{}

		title := strings.TrimSpace(link.Text())
		if titleSel != "" {
			if t := strings.TrimSpace(item.Find(titleSel).First().Text()); t != "" {
				title = t
			}
		}

		art := feed.RawArticle{
			Title:     title,
			URL:       abs,
			Published: now,
		}
		if src, ok := item.Find("img").First().Attr("src"); ok {
			art.ThumbnailURL = src
		}
		arts = append(arts, art)
		return len(arts) < maxItems
	})

	return arts, nil
}

// ShouldFetchContent is always true: index pages never hold article bodies.
func (s *WebPageStrategy) ShouldFetchContent(_ feed.SourceConfig, _ feed.RawArticle) bool {
	return true
}
