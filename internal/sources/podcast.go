package sources

import (
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/feedloom/feedloom/internal/feed"
	"github.com/feedloom/feedloom/internal/pipeline"
)

var podcastOptionSchema = feed.OptionSchema{
	optMaxItems: {Type: feed.OptionInt, Default: 20, Min: feed.IntPtr(1), Max: feed.IntPtr(100)},
}

// PodcastStrategy ingests an RSS podcast feed. Episodes without an audio
// enclosure carry no payload and are dropped at parse time; episode notes
// from the feed are the content, so no web fetch happens.
type PodcastStrategy struct {
	*pipeline.BaseStrategy
}

// NewPodcastStrategy builds the podcast strategy.
func NewPodcastStrategy(deps pipeline.Deps) *PodcastStrategy {
	return &PodcastStrategy{BaseStrategy: pipeline.NewBaseStrategy(deps)}
}

// ParseArticles maps episodes to articles. The enclosure is mandatory.
func (s *PodcastStrategy) ParseArticles(cfg feed.SourceConfig, payload any) ([]feed.RawArticle, error) {
	parsed, ok := payload.(*gofeed.Feed)
	if !ok {
		return nil, feed.NewValidationError("payload", "expected a parsed feed")
	}

	maxItems := cfg.IntOption(optMaxItems, 20)
	arts := make([]feed.RawArticle, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}
		enclosure := audioEnclosure(item)
		if enclosure == nil {
			continue
		}

		art := feed.RawArticle{
			Title:      strings.TrimSpace(item.Title),
			URL:        item.Link,
			Summary:    strings.TrimSpace(item.Description),
			Content:    strings.TrimSpace(item.Content),
			ExternalID: item.GUID,
			MediaURL:   enclosure.URL,
			MediaType:  "audio",
		}
		if art.Content == "" {
			art.Content = art.Summary
		}
		if item.PublishedParsed != nil {
			art.Published = *item.PublishedParsed
		} else {
			art.Published = s.Deps.Clock.Now()
		}
		if item.Author != nil {
			art.Author = item.Author.Name
		}
		if item.ITunesExt != nil {
			if item.ITunesExt.Image != "" {
				art.ThumbnailURL = item.ITunesExt.Image
			}
			if item.ITunesExt.Author != "" && art.Author == "" {
				art.Author = item.ITunesExt.Author
			}
			art.DurationSec = parseDuration(item.ITunesExt.Duration)
		}
		arts = append(arts, art)
		if len(arts) >= maxItems {
			break
		}
	}
	return arts, nil
}

// ShouldFetchContent is always false: episode notes travel in the feed.
func (s *PodcastStrategy) ShouldFetchContent(_ feed.SourceConfig, _ feed.RawArticle) bool {
	return false
}

// ValidateContent allows empty content; the enclosure is the payload.
func (s *PodcastStrategy) ValidateContent(_ string) error { return nil }

func audioEnclosure(item *gofeed.Item) *gofeed.Enclosure {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "audio/") || enc.Type == "" {
			return enc
		}
	}
	return nil
}

// parseDuration accepts plain seconds or HH:MM:SS / MM:SS clock notation.
func parseDuration(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if !strings.Contains(raw, ":") {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0
		}
		return n
	}
	total := 0
	for _, part := range strings.Split(raw, ":") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}
