package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/feedloom/feedloom/internal/feed"
	"github.com/feedloom/feedloom/internal/pipeline"
)

// CredentialAPIKey is the user-settings credential key vendor-API sources
// require. Absence is a fatal validation error.
const CredentialAPIKey = "api_key"

const optChannelID = "channel_id"

var youtubeOptionSchema = feed.OptionSchema{
	optChannelID: {Type: feed.OptionString, Default: ""},
	optMaxItems:  {Type: feed.OptionInt, Default: 15, Min: feed.IntPtr(1), Max: feed.IntPtr(50)},
}

var (
	channelIDPattern = regexp.MustCompile(`channel_id=([a-zA-Z0-9_-]+)`)
	videoIDPattern   = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]+)`)
)

// YouTubeStrategy ingests a channel's upload feed. The channel id must
// resolve from the configured URL or the channel_id option before any fetch
// happens, and an API credential must be present for the enrichment calls
// the vendor account meters.
type YouTubeStrategy struct {
	*pipeline.BaseStrategy
}

// NewYouTubeStrategy builds the YouTube strategy.
func NewYouTubeStrategy(deps pipeline.Deps) *YouTubeStrategy {
	return &YouTubeStrategy{BaseStrategy: pipeline.NewBaseStrategy(deps)}
}

// Validate requires a resolvable channel id and an API credential.
func (s *YouTubeStrategy) Validate(_ context.Context, cfg feed.SourceConfig) error {
	if s.channelID(cfg) == "" {
		return feed.NewValidationError(optChannelID, "channel id not resolvable from url or options")
	}
	if cfg.Credentials[CredentialAPIKey] == "" {
		return feed.NewValidationError(CredentialAPIKey, "missing api credential")
	}
	return nil
}

// FetchSourceData fetches the channel's upload feed.
func (s *YouTubeStrategy) FetchSourceData(ctx context.Context, cfg feed.SourceConfig, _ int) (any, error) {
	feedURL := fmt.Sprintf("https://www.youtube.com/feeds/videos.xml?channel_id=%s", s.channelID(cfg))
	return s.Deps.Feeds.FetchFeed(ctx, feedURL)
}

// ParseArticles maps upload entries to articles carrying the video as the
// media payload. Entries whose video id cannot be derived are dropped.
func (s *YouTubeStrategy) ParseArticles(cfg feed.SourceConfig, payload any) ([]feed.RawArticle, error) {
	parsed, ok := payload.(*gofeed.Feed)
	if !ok {
		return nil, feed.NewValidationError("payload", "expected a parsed feed")
	}

	maxItems := cfg.IntOption(optMaxItems, 15)
	arts := make([]feed.RawArticle, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		videoID := extractVideoID(item.Link)
		if videoID == "" {
			continue
		}

		art := feed.RawArticle{
			Title:        strings.TrimSpace(item.Title),
			URL:          item.Link,
			Summary:      strings.TrimSpace(item.Description),
			ExternalID:   videoID,
			MediaURL:     item.Link,
			MediaType:    "video",
			ThumbnailURL: fmt.Sprintf("https://img.youtube.com/vi/%s/mqdefault.jpg", videoID),
		}
		if item.PublishedParsed != nil {
			art.Published = *item.PublishedParsed
		} else {
			art.Published = s.Deps.Clock.Now()
		}
		if item.Author != nil {
			art.Author = item.Author.Name
		} else {
			art.Author = parsed.Title
		}
		if stats := mediaStatistics(item); stats != "" {
			if n, err := parseViewCount(stats); err == nil {
				art.ViewCount = n
			}
		}
		arts = append(arts, art)
		if len(arts) >= maxItems {
			break
		}
	}
	return arts, nil
}

// ShouldFetchContent is always false: the video is the content.
func (s *YouTubeStrategy) ShouldFetchContent(_ feed.SourceConfig, _ feed.RawArticle) bool {
	return false
}

// ValidateContent allows empty content; the media payload is the substance.
func (s *YouTubeStrategy) ValidateContent(_ string) error { return nil }

func (s *YouTubeStrategy) channelID(cfg feed.SourceConfig) string {
	if id := cfg.StringOption(optChannelID, ""); id != "" {
		return id
	}
	if m := channelIDPattern.FindStringSubmatch(cfg.URL); len(m) > 1 {
		return m[1]
	}
	return ""
}

func extractVideoID(link string) string {
	if m := videoIDPattern.FindStringSubmatch(link); len(m) > 1 {
		return m[1]
	}
	return ""
}

// mediaStatistics pulls the views attribute from the feed's media extension
// when the upload feed carries one.
func mediaStatistics(item *gofeed.Item) string {
	groups, ok := item.Extensions["media"]["group"]
	if !ok {
		return ""
	}
	for _, group := range groups {
		for _, community := range group.Children["community"] {
			for _, stats := range community.Children["statistics"] {
				if v := stats.Attrs["views"]; v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func parseViewCount(s string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
