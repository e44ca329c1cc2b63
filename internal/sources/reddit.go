package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/feedloom/feedloom/internal/feed"
	"github.com/feedloom/feedloom/internal/pipeline"
)

// Option keys specific to the reddit source.
const (
	optSubreddit = "subreddit"
	optSort      = "sort"
	optMinScore  = "min_score"
)

var redditOptionSchema = feed.OptionSchema{
	optSubreddit: {Type: feed.OptionString, Default: ""},
	optSort:      {Type: feed.OptionString, Default: "hot", Choices: []string{"hot", "new", "top", "rising"}},
	optMinScore:  {Type: feed.OptionInt, Default: 0, Min: feed.IntPtr(0)},
	optMaxItems:  {Type: feed.OptionInt, Default: 25, Min: feed.IntPtr(1), Max: feed.IntPtr(100)},
}

var subredditPattern = regexp.MustCompile(`reddit\.com/r/([a-zA-Z0-9_]+)`)

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Selftext  string  `json:"selftext"`
	Author    string  `json:"author"`
	URL       string  `json:"url"`
	Permalink string  `json:"permalink"`
	Created   float64 `json:"created_utc"`
	Score     int     `json:"score"`
	Thumbnail string  `json:"thumbnail"`
	Stickied  bool    `json:"stickied"`
}

// RedditStrategy ingests a subreddit listing through reddit's public JSON
// API. Listing failures are vendor API errors and abort the run; there is no
// meaningful partial result.
type RedditStrategy struct {
	*pipeline.BaseStrategy
	client    *http.Client
	userAgent string
	baseURL   string
}

// NewRedditStrategy builds the reddit strategy.
func NewRedditStrategy(deps pipeline.Deps, client *http.Client, userAgent string) *RedditStrategy {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if userAgent == "" {
		userAgent = "feedloom/1.0"
	}
	return &RedditStrategy{
		BaseStrategy: pipeline.NewBaseStrategy(deps),
		client:       client,
		userAgent:    userAgent,
		baseURL:      "https://www.reddit.com",
	}
}

// Validate requires a resolvable subreddit.
func (s *RedditStrategy) Validate(_ context.Context, cfg feed.SourceConfig) error {
	if s.subreddit(cfg) == "" {
		return feed.NewValidationError(optSubreddit, "subreddit not resolvable from url or options")
	}
	return nil
}

// FetchSourceData retrieves the subreddit listing.
func (s *RedditStrategy) FetchSourceData(ctx context.Context, cfg feed.SourceConfig, limit int) (any, error) {
	maxItems := cfg.IntOption(optMaxItems, 25)
	if limit > 0 && limit < maxItems {
		maxItems = limit
	}
	url := fmt.Sprintf("%s/r/%s/%s.json?limit=%d",
		s.baseURL, s.subreddit(cfg), cfg.StringOption(optSort, "hot"), maxItems)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &feed.VendorAPIError{Provider: "reddit", Err: err}
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &feed.VendorAPIError{Provider: "reddit", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &feed.VendorAPIError{
			Provider:   "reddit",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("listing request rejected"),
		}
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, &feed.VendorAPIError{Provider: "reddit", Err: fmt.Errorf("decode listing: %w", err)}
	}
	return &listing, nil
}

// ParseArticles maps listing posts to articles. The permalink is the stable
// identity; the outbound URL of a link post becomes the media payload.
func (s *RedditStrategy) ParseArticles(cfg feed.SourceConfig, payload any) ([]feed.RawArticle, error) {
	listing, ok := payload.(*redditListing)
	if !ok {
		return nil, feed.NewValidationError("payload", "expected a reddit listing")
	}

	arts := make([]feed.RawArticle, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Permalink == "" || post.Stickied {
			continue
		}

		art := feed.RawArticle{
			Title:      strings.TrimSpace(post.Title),
			URL:        "https://www.reddit.com" + post.Permalink,
			Published:  time.Unix(int64(post.Created), 0).UTC(),
			Author:     post.Author,
			ExternalID: post.ID,
			Score:      post.Score,
			Content:    strings.TrimSpace(post.Selftext),
			Summary:    truncate(post.Selftext, 300),
		}
		if isRealThumbnail(post.Thumbnail) {
			art.ThumbnailURL = post.Thumbnail
		}
		if post.URL != "" && post.URL != art.URL {
			art.MediaURL = post.URL
			art.MediaType = "link"
		}
		arts = append(arts, art)
	}
	return arts, nil
}

// ShouldSkipArticle drops anything below the configured score floor.
func (s *RedditStrategy) ShouldSkipArticle(cfg feed.SourceConfig, art feed.RawArticle) bool {
	return art.Score < cfg.IntOption(optMinScore, 0)
}

// ShouldFetchContent is always false: the listing already carries the post
// body, and link posts keep their target as the media payload.
func (s *RedditStrategy) ShouldFetchContent(_ feed.SourceConfig, _ feed.RawArticle) bool {
	return false
}

// ValidateContent allows empty content; link posts have none.
func (s *RedditStrategy) ValidateContent(_ string) error { return nil }

func (s *RedditStrategy) subreddit(cfg feed.SourceConfig) string {
	if sub := cfg.StringOption(optSubreddit, ""); sub != "" {
		return sub
	}
	if m := subredditPattern.FindStringSubmatch(cfg.URL); len(m) > 1 {
		return m[1]
	}
	return ""
}

// isRealThumbnail filters reddit's placeholder thumbnail tokens.
func isRealThumbnail(t string) bool {
	switch t {
	case "", "self", "default", "nsfw", "spoiler", "image":
		return false
	}
	return strings.HasPrefix(t, "http")
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
