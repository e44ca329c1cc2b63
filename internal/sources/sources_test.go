package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/stretchr/testify/require"

	"github.com/feedloom/feedloom/internal/feed"
	"github.com/feedloom/feedloom/internal/pipeline"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func testDeps() pipeline.Deps {
	return pipeline.Deps{Clock: fixedClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}}
}

func TestRegistry_StrategyFor(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Deps{Clock: fixedClock{now: time.Now()}})

	for _, typ := range []feed.SourceType{
		feed.SourceRSS, feed.SourceWebPage, feed.SourceYouTube, feed.SourceReddit, feed.SourcePodcast,
	} {
		s, err := r.StrategyFor(typ)
		require.NoError(t, err, typ)
		require.NotNil(t, s, typ)
	}

	_, err := r.StrategyFor(feed.SourceType("telegram"))
	require.Error(t, err)

	var verr *feed.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestRegistry_NormalizeConfigAppliesDefaults(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Deps{Clock: fixedClock{now: time.Now()}})

	cfg, err := r.NormalizeConfig(feed.SourceConfig{
		Type:    feed.SourceReddit,
		Options: map[string]any{"subreddit": "golang"},
	})
	require.NoError(t, err)
	require.Equal(t, "hot", cfg.StringOption("sort", ""))
	require.Equal(t, 25, cfg.IntOption("max_items", 0))
}

func TestRegistry_NormalizeConfigRejectsUnknownOption(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Deps{Clock: fixedClock{now: time.Now()}})

	_, err := r.NormalizeConfig(feed.SourceConfig{
		Type:    feed.SourceRSS,
		Options: map[string]any{"contnt_selector": "#main"},
	})
	var verr *feed.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestWebPageStrategy_ParseArticles(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<div class="card"><a href="/posts/one">First Post</a><img src="/img/one.jpg"></div>
		<div class="card"><a href="/posts/two">Second Post</a></div>
		<div class="card"><a href="/posts/one">Duplicate Link</a></div>
		<div class="card"><span>no link here</span></div>
	</body></html>`

	s := NewWebPageStrategy(testDeps(), nil, nil)
	cfg := feed.SourceConfig{
		Type: feed.SourceWebPage,
		URL:  "https://example.com/blog",
		Options: map[string]any{
			"item_selector": ".card",
		},
	}

	arts, err := s.ParseArticles(cfg, html)
	require.NoError(t, err)
	require.Len(t, arts, 2)
	require.Equal(t, "https://example.com/posts/one", arts[0].URL)
	require.Equal(t, "First Post", arts[0].Title)
	require.Equal(t, "/img/one.jpg", arts[0].ThumbnailURL)
	require.Equal(t, "https://example.com/posts/two", arts[1].URL)
}

func TestWebPageStrategy_MaxItems(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<article><a href="/a">A</a></article>
		<article><a href="/b">B</a></article>
		<article><a href="/c">C</a></article>
	</body></html>`

	s := NewWebPageStrategy(testDeps(), nil, nil)
	cfg := feed.SourceConfig{
		URL:     "https://example.com/",
		Options: map[string]any{"max_items": 2},
	}

	arts, err := s.ParseArticles(cfg, html)
	require.NoError(t, err)
	require.Len(t, arts, 2)
}

func TestYouTubeStrategy_Validate(t *testing.T) {
	t.Parallel()

	s := NewYouTubeStrategy(testDeps())

	tests := []struct {
		name    string
		cfg     feed.SourceConfig
		wantErr bool
	}{
		{
			name: "channel id from url with credential",
			cfg: feed.SourceConfig{
				URL:         "https://www.youtube.com/feeds/videos.xml?channel_id=UCabc123",
				Credentials: map[string]string{CredentialAPIKey: "key"},
			},
		},
		{
			name: "channel id from options",
			cfg: feed.SourceConfig{
				Options:     map[string]any{"channel_id": "UCabc123"},
				Credentials: map[string]string{CredentialAPIKey: "key"},
			},
		},
		{
			name:    "missing channel id",
			cfg:     feed.SourceConfig{URL: "https://www.youtube.com/@somehandle", Credentials: map[string]string{CredentialAPIKey: "key"}},
			wantErr: true,
		},
		{
			name:    "missing credential",
			cfg:     feed.SourceConfig{Options: map[string]any{"channel_id": "UCabc123"}},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := s.Validate(context.Background(), tc.cfg)
			if tc.wantErr {
				var verr *feed.ValidationError
				require.True(t, errors.As(err, &verr))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestYouTubeStrategy_ParseArticles(t *testing.T) {
	t.Parallel()

	when := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	payload := &gofeed.Feed{
		Title: "Some Channel",
		Items: []*gofeed.Item{
			{
				Title:           "A Video",
				Link:            "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
				Description:     "about things",
				PublishedParsed: &when,
			},
			{
				Title: "Not a video link",
				Link:  "https://example.com/other",
			},
		},
	}

	s := NewYouTubeStrategy(testDeps())
	arts, err := s.ParseArticles(feed.SourceConfig{}, payload)
	require.NoError(t, err)
	require.Len(t, arts, 1)
	require.Equal(t, "dQw4w9WgXcQ", arts[0].ExternalID)
	require.Equal(t, "video", arts[0].MediaType)
	require.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/mqdefault.jpg", arts[0].ThumbnailURL)
	require.Equal(t, "Some Channel", arts[0].Author)
	require.Equal(t, when, arts[0].Published)
}

func TestRedditStrategy_Validate(t *testing.T) {
	t.Parallel()

	s := NewRedditStrategy(testDeps(), nil, "")

	require.NoError(t, s.Validate(context.Background(), feed.SourceConfig{
		Options: map[string]any{"subreddit": "golang"},
	}))
	require.NoError(t, s.Validate(context.Background(), feed.SourceConfig{
		URL: "https://www.reddit.com/r/golang",
	}))

	err := s.Validate(context.Background(), feed.SourceConfig{URL: "https://example.com"})
	var verr *feed.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestRedditStrategy_ParseArticles(t *testing.T) {
	t.Parallel()

	listing := &redditListing{}
	listing.Data.Children = []struct {
		Data redditPost `json:"data"`
	}{
		{Data: redditPost{
			ID:        "abc",
			Title:     "A text post",
			Selftext:  "body text",
			Author:    "someone",
			URL:       "https://www.reddit.com/r/golang/comments/abc/a_text_post/",
			Permalink: "/r/golang/comments/abc/a_text_post/",
			Created:   1772446800,
			Score:     42,
			Thumbnail: "self",
		}},
		{Data: redditPost{
			ID:        "def",
			Title:     "A link post",
			Author:    "other",
			URL:       "https://example.com/external",
			Permalink: "/r/golang/comments/def/a_link_post/",
			Created:   1772450400,
			Score:     7,
			Thumbnail: "https://thumbs.example.com/def.jpg",
		}},
		{Data: redditPost{
			ID:        "ghi",
			Title:     "Pinned rules",
			Permalink: "/r/golang/comments/ghi/rules/",
			Stickied:  true,
		}},
	}

	s := NewRedditStrategy(testDeps(), nil, "")
	arts, err := s.ParseArticles(feed.SourceConfig{}, listing)
	require.NoError(t, err)
	require.Len(t, arts, 2)

	require.Equal(t, "https://www.reddit.com/r/golang/comments/abc/a_text_post/", arts[0].URL)
	require.Equal(t, "body text", arts[0].Content)
	require.Equal(t, 42, arts[0].Score)
	require.Empty(t, arts[0].ThumbnailURL, "placeholder thumbnails are dropped")
	require.Empty(t, arts[0].MediaURL, "self posts carry no outbound link")

	require.Equal(t, "https://example.com/external", arts[1].MediaURL)
	require.Equal(t, "link", arts[1].MediaType)
	require.Equal(t, "https://thumbs.example.com/def.jpg", arts[1].ThumbnailURL)
}

func TestRedditStrategy_ScoreFloor(t *testing.T) {
	t.Parallel()

	s := NewRedditStrategy(testDeps(), nil, "")
	cfg := feed.SourceConfig{Options: map[string]any{"min_score": 10}}

	require.True(t, s.ShouldSkipArticle(cfg, feed.RawArticle{Score: 3}))
	require.False(t, s.ShouldSkipArticle(cfg, feed.RawArticle{Score: 10}))
}

func TestPodcastStrategy_ParseArticles(t *testing.T) {
	t.Parallel()

	when := time.Date(2026, 2, 28, 6, 0, 0, 0, time.UTC)
	payload := &gofeed.Feed{
		Items: []*gofeed.Item{
			{
				Title:           "Episode 12",
				Link:            "https://pod.example.com/ep12",
				Description:     "show notes",
				PublishedParsed: &when,
				Enclosures: []*gofeed.Enclosure{
					{URL: "https://cdn.example.com/ep12.mp3", Type: "audio/mpeg"},
				},
				ITunesExt: &ext.ITunesItemExtension{Duration: "1:02:30", Image: "https://pod.example.com/cover.jpg"},
			},
			{
				Title:       "No audio",
				Link:        "https://pod.example.com/blogpost",
				Description: "text only",
			},
		},
	}

	s := NewPodcastStrategy(testDeps())
	arts, err := s.ParseArticles(feed.SourceConfig{}, payload)
	require.NoError(t, err)
	require.Len(t, arts, 1, "episodes without an enclosure are dropped")

	ep := arts[0]
	require.Equal(t, "https://cdn.example.com/ep12.mp3", ep.MediaURL)
	require.Equal(t, "audio", ep.MediaType)
	require.Equal(t, 3750, ep.DurationSec)
	require.Equal(t, "show notes", ep.Content, "notes fall back to the summary")
	require.Equal(t, "https://pod.example.com/cover.jpg", ep.ThumbnailURL)
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"90", 90},
		{"02:15", 135},
		{"1:02:30", 3750},
		{"", 0},
		{"bogus", 0},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, parseDuration(tc.in), tc.in)
	}
}
