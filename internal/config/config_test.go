package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feedloom/feedloom/internal/feed"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 15*time.Minute, cfg.RunInterval())
	require.Equal(t, 500, cfg.Cache.MaxEntries)
	require.Equal(t, time.Hour, cfg.CacheTTL())
	require.Equal(t, "none", cfg.Archive.Backend)
	require.Equal(t, "none", cfg.Publisher.Backend)
	require.False(t, cfg.Browser.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
browser:
  enabled: true
  max_tabs: 4
archive:
  backend: local
  base_dir: /tmp/feedloom
feeds:
  - feed_id: golang-blog
    name: The Go Blog
    type: rss
    url: https://go.dev/blog/feed.atom
    daily_post_limit: 5
    policy:
      add_source_footer: true
  - feed_id: golang-sub
    type: reddit
    options:
      subreddit: golang
      min_score: 25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.Browser.Enabled)
	require.Equal(t, 4, cfg.Browser.MaxTabs)
	require.Equal(t, "local", cfg.Archive.Backend)

	require.Len(t, cfg.Feeds, 2)
	require.Equal(t, feed.SourceRSS, cfg.Feeds[0].Type)
	require.Equal(t, 5, cfg.Feeds[0].DailyPostLimit)
	require.True(t, cfg.Feeds[0].Policy.AddSourceFooter)
	require.Equal(t, "golang", cfg.Feeds[1].StringOption("subreddit", ""))
	require.Equal(t, 25, cfg.Feeds[1].IntOption("min_score", 0))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"zero interval", func(c *Config) { c.Ingest.IntervalSeconds = 0 }},
		{"browser without tabs", func(c *Config) { c.Browser.Enabled = true; c.Browser.MaxTabs = 0 }},
		{"local archive without dir", func(c *Config) { c.Archive.Backend = "local" }},
		{"gcs archive without bucket", func(c *Config) { c.Archive.Backend = "gcs" }},
		{"unknown archive backend", func(c *Config) { c.Archive.Backend = "s3" }},
		{"pubsub without topic", func(c *Config) { c.Publisher.Backend = "pubsub" }},
		{"feed without id", func(c *Config) { c.Feeds = []feed.SourceConfig{{Type: feed.SourceRSS}} }},
		{"feed without type", func(c *Config) { c.Feeds = []feed.SourceConfig{{FeedID: "x"}} }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FEEDLOOM_SERVER_PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
}
