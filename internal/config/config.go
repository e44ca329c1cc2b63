// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/feedloom/feedloom/internal/feed"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig        `mapstructure:"server"`
	Logging   LoggingConfig       `mapstructure:"logging"`
	Ingest    IngestConfig        `mapstructure:"ingest"`
	Browser   BrowserConfig       `mapstructure:"browser"`
	Cache     CacheConfig         `mapstructure:"cache"`
	Database  DatabaseConfig      `mapstructure:"database"`
	Archive   ArchiveConfig       `mapstructure:"archive"`
	Publisher PublisherConfig     `mapstructure:"publisher"`
	Feeds     []feed.SourceConfig `mapstructure:"feeds"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// IngestConfig governs scheduler cadence and fetch behavior.
type IngestConfig struct {
	IntervalSeconds    int     `mapstructure:"interval_seconds"`
	UserAgent          string  `mapstructure:"user_agent"`
	FeedTimeoutSeconds int     `mapstructure:"feed_timeout_seconds"`
	PageTimeoutSeconds int     `mapstructure:"page_timeout_seconds"`
	PolitenessQPS      float64 `mapstructure:"politeness_qps"`
}

// BrowserConfig configures the headless rendering subsystem.
type BrowserConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxTabs       int  `mapstructure:"max_tabs"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// CacheConfig bounds the processed-content cache.
type CacheConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// DatabaseConfig controls access to the article store. An empty DSN selects
// the in-memory store.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ArchiveConfig selects the blob backend for run archives.
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"` // none, memory, local, gcs
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PublisherConfig selects the article event publisher.
type PublisherConfig struct {
	Backend   string `mapstructure:"backend"` // none, memory, pubsub
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Load builds a Config from disk and environment. Environment variables use
// the FEEDLOOM prefix with underscores, e.g. FEEDLOOM_SERVER_PORT.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FEEDLOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("ingest.interval_seconds", 900)
	v.SetDefault("ingest.user_agent", "feedloom/1.0 (+https://github.com/feedloom/feedloom)")
	v.SetDefault("ingest.feed_timeout_seconds", 30)
	v.SetDefault("ingest.page_timeout_seconds", 20)
	v.SetDefault("ingest.politeness_qps", 1.0)
	v.SetDefault("browser.enabled", false)
	v.SetDefault("browser.max_tabs", 2)
	v.SetDefault("browser.nav_timeout_seconds", 25)
	v.SetDefault("cache.max_entries", 500)
	v.SetDefault("cache.ttl_seconds", 3600)
	v.SetDefault("database.table", "articles")
	v.SetDefault("archive.backend", "none")
	v.SetDefault("publisher.backend", "none")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Ingest.IntervalSeconds <= 0 {
		return fmt.Errorf("ingest.interval_seconds must be > 0")
	}
	if c.Ingest.FeedTimeoutSeconds <= 0 {
		return fmt.Errorf("ingest.feed_timeout_seconds must be > 0")
	}
	if c.Ingest.PolitenessQPS <= 0 {
		return fmt.Errorf("ingest.politeness_qps must be > 0")
	}
	if c.Browser.Enabled && c.Browser.MaxTabs <= 0 {
		return fmt.Errorf("browser.max_tabs must be > 0 when the browser is enabled")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be > 0")
	}
	switch c.Archive.Backend {
	case "none", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set for the local backend")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("archive.backend %q is not one of none, memory, local, gcs", c.Archive.Backend)
	}
	switch c.Publisher.Backend {
	case "none", "memory":
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.Topic == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic must be set for the pubsub backend")
		}
	default:
		return fmt.Errorf("publisher.backend %q is not one of none, memory, pubsub", c.Publisher.Backend)
	}
	for i, f := range c.Feeds {
		if f.FeedID == "" {
			return fmt.Errorf("feeds[%d].feed_id is required", i)
		}
		if f.Type == "" {
			return fmt.Errorf("feeds[%d].type is required", i)
		}
	}
	return nil
}

// RunInterval is the scheduler cadence as a duration.
func (c Config) RunInterval() time.Duration {
	return time.Duration(c.Ingest.IntervalSeconds) * time.Second
}

// FeedTimeout is the per-feed fetch timeout as a duration.
func (c Config) FeedTimeout() time.Duration {
	return time.Duration(c.Ingest.FeedTimeoutSeconds) * time.Second
}

// PageTimeout is the per-page fetch timeout as a duration.
func (c Config) PageTimeout() time.Duration {
	return time.Duration(c.Ingest.PageTimeoutSeconds) * time.Second
}

// CacheTTL is the cache entry lifetime as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// NavTimeout is the headless browser navigation timeout as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSec) * time.Second
}
