package cmd

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/feedloom/feedloom/internal/archive"
	archgcs "github.com/feedloom/feedloom/internal/archive/gcs"
	archlocal "github.com/feedloom/feedloom/internal/archive/local"
	archmem "github.com/feedloom/feedloom/internal/archive/memory"
	"github.com/feedloom/feedloom/internal/browser"
	"github.com/feedloom/feedloom/internal/cache"
	"github.com/feedloom/feedloom/internal/clock/system"
	"github.com/feedloom/feedloom/internal/config"
	"github.com/feedloom/feedloom/internal/extract"
	"github.com/feedloom/feedloom/internal/fetch"
	"github.com/feedloom/feedloom/internal/feed"
	"github.com/feedloom/feedloom/internal/logging"
	"github.com/feedloom/feedloom/internal/pipeline"
	"github.com/feedloom/feedloom/internal/process"
	"github.com/feedloom/feedloom/internal/publisher"
	pubmem "github.com/feedloom/feedloom/internal/publisher/memory"
	pubgcp "github.com/feedloom/feedloom/internal/publisher/pubsub"
	"github.com/feedloom/feedloom/internal/runner"
	"github.com/feedloom/feedloom/internal/sources"
	"github.com/feedloom/feedloom/internal/store"
)

// services holds the wired long-lived collaborators for one command run.
type services struct {
	cfg    config.Config
	logger *zap.Logger
	pool   *browser.Pool
	store  store.ArticleStore
	runner *runner.Runner

	pubsubClient  *pubsub.Client
	storageClient *gcstorage.Client
	pubStop       func()
}

// buildServices initializes everything from configuration, failing fast when
// a critical dependency cannot be constructed.
func buildServices(ctx context.Context) (*services, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	clock := system.Clock{}
	limiter := fetch.NewLimiter(cfg.Ingest.PolitenessQPS)
	feeds := fetch.NewFeedFetcher(limiter, cfg.Ingest.UserAgent, cfg.FeedTimeout())
	pages := fetch.NewPageFetcher(limiter, fetch.PageConfig{
		UserAgent: cfg.Ingest.UserAgent,
		Timeout:   cfg.PageTimeout(),
	})

	svc := &services{cfg: cfg, logger: logger}

	var renderer feed.Renderer
	if cfg.Browser.Enabled {
		svc.pool = browser.NewPool(browser.Config{
			MaxTabs:   cfg.Browser.MaxTabs,
			UserAgent: cfg.Ingest.UserAgent,
		}, logger)
		renderer = fetch.NewRenderedFetcher(svc.pool, limiter, cfg.NavTimeout(), logger)
	}

	svc.store, err = buildStore(ctx, cfg)
	if err != nil {
		svc.Close()
		return nil, err
	}

	archiver, err := svc.buildArchiver(ctx)
	if err != nil {
		svc.Close()
		return nil, err
	}
	pub, err := svc.buildPublisher(ctx)
	if err != nil {
		svc.Close()
		return nil, err
	}

	registry := sources.NewRegistry(sources.Deps{
		Feeds:     feeds,
		Pages:     pages,
		Renderer:  renderer,
		Extractor: extract.New(),
		Processor: process.New(),
		Clock:     clock,
		UserAgent: cfg.Ingest.UserAgent,
		Logger:    logger,
	})

	pipe := pipeline.New(pipeline.Config{
		Quota:    pipeline.NewQuotaScheduler(svc.store, clock),
		Cache:    cache.New(cfg.Cache.MaxEntries, cfg.CacheTTL()),
		Pages:    pages,
		Renderer: renderer,
		Logger:   logger,
	})

	svc.runner = runner.New(runner.Config{
		Feeds:     cfg.Feeds,
		Registry:  registry,
		Pipeline:  pipe,
		Store:     svc.store,
		Archiver:  archiver,
		Publisher: pub,
		Topic:     cfg.Publisher.Topic,
		Interval:  cfg.RunInterval(),
		Clock:     clock,
		Logger:    logger,
	})

	return svc, nil
}

func buildStore(ctx context.Context, cfg config.Config) (store.ArticleStore, error) {
	if cfg.Database.DSN == "" {
		return store.NewMemoryStore(), nil
	}
	s, err := store.NewPostgresStore(ctx, store.PostgresConfig{
		DSN:      cfg.Database.DSN,
		Table:    cfg.Database.Table,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connect article store: %w", err)
	}
	return s, nil
}

func (s *services) buildArchiver(ctx context.Context) (*archive.Archiver, error) {
	switch s.cfg.Archive.Backend {
	case "none":
		return nil, nil
	case "memory":
		return archive.NewArchiver(archmem.NewBlobStore()), nil
	case "local":
		blobs, err := archlocal.New(archlocal.Config{BaseDir: s.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("build local archive: %w", err)
		}
		return archive.NewArchiver(blobs), nil
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("build gcs client: %w", err)
		}
		s.storageClient = client
		blobs, err := archgcs.New(client, archgcs.Config{Bucket: s.cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("build gcs archive: %w", err)
		}
		return archive.NewArchiver(blobs), nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", s.cfg.Archive.Backend)
	}
}

func (s *services) buildPublisher(ctx context.Context) (publisher.Publisher, error) {
	switch s.cfg.Publisher.Backend {
	case "none":
		return nil, nil
	case "memory":
		return pubmem.New(), nil
	case "pubsub":
		client, err := pubsub.NewClient(ctx, s.cfg.Publisher.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("build pubsub client: %w", err)
		}
		s.pubsubClient = client
		pub := pubgcp.New(client.Topic(s.cfg.Publisher.Topic))
		s.pubStop = pub.Stop
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown publisher backend %q", s.cfg.Publisher.Backend)
	}
}

// Close releases all held resources in reverse dependency order.
func (s *services) Close() {
	if s.pubStop != nil {
		s.pubStop()
	}
	if s.pubsubClient != nil {
		if err := s.pubsubClient.Close(); err != nil {
			s.logger.Warn("close pubsub client failed", zap.Error(err))
		}
	}
	if s.storageClient != nil {
		if err := s.storageClient.Close(); err != nil {
			s.logger.Warn("close storage client failed", zap.Error(err))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
	_ = s.logger.Sync()
}
