package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newIngestCmd() *cobra.Command {
	var (
		feedID string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run a one-shot ingestion sweep and exit",
		Long: `Run the pipeline once for every configured feed (or a single feed
with --feed) and exit. Useful for cron jobs and manual backfills.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			if feedID != "" {
				status, err := svc.runner.Trigger(ctx, feedID, force)
				if err != nil {
					return fmt.Errorf("run feed %s: %w", feedID, err)
				}
				svc.logger.Info("ingest finished",
					zap.String("feed_id", feedID),
					zap.String("run_id", status.RunID),
					zap.Int("articles", status.Articles),
				)
				return nil
			}

			if force {
				return fmt.Errorf("--force requires --feed")
			}
			svc.runner.RunAll(ctx)
			svc.logger.Info("ingest sweep finished", zap.Int("feeds", len(svc.cfg.Feeds)))
			return ctx.Err()
		},
	}

	cmd.Flags().StringVar(&feedID, "feed", "", "run only this feed id")
	cmd.Flags().BoolVar(&force, "force", false, "bypass the cache and existing-article filter (requires --feed)")

	return cmd
}
