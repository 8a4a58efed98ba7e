package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hszk-dev/streamgate/internal/config"
	"github.com/hszk-dev/streamgate/internal/domain/repository"
	"github.com/hszk-dev/streamgate/internal/infrastructure/postgres"
	"github.com/hszk-dev/streamgate/internal/usecase"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <token>",
		Short: "Show playback statistics for a token",
		Long: `Show the aggregated playback statistics the worker recorded for a token.

The database connection is read from the POSTGRES_* environment variables.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pgConfig := postgres.DefaultClientConfig(cfg.Database.DSN())
			pgConfig.ApplicationName = "streamctl"
			pgClient, err := postgres.NewClient(ctx, pgConfig)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pgClient.Close()

			svc := usecase.NewPlaybackService(postgres.NewPlaybackRepository(pgClient.Pool()), usecase.DefaultPlaybackServiceConfig())
			stats, err := svc.Stats(ctx, args[0])
			if errors.Is(err, repository.ErrStatsNotFound) {
				return fmt.Errorf("no playback recorded for this token")
			}
			if err != nil {
				return err
			}

			writeStats(cmd, stats)
			return nil
		},
	}
}

func writeStats(cmd *cobra.Command, s *repository.PlaybackStats) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "backend\t%s\n", s.Kind)
	fmt.Fprintf(tw, "plays\t%d\n", s.Plays)
	fmt.Fprintf(tw, "completed\t%d\n", s.Completed)
	fmt.Fprintf(tw, "aborted\t%d\n", s.Aborted)
	fmt.Fprintf(tw, "bytes served\t%d\n", s.BytesServed)
	_ = tw.Flush()
}
