package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/probelab/assesscore/config"
	"github.com/probelab/assesscore/projection"
	"github.com/probelab/assesscore/projection/postgresstore"
)

var projectorCmd = &cobra.Command{
	Use:   "projector",
	Short: "Run or rebuild the catch-up projector",
}

var projectorRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the projector until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		projector, cleanup, err := buildProjector(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Fprintf(cmd.OutOrStdout(), "projector %s running, interrupt to stop\n", cfg.Projector.Name)

		if err := projector.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		return nil
	},
}

var projectorRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Reset the checkpoint and re-project the whole event log",
	Long: "Resets the projector's checkpoint to zero and processes the full event log in batches. " +
		"Projection writes are idempotent, so a rebuild over existing documents converges to the same state.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		projector, cleanup, err := buildProjector(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		checkpoints, db, err := openCheckpointStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := checkpoints.SaveCheckpoint(ctx, cfg.Projector.Name, 0); err != nil {
			return fmt.Errorf("resetting checkpoint: %w", err)
		}

		total := 0
		for {
			processed, err := projector.RunOnce(ctx)
			if err != nil {
				return err
			}
			if processed == 0 {
				break
			}

			total += processed
		}

		fmt.Fprintf(cmd.OutOrStdout(), "rebuild complete, %d events projected\n", total)

		return nil
	},
}

func init() {
	projectorCmd.AddCommand(projectorRunCmd)
	projectorCmd.AddCommand(projectorRebuildCmd)
}

func buildProjector(ctx context.Context, cfg *config.Config) (*projection.Projector, func(), error) {
	events, closeEvents, err := openEventStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	db, err := sqlx.Open("pgx", cfg.Database.ProjectionsDSN)
	if err != nil {
		closeEvents()
		return nil, nil, fmt.Errorf("connecting to projections database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	cleanup := func() {
		_ = db.Close()
		closeEvents()
	}

	projector, err := projection.NewProjector(
		events,
		projection.Stores{
			Sessions:     postgresstore.NewSessionStore(db),
			LicensePools: postgresstore.NewLicensePoolStore(db),
			Companies:    postgresstore.NewCompanyStore(db),
			Products:     postgresstore.NewProductStore(db),
			Participants: postgresstore.NewParticipantStore(db),
		},
		postgresstore.NewCheckpointStore(db),
		projection.WithProjectorName(cfg.Projector.Name),
		projection.WithBatchSize(cfg.Projector.BatchSize),
		projection.WithPollInterval(cfg.Projector.PollInterval),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return projector, cleanup, nil
}

func openCheckpointStore(cfg *config.Config) (*postgresstore.CheckpointStore, *sqlx.DB, error) {
	db, err := sqlx.Open("pgx", cfg.Database.ProjectionsDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to projections database: %w", err)
	}

	return postgresstore.NewCheckpointStore(db), db, nil
}
