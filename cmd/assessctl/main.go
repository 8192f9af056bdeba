// assessctl is the operator CLI: schema migrations, platform-wide event
// scans, and projection catch-up or rebuild.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/probelab/assesscore/config"
	"github.com/probelab/assesscore/eventstore/postgresengine"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "assessctl",
	Short:         "Operator tooling for the assessment platform",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (optional, env vars apply on top)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(projectorCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	return cfg, nil
}

// openEventStore connects to the event store, adding the read replica when
// one is configured. Eventual-consistency reads then go to the replica.
func openEventStore(ctx context.Context, cfg *config.Config) (postgresengine.EventStore, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.Database.EventStoreDSN)
	if err != nil {
		return postgresengine.EventStore{}, nil, fmt.Errorf("connecting to event store: %w", err)
	}

	if cfg.Database.EventStoreReplicaDSN == "" {
		store, err := postgresengine.NewEventStoreFromPGXPool(pool)
		if err != nil {
			pool.Close()
			return postgresengine.EventStore{}, nil, err
		}

		return store, pool.Close, nil
	}

	replica, err := pgxpool.New(ctx, cfg.Database.EventStoreReplicaDSN)
	if err != nil {
		pool.Close()
		return postgresengine.EventStore{}, nil, fmt.Errorf("connecting to event store replica: %w", err)
	}

	cleanup := func() {
		replica.Close()
		pool.Close()
	}

	store, err := postgresengine.NewEventStoreFromPGXPoolWithReplica(pool, replica)
	if err != nil {
		cleanup()
		return postgresengine.EventStore{}, nil, err
	}

	return store, cleanup, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
