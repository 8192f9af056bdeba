package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	// Registers the pgx driver under the name "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/probelab/assesscore/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return forEachDatabase(func(name string, db *sql.DB) error {
			if err := migrations.Up(db); err != nil {
				return fmt.Errorf("migrating %s: %w", name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: schema is up to date\n", name)

			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return forEachDatabase(func(name string, db *sql.DB) error {
			if err := migrations.Down(db); err != nil {
				return fmt.Errorf("rolling back %s: %w", name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: schema rolled back\n", name)

			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return forEachDatabase(func(name string, db *sql.DB) error {
			version, dirty, err := migrations.Version(db)
			if err != nil {
				return fmt.Errorf("reading version of %s: %w", name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: version %d (dirty: %t)\n", name, version, dirty)

			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

// forEachDatabase runs fn once per distinct configured DSN. The event store
// and the projections commonly share one database; pointing both DSNs at the
// same server must not run the migrations twice.
func forEachDatabase(fn func(name string, db *sql.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	targets := []struct {
		name string
		dsn  string
	}{
		{name: "eventstore", dsn: cfg.Database.EventStoreDSN},
	}
	if cfg.Database.ProjectionsDSN != cfg.Database.EventStoreDSN {
		targets = append(targets, struct {
			name string
			dsn  string
		}{name: "projections", dsn: cfg.Database.ProjectionsDSN})
	}

	for _, target := range targets {
		db, err := sql.Open("pgx", target.dsn)
		if err != nil {
			return fmt.Errorf("opening %s database: %w", target.name, err)
		}

		if err := fn(target.name, db); err != nil {
			_ = db.Close()
			return err
		}

		if err := db.Close(); err != nil {
			return fmt.Errorf("closing %s database: %w", target.name, err)
		}
	}

	return nil
}
