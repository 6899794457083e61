package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long:  `Applies every *.up.sql file in the migrations directory that has not run yet, in file name order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := store.Open(ctx, cfg.DatabaseURL, poolConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
		if err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		log.WithField("applied", len(applied)).Info("database is up to date")
		return nil
	},
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back every applied migration",
	Long:  `Runs the *.down.sql file of each applied migration, newest first. All case data is dropped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("rollback drops every table; pass --yes to confirm")
		}
		ctx := cmd.Context()
		db, err := store.Open(ctx, cfg.DatabaseURL, poolConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		rolledBack, err := store.RollbackMigrations(ctx, db, cfg.MigrationsDir)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.WithField("rolled_back", len(rolledBack)).Info("rollback complete")
		return nil
	},
}

func init() {
	migrateRollbackCmd.Flags().Bool("yes", false, "Confirm dropping all tables")
	migrateCmd.AddCommand(migrateRollbackCmd)
}
