package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/config"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "pam-api",
	Short: "Padinha & Araujo case management API",
	Long: `pam-api serves the office dashboard: cases, the weekly task agenda,
contacts and case documents, behind password sign-in with role based access.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		flags := cmd.Flags()
		if v, _ := flags.GetString("db-url"); v != "" {
			cfg.DatabaseURL = v
		}
		if v, _ := flags.GetString("migrations-dir"); v != "" {
			cfg.MigrationsDir = v
		}
		if v, _ := flags.GetString("log-level"); v != "" {
			cfg.LogLevel = v
		}
		cfg.ConfigureLogging()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().String("migrations-dir", "", "Directory holding *.up.sql files (env: MIGRATIONS_DIR)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (env: LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func poolConfig() store.PoolConfig {
	return store.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnectTimeout:  cfg.DBConnectTimeout,
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
