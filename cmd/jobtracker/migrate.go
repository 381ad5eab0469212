package main

import (
	"context"
	"fmt"

	"github.com/jonathan/job-tracker/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the PostgreSQL document table",
	Long:  "Applies the PostgreSQL schema for the document store. MongoDB and the in-memory store need no migration.",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Driver != db.DriverPostgres {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Nothing to migrate for the %s store\n", cfg.Store.Driver)
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := db.Connect(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Migration complete")
	return nil
}
