package main

import (
	"fmt"

	"github.com/dionsnoeijen/polysynergy-node-runner/cmd/server/config"
	"github.com/dionsnoeijen/polysynergy-node-runner/internal/infrastructure/persistence/postgres"
	"github.com/spf13/cobra"
)

// migrateCmd applies pending database migrations and exits, for use as a
// one-shot init container ahead of the serve/worker processes.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbConfig := postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	}

	if err := postgres.RunMigrations(postgres.DSN(dbConfig), migrationsPath()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	fmt.Println("✅ Database migrations applied")
	return nil
}
