package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tarcisioribeiro/unipost-admin-sub000/db"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(*cobra.Command, []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validating config: %w", err)
		}
		return db.Migrate(cfg.PostgresURL(), slog.Default())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
