package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tarcisioribeiro/unipost-admin-sub000/api"
	"github.com/tarcisioribeiro/unipost-admin-sub000/db"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/config"
)

var flagServeAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "",
		"listen address (default "+api.DefaultAddr+")")
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	a, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := flagServeAddr
	if addr == "" {
		addr = cfg.ServerAddr
	}

	server := api.NewServer(a.Pipeline, a.Store, a.Pool, logger)
	return server.Run(ctx, addr)
}
