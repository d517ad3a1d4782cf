// Package cmd implements the unipost-admin command line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/log"
)

var (
	flagLogLevel string
	flagLogJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "unipost-admin",
	Short: "Content generation pipeline with retrieval and approval workflow",
	Long: `unipost-admin generates platform-targeted social media texts from a
topic: it retrieves reference context from the search index, ranks it by
embedding similarity, composes a word-count constrained prompt, drives
the generative backends through a bounded retry loop, and manages the
approval lifecycle of the results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level, err := log.ParseLevel(flagLogLevel)
		if err != nil {
			return err
		}
		slog.SetDefault(log.New(log.Config{Level: level, JSON: flagLogJSON}))
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false,
		"emit logs as JSON")
}
