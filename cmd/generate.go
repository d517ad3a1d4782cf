package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/config"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/pipeline"
)

var (
	flagSearchQuery string
	flagPlatform    string
	flagTone        string
	flagCreativity  string
	flagLength      string
	flagModel       string
)

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Run the generation pipeline once from the command line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd.Context(), args[0])
	},
}

func init() {
	generateCmd.Flags().StringVar(&flagSearchQuery, "search-query", "",
		"retrieval query (defaults to the topic)")
	generateCmd.Flags().StringVar(&flagPlatform, "platform", "",
		"target platform (FCB, INT, TTK, LKN)")
	generateCmd.Flags().StringVar(&flagTone, "tone", "", "tone descriptor")
	generateCmd.Flags().StringVar(&flagCreativity, "creativity", "", "creativity descriptor")
	generateCmd.Flags().StringVar(&flagLength, "length", "medium",
		`length: short, medium, long, or "Exact (N words)"`)
	generateCmd.Flags().StringVar(&flagModel, "model", "", "override the generation model")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(ctx context.Context, topic string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	a, err := setup(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Pipeline.Run(ctx, pipeline.Request{
		Topic:       topic,
		SearchQuery: flagSearchQuery,
		Platform:    flagPlatform,
		Tone:        flagTone,
		Creativity:  flagCreativity,
		Length:      flagLength,
		Model:       flagModel,
	})
	if err != nil {
		return err
	}

	fmt.Println(res.Text.Content)
	fmt.Println()
	fmt.Printf("id: %s\n", res.Text.ID)
	fmt.Printf("words: %d (target %d, within tolerance: %v)\n",
		res.Generation.WordCount, res.Generation.Target, res.Generation.WithinTolerance())
	fmt.Printf("attempts: %d, references: %d, provider: %s\n",
		res.Generation.Attempts, res.References, res.Generation.Provider)
	return nil
}
