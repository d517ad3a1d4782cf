package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/tarcisioribeiro/unipost-admin-sub000/db"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/cache"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/config"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/generate"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/llm"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/log"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/pipeline"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/search"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/texts"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/vector"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Generation backend calls are throttled to stay under provider rate
// limits when several users generate at once.
const (
	llmRatePerSecond = 2
	llmRateBurst     = 4
)

// app holds the wired components shared by the serve and generate
// commands.
type app struct {
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Store    *texts.Store
	Pipeline *pipeline.Pipeline
	logger   log.Logger
}

// setup wires every pipeline component from the configuration.
func setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*app, error) {
	pool, err := db.Connect(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cacheStore := cache.New(redisClient, logger)
	if err := cacheStore.Ping(ctx); err != nil {
		// Cache outage degrades to miss behavior; keep going.
		logger.Warn("cache backend unreachable at startup", "error", err)
	}

	retriever, err := search.New(search.Config{
		Addresses: []string{cfg.SearchAddress},
		Username:  cfg.SearchUsername,
		Password:  cfg.SearchPassword,
		Index:     cfg.SearchIndex,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating search retriever: %w", err)
	}
	if err := retriever.Ping(ctx); err != nil {
		logger.Warn("search backend unreachable at startup", "error", err)
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	embedder, err := vector.NewGeminiEmbedder(ctx, geminiKey, cfg.EmbedderModel)
	if err != nil {
		logger.Warn("embedder unavailable, similarity ranking disabled", "error", err)
		embedder = nil
	}

	primary := llm.NewOpenAIProvider(os.Getenv("OPENAI_API_KEY"), cfg.PrimaryModel)
	genOpts := []generate.Option{
		generate.WithTolerance(cfg.Tolerance),
		generate.WithMaxRetries(cfg.MaxRetries),
		generate.WithRateLimit(llmRatePerSecond, llmRateBurst),
	}
	fallback, err := llm.NewGeminiProvider(ctx, geminiKey, cfg.FallbackModel)
	if err != nil {
		logger.Warn("fallback backend unavailable", "error", err)
	} else {
		genOpts = append(genOpts, generate.WithFallback(fallback))
	}
	generator := generate.New(primary, logger, genOpts...)

	store := texts.New(pool, pool, logger)

	var pipelineEmbedder vector.Embedder
	if embedder != nil {
		pipelineEmbedder = embedder
	}
	p := pipeline.New(retriever, cacheStore, pipelineEmbedder, generator, store, pipeline.Options{
		ContextTTL:  cfg.ContextTTL(),
		VectorTTL:   cfg.VectorTTL(),
		Model:       cfg.PrimaryModel,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, logger)

	return &app{
		Pool:     pool,
		Redis:    redisClient,
		Store:    store,
		Pipeline: p,
		logger:   logger,
	}, nil
}

// Close releases the app's connections.
func (a *app) Close() {
	a.Pool.Close()
	if err := a.Redis.Close(); err != nil {
		a.logger.Warn("closing redis client failed", "error", err)
	}
}
