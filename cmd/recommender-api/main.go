// Package main provides the recommender API server entrypoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shopsense-ai/shopsense/libs/recommender/cmd/recommender-api/handlers"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/cache"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/catalog"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/config"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/embedding"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/kg"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/llm"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/retrieval"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/search"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/storage"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/vectorstore"
)

func main() {
	// Local development keeps secrets in a .env file.
	_ = godotenv.Load()

	cfgPath := flag.String("config", os.Getenv("CONFIG_PATH"), "config file path")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Str("cache", cfg.Cache.Driver).
		Msg("Starting recommender API")

	ctx := context.Background()

	db, err := storage.Open(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := storage.EnsureSchema(ctx, db, cfg.Database.Driver); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	repos := storage.NewRepositories(db)

	var cacheClient cache.Client
	if cfg.Cache.Driver == "redis" {
		redisClient, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		cacheClient = redisClient
	} else {
		cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}
	defer cacheClient.Close()

	var embedder embedding.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder, err = embedding.NewClient(embedding.Config{
			APIKey:    cfg.Embedding.APIKey,
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			Timeout:   cfg.Embedding.Timeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create embedding client")
		}
	} else {
		logger.Warn().Msg("No embedding API key configured, using deterministic local embedder")
		embedder = embedding.NewMockClient(cfg.Embedding.Dimension)
	}

	store := vectorstore.New(embedder, vectorstore.Config{
		IndexPath: cfg.Vector.IndexPath,
		MetaPath:  cfg.Vector.MetaPath,
	})
	retriever := retrieval.New(store, logger)

	if cfg.LLM.APIKey == "" {
		logger.Fatal().Msg("GEMINI_API_KEY is required")
	}
	gemini, err := llm.NewGeminiClient(ctx, llm.Config{
		APIKey: cfg.LLM.APIKey,
		Model:  cfg.LLM.Model,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	defer gemini.Close()

	searchClient := search.NewClient(cfg.Search, logger)
	summarizer := catalog.NewSummarizer(gemini, logger)
	extractor := kg.NewExtractor(gemini, logger)
	explainer := llm.NewExplainer(gemini, logger)

	deps := Deps{
		Recommendations: handlers.NewRecommendationsHandler(logger, searchClient, cacheClient, cfg.Cache.TTL),
		Catalog:         handlers.NewCatalogHandler(logger, summarizer, repos.UploadedFiles, cfg.Uploads.Dir),
		Triples:         handlers.NewTriplesHandler(logger, extractor, repos.UploadedFiles, repos.Triples),
		Similarity:      handlers.NewSimilarityHandler(logger, store, retriever, repos.UploadedFiles),
		Explain:         handlers.NewExplainHandler(logger, explainer),
	}

	router := NewRouter(logger, cfg, deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}
