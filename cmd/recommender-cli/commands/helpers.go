package commands

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/config"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/embedding"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/llm"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/storage"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/vectorstore"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func cliLogger(cfg *config.Config) *observability.Logger {
	level := cfg.Observability.LogLevel
	if !verbose {
		// Keep the terminal quiet unless asked otherwise.
		level = "error"
	}
	return observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		ServiceName: cfg.Observability.ServiceName,
	})
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.EnsureSchema(ctx, db, cfg.Database.Driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func newGemini(ctx context.Context, cfg *config.Config) (*llm.GeminiClient, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	client, err := llm.NewGeminiClient(ctx, llm.Config{
		APIKey: cfg.LLM.APIKey,
		Model:  cfg.LLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return client, nil
}

func newStore(cfg *config.Config, logger *observability.Logger) *vectorstore.Store {
	var embedder embedding.Embedder
	if cfg.Embedding.APIKey != "" {
		client, err := embedding.NewClient(embedding.Config{
			APIKey:    cfg.Embedding.APIKey,
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			Timeout:   cfg.Embedding.Timeout,
		})
		if err == nil {
			embedder = client
		} else {
			logger.Warn().Err(err).Msg("Embedding client unavailable, using local embedder")
		}
	}
	if embedder == nil {
		embedder = embedding.NewMockClient(cfg.Embedding.Dimension)
	}

	return vectorstore.New(embedder, vectorstore.Config{
		IndexPath: cfg.Vector.IndexPath,
		MetaPath:  cfg.Vector.MetaPath,
	})
}
