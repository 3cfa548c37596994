// Package main provides the API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/shopsense-ai/shopsense/libs/recommender/cmd/recommender-api/handlers"
	"github.com/shopsense-ai/shopsense/libs/recommender/cmd/recommender-api/middleware"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/config"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
)

// Deps bundles the constructed service dependencies for the router.
type Deps struct {
	Recommendations *handlers.RecommendationsHandler
	Catalog         *handlers.CatalogHandler
	Triples         *handlers.TriplesHandler
	Similarity      *handlers.SimilarityHandler
	Explain         *handlers.ExplainHandler
}

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.ReadTimeout))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Product recommender backend running"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"recommender"}`))
	})

	r.Get("/recommendations", deps.Recommendations.Get)
	r.Post("/upload_catalog", deps.Catalog.Upload)
	r.Post("/extract_triples", deps.Triples.Extract)
	r.Get("/triples", deps.Triples.ListBySubject)
	r.Post("/index_catalog", deps.Similarity.Index)
	r.Get("/similar", deps.Similarity.Similar)
	r.Post("/explain", deps.Explain.Explain)

	return r
}
