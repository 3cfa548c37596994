package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/cache"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/search"
)

// Searcher is the product-search dependency of the recommendations handler.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Product, error)
}

// RecommendationsHandler serves product search results, caching responses per
// query to spare the upstream API quota.
type RecommendationsHandler struct {
	logger   *observability.Logger
	searcher Searcher
	cache    cache.Client
	cacheTTL time.Duration
}

// NewRecommendationsHandler creates a recommendations handler.
func NewRecommendationsHandler(logger *observability.Logger, searcher Searcher, cacheClient cache.Client, cacheTTL time.Duration) *RecommendationsHandler {
	return &RecommendationsHandler{
		logger:   logger.WithComponent("recommendations"),
		searcher: searcher,
		cache:    cacheClient,
		cacheTTL: cacheTTL,
	}
}

// recommendationsResponse is the success shape of GET /recommendations.
type recommendationsResponse struct {
	Results []search.Product `json:"results"`
	Message string           `json:"message,omitempty"`
}

// Get handles GET /recommendations?query=<string>.
func (h *RecommendationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		respond(w, map[string]string{"error": "query parameter is required"})
		return
	}

	ctx := r.Context()
	cacheKey := cache.Key("recommendations", query)

	if cached, err := h.cache.Get(ctx, cacheKey); err == nil {
		var resp recommendationsResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			h.logger.Debug().Str("query", query).Msg("Serving recommendations from cache")
			respond(w, resp)
			return
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		h.logger.Warn().Err(err).Msg("Cache lookup failed")
	}

	products, err := h.searcher.Search(ctx, query)
	if err != nil {
		h.logger.Error().Err(err).Str("query", query).Msg("Product search failed")
		respond(w, map[string]string{"error": err.Error()})
		return
	}

	resp := recommendationsResponse{Results: products}
	if len(products) == 0 {
		resp.Results = []search.Product{}
		resp.Message = "No matching products found."
	}

	if encoded, err := json.Marshal(resp); err == nil {
		if err := h.cache.Set(ctx, cacheKey, encoded, h.cacheTTL); err != nil {
			h.logger.Warn().Err(err).Msg("Cache store failed")
		}
	}

	respond(w, resp)
}
