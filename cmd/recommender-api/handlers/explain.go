package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/llm"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
)

// ExplainHandler produces natural-language justifications for a recommended
// product.
type ExplainHandler struct {
	logger    *observability.Logger
	explainer *llm.Explainer
}

// NewExplainHandler creates an explanation handler.
func NewExplainHandler(logger *observability.Logger, explainer *llm.Explainer) *ExplainHandler {
	return &ExplainHandler{
		logger:    logger.WithComponent("explain"),
		explainer: explainer,
	}
}

type explainRequest struct {
	Query   string `json:"query"`
	Product struct {
		Title       string `json:"title"`
		Price       string `json:"price"`
		Rating      string `json:"rating"`
		Description string `json:"description"`
	} `json:"product"`
}

// Explain handles POST /explain.
func (h *ExplainHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body")
		return
	}
	if req.Product.Title == "" {
		respondError(w, "product title is required")
		return
	}

	explanation := h.explainer.Explain(r.Context(), req.Query, llm.ProductFacts{
		Title:       req.Product.Title,
		Price:       req.Product.Price,
		Rating:      req.Product.Rating,
		Description: req.Product.Description,
	})

	respond(w, map[string]string{"explanation": explanation})
}
