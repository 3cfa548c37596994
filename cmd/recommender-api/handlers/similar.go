package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/catalog"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/kg"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/retrieval"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/storage"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/vectorstore"
)

// SimilarityHandler indexes catalog rows into the vector store and serves
// nearest-neighbor lookups over them.
type SimilarityHandler struct {
	logger    *observability.Logger
	store     *vectorstore.Store
	retriever *retrieval.Retriever
	files     *storage.UploadedFileRepository
}

// NewSimilarityHandler creates a similarity handler.
func NewSimilarityHandler(logger *observability.Logger, store *vectorstore.Store, retriever *retrieval.Retriever, files *storage.UploadedFileRepository) *SimilarityHandler {
	return &SimilarityHandler{
		logger:    logger.WithComponent("similarity"),
		store:     store,
		retriever: retriever,
		files:     files,
	}
}

type indexCatalogRequest struct {
	FileID int64 `json:"file_id"`
}

type indexCatalogResponse struct {
	Status  string `json:"status"`
	FileID  int64  `json:"file_id"`
	Indexed int    `json:"indexed"`
}

// Index handles POST /index_catalog: every row of the uploaded catalog is
// embedded and appended to the similarity index with the row itself as
// metadata.
func (h *SimilarityHandler) Index(w http.ResponseWriter, r *http.Request) {
	var req indexCatalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body")
		return
	}

	ctx := r.Context()

	uploaded, err := h.files.GetByID(ctx, req.FileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, "uploaded file not found")
			return
		}
		respondError(w, err.Error())
		return
	}

	table, err := catalog.ParseFile(uploaded.Filepath)
	if err != nil {
		respondError(w, err.Error())
		return
	}

	indexed := 0
	for _, row := range table.Rows {
		text := kg.RowText(row)
		if text == "" {
			continue
		}

		meta := make(vectorstore.Meta, len(row)+1)
		for key, value := range row {
			meta[key] = value
		}
		meta["source_file"] = uploaded.Filename

		if err := h.store.Add(ctx, text, meta); err != nil {
			h.logger.Error().Err(err).Int64("file_id", req.FileID).Msg("Index append failed")
			respondError(w, err.Error())
			return
		}
		indexed++
	}

	respond(w, indexCatalogResponse{
		Status:  "success",
		FileID:  uploaded.ID,
		Indexed: indexed,
	})
}

// Similar handles GET /similar?query=<string>&top_k=<int>.
func (h *SimilarityHandler) Similar(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		respond(w, map[string]string{"error": "query parameter is required"})
		return
	}

	topK := retrieval.DefaultTopK
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			topK = parsed
		}
	}

	results, err := h.retriever.Retrieve(r.Context(), query, topK)
	if err != nil {
		h.logger.Error().Err(err).Str("query", query).Msg("Similarity lookup failed")
		respond(w, map[string]string{"error": err.Error()})
		return
	}

	respond(w, map[string]interface{}{"results": results})
}
