package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/catalog"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/kg"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/storage"
)

// TriplesHandler runs knowledge-graph extraction over a previously uploaded
// catalog.
type TriplesHandler struct {
	logger    *observability.Logger
	extractor *kg.Extractor
	files     *storage.UploadedFileRepository
	triples   *storage.TripleRepository
}

// NewTriplesHandler creates a triple extraction handler.
func NewTriplesHandler(logger *observability.Logger, extractor *kg.Extractor, files *storage.UploadedFileRepository, triples *storage.TripleRepository) *TriplesHandler {
	return &TriplesHandler{
		logger:    logger.WithComponent("triples"),
		extractor: extractor,
		files:     files,
		triples:   triples,
	}
}

type extractTriplesRequest struct {
	FileID int64 `json:"file_id"`
	UseLLM bool  `json:"use_llm"`
}

type extractTriplesResponse struct {
	Status     string `json:"status"`
	FileID     int64  `json:"file_id"`
	SourceFile string `json:"source_file"`
	Extracted  int    `json:"triples_extracted"`
}

// Extract handles POST /extract_triples.
func (h *TriplesHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractTriplesRequest
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
		h.logger.Error().Err(err).Int64("file_id", req.FileID).Msg("Upload lookup failed")
		respondError(w, err.Error())
		return
	}

	table, err := catalog.ParseFile(uploaded.Filepath)
	if err != nil {
		respondError(w, err.Error())
		return
	}

	extracted := h.extractor.Extract(ctx, table, uploaded.Filename, req.UseLLM)
	if err := h.extractor.Persist(ctx, h.triples, extracted); err != nil {
		h.logger.Error().Err(err).Int64("file_id", req.FileID).Msg("Triple persistence failed")
		respondError(w, err.Error())
		return
	}

	respond(w, extractTriplesResponse{
		Status:     "success",
		FileID:     uploaded.ID,
		SourceFile: uploaded.Filename,
		Extracted:  len(extracted),
	})
}

// ListBySubject handles GET /triples?subject=<string>.
func (h *TriplesHandler) ListBySubject(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	if subject == "" {
		respondError(w, "subject parameter is required")
		return
	}

	found, err := h.triples.ListBySubject(r.Context(), subject)
	if err != nil {
		h.logger.Error().Err(err).Str("subject", subject).Msg("Triple lookup failed")
		respondError(w, err.Error())
		return
	}

	respond(w, map[string]interface{}{"triples": found})
}
