package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/catalog"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/storage"
)

// maxUploadBytes bounds the multipart memory buffer for catalog uploads.
const maxUploadBytes = 32 << 20

// CatalogHandler accepts catalog uploads, records them and returns the LLM
// analysis of their contents.
type CatalogHandler struct {
	logger     *observability.Logger
	summarizer *catalog.Summarizer
	files      *storage.UploadedFileRepository
	uploadsDir string
}

// NewCatalogHandler creates a catalog upload handler.
func NewCatalogHandler(logger *observability.Logger, summarizer *catalog.Summarizer, files *storage.UploadedFileRepository, uploadsDir string) *CatalogHandler {
	return &CatalogHandler{
		logger:     logger.WithComponent("catalog"),
		summarizer: summarizer,
		files:      files,
		uploadsDir: uploadsDir,
	}
}

// uploadResponse is the success shape of POST /upload_catalog.
type uploadResponse struct {
	FileID   int64          `json:"file_id"`
	Filename string         `json:"filename"`
	Analysis catalog.Result `json:"analysis"`
}

// Upload handles POST /upload_catalog. The file is stored under a generated
// name so colliding client filenames never overwrite each other, the upload
// is recorded, and the stored copy is analyzed.
func (h *CatalogHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, fmt.Sprintf("invalid multipart request: %s", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "file field is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	storedName := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	storedPath := filepath.Join(h.uploadsDir, storedName)

	if err := h.saveUpload(file, storedPath); err != nil {
		h.logger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to store upload")
		respondError(w, err.Error())
		return
	}

	h.logger.Info().Str("filename", header.Filename).Str("stored_path", storedPath).Msg("File saved")

	analysis := h.summarizer.Summarize(r.Context(), storedPath)

	uploaded := &storage.UploadedFile{
		Filename:   header.Filename,
		Filetype:   ext,
		Filepath:   storedPath,
		UploadTime: time.Now().UTC(),
	}
	if err := h.files.Create(r.Context(), uploaded); err != nil {
		h.logger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to record upload")
		respondError(w, err.Error())
		return
	}

	respond(w, uploadResponse{
		FileID:   uploaded.ID,
		Filename: uploaded.Filename,
		Analysis: analysis,
	})
}

func (h *CatalogHandler) saveUpload(src io.Reader, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write upload file: %w", err)
	}
	return nil
}
