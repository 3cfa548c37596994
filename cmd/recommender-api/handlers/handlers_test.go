package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/cache"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/catalog"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/embedding"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/kg"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/llm"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/retrieval"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/search"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/storage"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/vectorstore"
)

type stubSearcher struct {
	products []search.Product
	err      error
	calls    int
}

func (s *stubSearcher) Search(_ context.Context, _ string) ([]search.Product, error) {
	s.calls++
	return s.products, s.err
}

type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) Generate(_ context.Context, _ string, _ llm.GenerateOptions) (string, error) {
	return s.text, s.err
}

func testLogger() *observability.Logger {
	return observability.DefaultLogger()
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.EnsureSchema(context.Background(), db, "sqlite"))
	return db
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRecommendations_MissingQuery(t *testing.T) {
	h := NewRecommendationsHandler(testLogger(), &stubSearcher{}, cache.NewMemoryClient(10), time.Minute)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/recommendations", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "query parameter is required")
}

func TestRecommendations_SearchErrorStays200(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("upstream down")}
	h := NewRecommendationsHandler(testLogger(), searcher, cache.NewMemoryClient(10), time.Minute)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/recommendations?query=tv", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "upstream down", body["error"])
}

func TestRecommendations_CachesByQuery(t *testing.T) {
	searcher := &stubSearcher{products: []search.Product{{Title: "Sony WH-1000XM4"}}}
	h := NewRecommendationsHandler(testLogger(), searcher, cache.NewMemoryClient(10), time.Minute)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/recommendations?query=headphones", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		results := body["results"].([]interface{})
		require.Len(t, results, 1)
	}

	assert.Equal(t, 1, searcher.calls)
}

func TestRecommendations_EmptyResults(t *testing.T) {
	h := NewRecommendationsHandler(testLogger(), &stubSearcher{}, cache.NewMemoryClient(10), time.Minute)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/recommendations?query=obscure", nil))

	body := decodeBody(t, rec)
	assert.Equal(t, "No matching products found.", body["message"])
	assert.Empty(t, body["results"])
}

func multipartUpload(t *testing.T, fieldName, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestUploadCatalog(t *testing.T) {
	db := openTestDB(t)
	files := storage.NewUploadedFileRepository(db)
	gen := &stubGenerator{text: `{"best_product": "Acme Buds", "reasoning": ["cheap"], "alternatives": []}`}
	uploadsDir := t.TempDir()

	h := NewCatalogHandler(testLogger(), catalog.NewSummarizer(gen, testLogger()), files, uploadsDir)

	buf, contentType := multipartUpload(t, "file", "products.csv", "name,price\nAcme Buds,49.99\n")
	req := httptest.NewRequest(http.MethodPost, "/upload_catalog", buf)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)

	assert.Equal(t, "products.csv", body["filename"])
	assert.Greater(t, body["file_id"].(float64), 0.0)

	analysis := body["analysis"].(map[string]interface{})
	assert.Equal(t, "success", analysis["status"])

	// The stored copy gets a generated name, not the client's filename.
	entries, err := os.ReadDir(uploadsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEqual(t, "products.csv", entries[0].Name())
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".csv"))
}

func TestUploadCatalog_MissingFileField(t *testing.T) {
	db := openTestDB(t)
	h := NewCatalogHandler(testLogger(), catalog.NewSummarizer(&stubGenerator{}, testLogger()), storage.NewUploadedFileRepository(db), t.TempDir())

	buf, contentType := multipartUpload(t, "wrong_field", "products.csv", "name\nA\n")
	req := httptest.NewRequest(http.MethodPost, "/upload_catalog", buf)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "error", body["status"])
}

func seedUpload(t *testing.T, files *storage.UploadedFileRepository, dir, content string) *storage.UploadedFile {
	t.Helper()
	path := filepath.Join(dir, "seed.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	uploaded := &storage.UploadedFile{
		Filename:   "seed.csv",
		Filetype:   ".csv",
		Filepath:   path,
		UploadTime: time.Now().UTC(),
	}
	require.NoError(t, files.Create(context.Background(), uploaded))
	return uploaded
}

func TestExtractTriples(t *testing.T) {
	db := openTestDB(t)
	files := storage.NewUploadedFileRepository(db)
	triples := storage.NewTripleRepository(db)
	dir := t.TempDir()

	uploaded := seedUpload(t, files, dir, "name,brand,category\nSony WH-1000XM4,Sony,Audio\n")

	h := NewTriplesHandler(testLogger(), kg.NewExtractor(nil, testLogger()), files, triples)

	payload, _ := json.Marshal(map[string]interface{}{"file_id": uploaded.ID, "use_llm": false})
	rec := httptest.NewRecorder()
	h.Extract(rec, httptest.NewRequest(http.MethodPost, "/extract_triples", bytes.NewReader(payload)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, 2.0, body["triples_extracted"])

	stored, err := triples.ListBySubject(context.Background(), "Sony WH-1000XM4")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestExtractTriples_UnknownFile(t *testing.T) {
	db := openTestDB(t)
	h := NewTriplesHandler(testLogger(), kg.NewExtractor(nil, testLogger()), storage.NewUploadedFileRepository(db), storage.NewTripleRepository(db))

	payload, _ := json.Marshal(map[string]interface{}{"file_id": 999})
	rec := httptest.NewRecorder()
	h.Extract(rec, httptest.NewRequest(http.MethodPost, "/extract_triples", bytes.NewReader(payload)))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "not found")
}

func TestIndexCatalogThenSimilar(t *testing.T) {
	db := openTestDB(t)
	files := storage.NewUploadedFileRepository(db)
	dir := t.TempDir()

	uploaded := seedUpload(t, files, dir, "name,brand\nSony WH-1000XM4,Sony\nAcme Buds,Acme\n")

	store := vectorstore.New(embedding.NewMockClient(32), vectorstore.Config{
		IndexPath: filepath.Join(dir, "catalog.index"),
		MetaPath:  filepath.Join(dir, "catalog_meta.json"),
	})
	h := NewSimilarityHandler(testLogger(), store, retrieval.New(store, testLogger()), files)

	payload, _ := json.Marshal(map[string]interface{}{"file_id": uploaded.ID})
	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodPost, "/index_catalog", bytes.NewReader(payload)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, 2.0, body["indexed"])

	rec = httptest.NewRecorder()
	h.Similar(rec, httptest.NewRequest(http.MethodGet, "/similar?query=Sony&top_k=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	simBody := decodeBody(t, rec)
	results := simBody["results"].([]interface{})
	require.Len(t, results, 1)

	first := results[0].(map[string]interface{})
	assert.Equal(t, "seed.csv", first["source_file"])
	assert.Contains(t, first, retrieval.ScoreKey)
}

func TestSimilar_NoIndexYet(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	store := vectorstore.New(embedding.NewMockClient(32), vectorstore.Config{
		IndexPath: filepath.Join(dir, "catalog.index"),
		MetaPath:  filepath.Join(dir, "catalog_meta.json"),
	})
	h := NewSimilarityHandler(testLogger(), store, retrieval.New(store, testLogger()), storage.NewUploadedFileRepository(db))

	rec := httptest.NewRecorder()
	h.Similar(rec, httptest.NewRequest(http.MethodGet, "/similar?query=anything", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Empty(t, body["results"])
}

func TestExplain(t *testing.T) {
	gen := &stubGenerator{text: "Strong value for money."}
	h := NewExplainHandler(testLogger(), llm.NewExplainer(gen, testLogger()))

	payload, _ := json.Marshal(map[string]interface{}{
		"query": "earbuds",
		"product": map[string]string{
			"title": "Acme Buds",
			"price": "$49",
		},
	})
	rec := httptest.NewRecorder()
	h.Explain(rec, httptest.NewRequest(http.MethodPost, "/explain", bytes.NewReader(payload)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Strong value for money.", body["explanation"])
}

func TestExplain_MissingTitle(t *testing.T) {
	h := NewExplainHandler(testLogger(), llm.NewExplainer(&stubGenerator{}, testLogger()))

	rec := httptest.NewRecorder()
	h.Explain(rec, httptest.NewRequest(http.MethodPost, "/explain", strings.NewReader(`{"query":"x","product":{}}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "error", body["status"])
}
