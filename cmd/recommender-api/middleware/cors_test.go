package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsHandler(origins []string) http.Handler {
	return CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORS_CrossOriginRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/recommendations", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()

	corsHandler([]string{"*"}).ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_NoOriginHeaderSkipsCORSHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/recommendations", nil)
	rec := httptest.NewRecorder()

	corsHandler([]string{"*"}).ServeHTTP(rec, req)

	_, present := rec.Header()["Access-Control-Allow-Origin"]
	assert.False(t, present)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/recommendations", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()

	corsHandler([]string{"http://localhost:3000"}).ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/upload_catalog", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()

	corsHandler([]string{"*"}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}
