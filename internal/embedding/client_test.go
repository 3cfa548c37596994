package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_Deterministic(t *testing.T) {
	c := NewMockClient(384)
	ctx := context.Background()

	a, err := c.EmbedSingle(ctx, "wireless noise cancelling headphones")
	require.NoError(t, err)
	b, err := c.EmbedSingle(ctx, "wireless noise cancelling headphones")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 384)
}

func TestMockClient_FixedDimension(t *testing.T) {
	c := NewMockClient(0)
	assert.Equal(t, 384, c.Dimension())

	vecs, err := c.Embed(context.Background(), []string{"a", "much longer text about a laptop", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 384)
	}
}

func TestMockClient_DistinctTexts(t *testing.T) {
	c := NewMockClient(64)
	ctx := context.Background()

	a, err := c.EmbedSingle(ctx, "headphones")
	require.NoError(t, err)
	b, err := c.EmbedSingle(ctx, "refrigerator")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestClient_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 2)

		resp := EmbeddingResponse{
			Object: "list",
			Data: []EmbeddingData{
				{Object: "embedding", Embedding: []float32{0.1, 0.2, 0.3}, Index: 0},
				{Object: "embedding", Embedding: []float32{0.4, 0.5, 0.6}, Index: 1},
			},
			Model: req.Model,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, Dimension: 3})
	require.NoError(t, err)

	vecs, err := c.Embed(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vecs[0])
	assert.Equal(t, []float32{0.4, 0.5, 0.6}, vecs[1])
}

func TestClient_EmbedAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(EmbeddingResponse{
			Error: &EmbeddingError{Message: "invalid key", Type: "auth_error"},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "bad-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestClient_EmbedEmptyInput(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)

	vecs, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
