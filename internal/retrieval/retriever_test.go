package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/embedding"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/vectorstore"
)

func newTestRetriever(t *testing.T) (*Retriever, *vectorstore.Store) {
	t.Helper()
	dir := t.TempDir()
	store := vectorstore.New(embedding.NewMockClient(64), vectorstore.Config{
		IndexPath: filepath.Join(dir, "catalog.index"),
		MetaPath:  filepath.Join(dir, "catalog_meta.json"),
	})
	return New(store, observability.DefaultLogger()), store
}

func TestRetriever_AbsentIndexReturnsEmpty(t *testing.T) {
	r, _ := newTestRetriever(t)

	results, err := r.Retrieve(context.Background(), "headphones", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestRetriever_ExactMatchScoresZero(t *testing.T) {
	r, store := newTestRetriever(t)
	ctx := context.Background()

	require.NoError(t, store.Build(ctx,
		[]string{"sony wireless headphones", "dell ultrabook laptop"},
		[]vectorstore.Meta{
			{"name": "Sony WH-1000XM4"},
			{"name": "Dell XPS 13"},
		},
	))

	results, err := r.Retrieve(ctx, "sony wireless headphones", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Sony WH-1000XM4", results[0]["name"])
	assert.Equal(t, float64(0), results[0][ScoreKey])
}

func TestRetriever_TopKLimit(t *testing.T) {
	r, store := newTestRetriever(t)
	ctx := context.Background()

	texts := []string{"camera", "tripod", "lens", "battery", "charger", "strap"}
	metas := make([]vectorstore.Meta, len(texts))
	for i, text := range texts {
		metas[i] = vectorstore.Meta{"name": text}
	}
	require.NoError(t, store.Build(ctx, texts, metas))

	results, err := r.Retrieve(ctx, "camera accessories", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// Results must be ordered by ascending distance.
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1][ScoreKey].(float64), results[i][ScoreKey].(float64))
	}
}

func TestRetriever_DefaultTopK(t *testing.T) {
	r, store := newTestRetriever(t)
	ctx := context.Background()

	texts := make([]string, 8)
	metas := make([]vectorstore.Meta, 8)
	for i := range texts {
		texts[i] = string(rune('a' + i))
		metas[i] = vectorstore.Meta{"i": float64(i)}
	}
	require.NoError(t, store.Build(ctx, texts, metas))

	results, err := r.Retrieve(ctx, "a", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
}

func TestRetriever_SkipsPositionsBeyondMetadata(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "catalog_meta.json")
	store := vectorstore.New(embedding.NewMockClient(64), vectorstore.Config{
		IndexPath: filepath.Join(dir, "catalog.index"),
		MetaPath:  metaPath,
	})
	r := New(store, observability.DefaultLogger())
	ctx := context.Background()

	require.NoError(t, store.Build(ctx,
		[]string{"camera", "tripod", "lens"},
		[]vectorstore.Meta{{"name": "camera"}, {"name": "tripod"}, {"name": "lens"}},
	))

	// Shrink the metadata sidecar so the last two index rows have no record.
	require.NoError(t, os.WriteFile(metaPath, []byte(`[{"name":"camera"}]`), 0o644))

	results, err := r.Retrieve(ctx, "camera", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "camera", results[0]["name"])
}

func TestRetriever_DoesNotMutateStoredMeta(t *testing.T) {
	r, store := newTestRetriever(t)
	ctx := context.Background()

	require.NoError(t, store.Build(ctx,
		[]string{"espresso machine"},
		[]vectorstore.Meta{{"name": "Gaggia Classic"}},
	))

	_, err := r.Retrieve(ctx, "espresso", 1)
	require.NoError(t, err)

	_, metas, err := store.Load()
	require.NoError(t, err)
	_, hasScore := metas[0][ScoreKey]
	assert.False(t, hasScore)
}
