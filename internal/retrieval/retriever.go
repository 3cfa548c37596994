// Package retrieval provides k-nearest-neighbor lookup over the catalog
// embedding index.
package retrieval

import (
	"context"
	"fmt"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/vectorstore"
)

// DefaultTopK is the number of records returned when the caller does not ask
// for a specific count.
const DefaultTopK = 5

// ScoreKey is the metadata key carrying the squared Euclidean distance of a
// result to the query. Lower means more similar.
const ScoreKey = "_score"

// Retriever performs similarity lookups against the embedding store.
type Retriever struct {
	store  *vectorstore.Store
	logger *observability.Logger
}

// New creates a retriever over the given store.
func New(store *vectorstore.Store, logger *observability.Logger) *Retriever {
	return &Retriever{
		store:  store,
		logger: logger.WithComponent("retrieval"),
	}
}

// Retrieve embeds the query and returns up to topK metadata records scored by
// squared L2 distance. An absent index yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]vectorstore.Meta, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	index, metas, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	if index == nil {
		r.logger.Debug().Str("query", query).Msg("no index built yet, returning empty result")
		return []vectorstore.Meta{}, nil
	}

	vector, err := r.store.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	positions, distances := index.Search(vector, topK)

	results := make([]vectorstore.Meta, 0, len(positions))
	for i, pos := range positions {
		if pos < 0 || pos >= len(metas) {
			// Index rows without metadata are skipped rather than failing
			// the whole lookup.
			r.logger.Warn().Int("position", pos).Int("metas", len(metas)).Msg("index position out of metadata bounds")
			continue
		}

		meta := make(vectorstore.Meta, len(metas[pos])+1)
		for k, v := range metas[pos] {
			meta[k] = v
		}
		meta[ScoreKey] = float64(distances[i])
		results = append(results, meta)
	}

	r.logger.Debug().Str("query", query).Int("results", len(results)).Msg("similarity lookup complete")
	return results, nil
}
