package kg

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/catalog"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/llm"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/storage"
)

type stubGenerator struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubGenerator) Generate(_ context.Context, _ string, _ llm.GenerateOptions) (string, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var text string
	if i < len(s.responses) {
		text = s.responses[i]
	}
	return text, err
}

func newExtractor(gen llm.Generator) *Extractor {
	return NewExtractor(gen, observability.DefaultLogger())
}

func TestExtract_BaselineTriples(t *testing.T) {
	table := &catalog.Table{
		Columns: []string{"name", "brand", "category"},
		Rows: []map[string]string{
			{"name": "Sony WH-1000XM4", "brand": "Sony", "category": "Audio"},
		},
	}

	triples := newExtractor(nil).Extract(context.Background(), table, "catalog.csv", false)

	require.Len(t, triples, 2)

	assert.Equal(t, "Sony WH-1000XM4", triples[0].Subject)
	assert.Equal(t, "brand", triples[0].Predicate)
	assert.Equal(t, "Sony", triples[0].Object)
	assert.InDelta(t, 0.9, triples[0].Confidence, 1e-9)
	assert.Equal(t, "catalog.csv", triples[0].SourceFile)

	assert.Equal(t, "category", triples[1].Predicate)
	assert.Equal(t, "Audio", triples[1].Object)
	assert.Contains(t, triples[1].Raw, "name: Sony WH-1000XM4")
	assert.Contains(t, triples[1].Raw, "category: Audio")
}

func TestExtract_SubjectFallbackChain(t *testing.T) {
	table := &catalog.Table{
		Columns: []string{"title", "name", "brand"},
		Rows: []map[string]string{
			{"title": "Preferred Title", "name": "Other Name", "brand": "Acme"},
			{"name": "Name Only", "brand": "Acme"},
			{"brand": "Acme"},
		},
	}

	triples := newExtractor(nil).Extract(context.Background(), table, "f.csv", false)

	require.Len(t, triples, 3)
	assert.Equal(t, "Preferred Title", triples[0].Subject)
	assert.Equal(t, "Name Only", triples[1].Subject)
	assert.Equal(t, "product_2", triples[2].Subject)
}

func TestExtract_SkipsEmptyFields(t *testing.T) {
	table := &catalog.Table{
		Columns: []string{"name", "brand", "category"},
		Rows: []map[string]string{
			{"name": "Plain Widget", "brand": "", "category": ""},
		},
	}

	triples := newExtractor(nil).Extract(context.Background(), table, "f.csv", false)
	assert.Empty(t, triples)
}

func TestExtract_LLMTriples(t *testing.T) {
	gen := &stubGenerator{
		responses: []string{`[
			{"subject": "Sony WH-1000XM4", "predicate": "feature", "object": "noise cancellation", "confidence": 0.95},
			{"subject": "Sony WH-1000XM4", "predicate": "color", "object": "black"}
		]`},
	}
	table := &catalog.Table{
		Columns: []string{"name", "brand"},
		Rows: []map[string]string{
			{"name": "Sony WH-1000XM4", "brand": "Sony"},
		},
	}

	triples := newExtractor(gen).Extract(context.Background(), table, "catalog.csv", true)

	require.Len(t, triples, 3)
	assert.Equal(t, "feature", triples[1].Predicate)
	assert.InDelta(t, 0.95, triples[1].Confidence, 1e-9)

	// Missing confidence and source_file take their defaults.
	assert.Equal(t, "color", triples[2].Predicate)
	assert.InDelta(t, 1.0, triples[2].Confidence, 1e-9)
	assert.Equal(t, "catalog.csv", triples[2].SourceFile)
}

func TestExtract_LLMFailureSkipsRowOnly(t *testing.T) {
	gen := &stubGenerator{
		responses: []string{"", `[{"subject": "B", "predicate": "p", "object": "o"}]`},
		errs:      []error{errors.New("model overloaded"), nil},
	}
	table := &catalog.Table{
		Columns: []string{"name"},
		Rows: []map[string]string{
			{"name": "A"},
			{"name": "B"},
		},
	}

	triples := newExtractor(gen).Extract(context.Background(), table, "f.csv", true)

	require.Len(t, triples, 1)
	assert.Equal(t, "B", triples[0].Subject)
	assert.Equal(t, 2, gen.calls)
}

func TestExtract_LLMMalformedJSONSkipsRow(t *testing.T) {
	gen := &stubGenerator{responses: []string{"not json at all"}}
	table := &catalog.Table{
		Columns: []string{"name", "brand"},
		Rows: []map[string]string{
			{"name": "A", "brand": "Acme"},
		},
	}

	triples := newExtractor(gen).Extract(context.Background(), table, "f.csv", true)

	// Baseline triple survives even when the LLM pass fails.
	require.Len(t, triples, 1)
	assert.Equal(t, "brand", triples[0].Predicate)
}

func TestPersist_RoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "kg.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, storage.EnsureSchema(ctx, db, "sqlite"))

	repo := storage.NewTripleRepository(db)
	extractor := newExtractor(nil)

	table := &catalog.Table{
		Columns: []string{"name", "brand", "category"},
		Rows: []map[string]string{
			{"name": "Sony WH-1000XM4", "brand": "Sony", "category": "Audio"},
		},
	}
	triples := extractor.Extract(ctx, table, "catalog.csv", false)
	require.NoError(t, extractor.Persist(ctx, repo, triples))

	stored, err := repo.ListBySubject(ctx, "Sony WH-1000XM4")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}
