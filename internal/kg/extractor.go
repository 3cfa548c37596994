// Package kg extracts knowledge-graph triples from catalog rows, combining
// structural heuristics with optional LLM extraction.
package kg

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/catalog"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/llm"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/storage"
)

// baselineConfidence is assigned to triples derived directly from structured
// catalog columns.
const baselineConfidence = 0.9

// defaultLLMConfidence is assumed when an LLM-returned triple omits a
// confidence value.
const defaultLLMConfidence = 1.0

// textFields are the catalog columns folded into a row's text block, in
// rendering order.
var textFields = []string{"name", "title", "brand", "category", "description"}

// Extractor turns catalog rows into knowledge triples.
type Extractor struct {
	gen    llm.Generator
	logger *observability.Logger
}

// NewExtractor creates an Extractor. gen may be nil if LLM extraction is
// never requested.
func NewExtractor(gen llm.Generator, logger *observability.Logger) *Extractor {
	return &Extractor{
		gen:    gen,
		logger: logger.WithComponent("kg"),
	}
}

// Extract produces triples for every row of the table. Structural brand and
// category triples are always emitted when those columns carry values. When
// useLLM is set, each row additionally goes through an LLM extraction pass.
// LLM failures are logged and skipped per row so one bad row never aborts the
// batch; callers get whatever subset extracted cleanly.
func (e *Extractor) Extract(ctx context.Context, table *catalog.Table, sourceFile string, useLLM bool) []*storage.Triple {
	triples := make([]*storage.Triple, 0, len(table.Rows)*2)

	for i, row := range table.Rows {
		text := RowText(row)
		subject := rowSubject(row, i)

		if brand := row["brand"]; brand != "" {
			triples = append(triples, &storage.Triple{
				Subject:    subject,
				Predicate:  "brand",
				Object:     brand,
				Confidence: baselineConfidence,
				SourceFile: sourceFile,
				Raw:        text,
			})
		}
		if category := row["category"]; category != "" {
			triples = append(triples, &storage.Triple{
				Subject:    subject,
				Predicate:  "category",
				Object:     category,
				Confidence: baselineConfidence,
				SourceFile: sourceFile,
				Raw:        text,
			})
		}

		if !useLLM {
			continue
		}

		extracted, err := e.extractWithLLM(ctx, text, sourceFile)
		if err != nil {
			e.logger.Warn().
				Err(err).
				Int("row", i).
				Str("source_file", sourceFile).
				Msg("LLM triple extraction failed for row, continuing")
			continue
		}
		triples = append(triples, extracted...)
	}

	return triples
}

// llmTriple mirrors the JSON objects the extraction prompt asks for.
// Confidence is a pointer so an omitted value can be told apart from 0.
type llmTriple struct {
	Subject    string   `json:"subject"`
	Predicate  string   `json:"predicate"`
	Object     string   `json:"object"`
	Confidence *float64 `json:"confidence"`
	SourceFile string   `json:"source_file"`
}

func (e *Extractor) extractWithLLM(ctx context.Context, text, sourceFile string) ([]*storage.Triple, error) {
	if e.gen == nil {
		return nil, fmt.Errorf("no generator configured")
	}

	prompt := fmt.Sprintf(`Extract factual triples from the following product.
Return ONLY a JSON list of objects with keys: subject, predicate, object, confidence (0-1).

Example:
[
  {"subject": "Sony WH-1000XM4", "predicate": "feature", "object": "noise cancellation", "confidence": 0.95}
]

Product data:
%s`, text)

	raw, err := e.gen.Generate(ctx, prompt, llm.GenerateOptions{
		Temperature:     0.3,
		TopP:            0.9,
		MaxOutputTokens: 256,
		JSONResponse:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	var parsed []llmTriple
	if err := json.Unmarshal([]byte(llm.StripCodeFence(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	triples := make([]*storage.Triple, 0, len(parsed))
	for _, t := range parsed {
		confidence := defaultLLMConfidence
		if t.Confidence != nil {
			confidence = *t.Confidence
		}
		source := t.SourceFile
		if source == "" {
			source = sourceFile
		}
		triples = append(triples, &storage.Triple{
			Subject:    t.Subject,
			Predicate:  t.Predicate,
			Object:     t.Object,
			Confidence: confidence,
			SourceFile: source,
			Raw:        text,
		})
	}
	return triples, nil
}

// Persist stores the batch through the triple repository, which commits all
// rows in one transaction.
func (e *Extractor) Persist(ctx context.Context, repo *storage.TripleRepository, triples []*storage.Triple) error {
	if err := repo.InsertBatch(ctx, triples); err != nil {
		return fmt.Errorf("persist triples: %w", err)
	}
	e.logger.Info().Int("count", len(triples)).Msg("Stored triples")
	return nil
}

// RowText renders the row's textual fields as newline-joined "field: value"
// lines, skipping empty fields.
func RowText(row map[string]string) string {
	parts := make([]string, 0, len(textFields))
	for _, field := range textFields {
		if value := row[field]; value != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", field, value))
		}
	}
	return strings.Join(parts, "\n")
}

// rowSubject guarantees a non-empty subject for every row: title, then name,
// then a synthetic positional identifier.
func rowSubject(row map[string]string, index int) string {
	if title := row["title"]; title != "" {
		return title
	}
	if name := row["name"]; name != "" {
		return name
	}
	return fmt.Sprintf("product_%d", index)
}
