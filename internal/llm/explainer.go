package llm

import (
	"context"
	"fmt"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
)

// FallbackExplanation is returned when the model cannot produce an
// explanation, so callers always have presentable text.
const FallbackExplanation = "No explanation available for this product right now."

// ProductFacts is the subset of product fields fed into an explanation prompt.
type ProductFacts struct {
	Title       string
	Price       string
	Rating      string
	Description string
}

// Explainer produces a short natural-language justification for why a product
// suits a shopper's query.
type Explainer struct {
	gen    Generator
	logger *observability.Logger
}

// NewExplainer creates an Explainer backed by the given generator.
func NewExplainer(gen Generator, logger *observability.Logger) *Explainer {
	return &Explainer{
		gen:    gen,
		logger: logger.WithComponent("explainer"),
	}
}

// Explain asks the model why the product matches the query. Generation
// failures degrade to FallbackExplanation rather than an error so the
// recommendation flow never breaks on explanation problems.
func (e *Explainer) Explain(ctx context.Context, query string, facts ProductFacts) string {
	prompt := fmt.Sprintf(`You are a shopping assistant. A user searched for: %q

Candidate product:
- Title: %s
- Price: %s
- Rating: %s
- Description: %s

In 2-3 sentences, explain why this product is a good match for the search.
Be concrete about features and value. Respond with plain text only.`,
		query, orNA(facts.Title), orNA(facts.Price), orNA(facts.Rating), orNA(facts.Description))

	text, err := e.gen.Generate(ctx, prompt, GenerateOptions{
		Temperature:     0.3,
		TopP:            0.9,
		MaxOutputTokens: 4000,
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("query", query).Msg("Explanation generation failed, using fallback")
		return FallbackExplanation
	}
	return text
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
