package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/llm"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
)

const (
	// maxPromptRows caps how many catalog rows reach the prompt, keeping
	// prompts within safe token limits. Not configurable per call.
	maxPromptRows = 5

	// maxDescriptionLen caps rendered description fields.
	maxDescriptionLen = 100

	maxReasoningItems   = 3
	maxAlternativeItems = 2
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// essentialColumns is the preferred compact column subset when the catalog
// provides all four of them.
var essentialColumns = []string{"name", "price", "rating", "description"}

// Analysis is the parsed recommendation returned by the model.
type Analysis struct {
	BestProduct  string   `json:"best_product"`
	Reasoning    []string `json:"reasoning"`
	Alternatives []string `json:"alternatives"`
}

// Result is the outcome of one summarize call. Failures are carried in-band
// rather than as Go errors so HTTP handlers can relay them verbatim.
type Result struct {
	Status  string    `json:"status"`
	Result  *Analysis `json:"result,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Summarizer analyzes an uploaded catalog file with an LLM and returns a
// best-product recommendation. It is stateless across calls.
type Summarizer struct {
	gen    llm.Generator
	logger *observability.Logger
}

// NewSummarizer creates a Summarizer backed by the given generator.
func NewSummarizer(gen llm.Generator, logger *observability.Logger) *Summarizer {
	return &Summarizer{
		gen:    gen,
		logger: logger.WithComponent("summarizer"),
	}
}

// Summarize parses the file at path, renders a compact sample of its rows
// into a fixed prompt and asks the model for a structured recommendation.
// Each call is a single parse, compact, prompt, parse-response pipeline with
// no retries. Any stage failure yields an error result, never a partial one.
func (s *Summarizer) Summarize(ctx context.Context, path string) Result {
	if _, err := os.Stat(path); err != nil {
		return errorResult(fmt.Sprintf("File not found: %s", path))
	}

	table, err := ParseFile(path)
	if err != nil {
		if errors.Is(err, ErrUnsupportedType) {
			return errorResult("Unsupported file type.")
		}
		return errorResult(err.Error())
	}
	if len(table.Rows) == 0 {
		return errorResult("Catalog contains no rows.")
	}

	s.logger.Info().
		Str("file", path).
		Int("rows", len(table.Rows)).
		Int("columns", len(table.Columns)).
		Msg("Loaded catalog")

	prompt := BuildPrompt(table)

	text, err := s.gen.Generate(ctx, prompt, llm.GenerateOptions{
		Temperature:     0.3,
		TopP:            0.9,
		MaxOutputTokens: 4000,
		JSONResponse:    true,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("file", path).Msg("Catalog analysis call failed")
		return errorResult(err.Error())
	}

	cleaned := llm.StripCodeFence(text)

	var analysis Analysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		s.logger.Error().Err(err).Str("raw_output", text).Msg("Model returned unparseable JSON")
		return errorResult(fmt.Sprintf("JSON parsing failed: %s", err))
	}

	if len(analysis.Reasoning) > maxReasoningItems {
		analysis.Reasoning = analysis.Reasoning[:maxReasoningItems]
	}
	if len(analysis.Alternatives) > maxAlternativeItems {
		analysis.Alternatives = analysis.Alternatives[:maxAlternativeItems]
	}

	return Result{Status: StatusSuccess, Result: &analysis}
}

// BuildPrompt renders at most maxPromptRows catalog rows into the fixed
// analysis prompt.
func BuildPrompt(table *Table) string {
	rows := table.Rows
	if len(rows) > maxPromptRows {
		rows = rows[:maxPromptRows]
	}

	columns := compactColumns(table.Columns)

	lines := make([]string, 0, len(rows))
	for i, row := range rows {
		fields := make([]string, 0, len(columns))
		for _, col := range columns {
			value := row[col]
			if col == "description" {
				value = truncateRunes(value, maxDescriptionLen)
			}
			fields = append(fields, fmt.Sprintf("%s: %s", col, value))
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, strings.Join(fields, " | ")))
	}

	return fmt.Sprintf(`Analyze these products and recommend the best one based on VALUE, FEATURES, and RATING.

%s

Provide compelling, data-driven reasoning with specific numbers and comparisons. Keep each reason under 50 words.

JSON format:
{
  "best_product": "<exact name>",
  "reasoning": [
    "<specific feature/spec that stands out>",
    "<price-to-performance comparison with numbers>",
    "<unique selling point or rating insight>"
  ],
  "alternatives": ["<exact name>", "<exact name>"]
}`, strings.Join(lines, "\n"))
}

// compactColumns picks the rendered column subset: the canonical essential
// columns when the catalog has all of them, otherwise the first four columns
// in file order.
func compactColumns(columns []string) []string {
	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col] = true
	}

	all := true
	for _, col := range essentialColumns {
		if !present[col] {
			all = false
			break
		}
	}
	if all {
		return essentialColumns
	}

	if len(columns) > 4 {
		return columns[:4]
	}
	return columns
}

// truncateRunes caps s at max characters, never splitting a multi-byte rune.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func errorResult(message string) Result {
	return Result{Status: StatusError, Message: message}
}
