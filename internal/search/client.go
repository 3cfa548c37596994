// Package search queries a SerpAPI-style shopping search API and normalizes
// its heterogeneous result shapes into a canonical product record.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/config"
	"github.com/shopsense-ai/shopsense/libs/recommender/internal/observability"
)

// maxResults caps how many normalized products one search returns.
const maxResults = 12

// resultSections are the known response keys that may carry product lists,
// tried in order. The upstream API varies its shape by engine and query.
var resultSections = []string{
	"shopping_results",
	"organic_results",
	"search_results",
	"category_results",
	"filters",
	"features",
	"items",
}

// Product is the canonical normalized search result.
type Product struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Client calls the remote product-search API.
type Client struct {
	config     config.SearchConfig
	httpClient *http.Client
	logger     *observability.Logger
}

// NewClient creates a search client from configuration.
func NewClient(cfg config.SearchConfig, logger *observability.Logger) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.WithComponent("search"),
	}
}

// Search fetches product results for the query. Upstream errors reported
// in-band by the API surface as Go errors; a response with no recognizable
// product section yields an empty slice, not an error.
func (c *Client) Search(ctx context.Context, query string) ([]Product, error) {
	params := url.Values{}
	params.Set("engine", c.config.Engine)
	params.Set("amazon_domain", c.config.Domain)
	params.Set("api_key", c.config.APIKey)
	params.Set("k", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var data map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	if apiErr, ok := data["error"].(string); ok && apiErr != "" {
		return nil, fmt.Errorf("search API error: %s", apiErr)
	}

	section, items := findResultSection(data)
	if items == nil {
		c.logger.Warn().Str("query", query).Msg("No recognizable product results in response")
		return []Product{}, nil
	}
	c.logger.Debug().Str("query", query).Str("section", section).Int("raw_count", len(items)).Msg("Found product results")

	return normalize(items), nil
}

// findResultSection returns the first known section key holding a non-empty
// list, along with its items.
func findResultSection(data map[string]interface{}) (string, []interface{}) {
	for _, key := range resultSections {
		if items, ok := data[key].([]interface{}); ok && len(items) > 0 {
			return key, items
		}
	}
	return "", nil
}

// normalize maps raw result items to Products, trying each field's known
// aliases in order and substituting placeholders for anything missing.
func normalize(items []interface{}) []Product {
	if len(items) > maxResults {
		items = items[:maxResults]
	}

	products := make([]Product, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		products = append(products, Product{
			Title:       firstString(item, []string{"title", "name"}, "Unknown Product"),
			Price:       firstString(item, []string{"price", "price_str", "price_symbol"}, "N/A"),
			Image:       firstString(item, []string{"thumbnail", "image"}, ""),
			URL:         firstString(item, []string{"link", "product_link"}, ""),
			Description: firstString(item, []string{"snippet", "description"}, "No description available."),
		})
	}
	return products
}

// firstString returns the first non-empty string value among the keys, or the
// fallback. Numeric values (prices often arrive as numbers) are formatted.
func firstString(item map[string]interface{}, keys []string, fallback string) string {
	for _, key := range keys {
		switch v := item[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return formatNumber(v)
		}
	}
	return fallback
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
