// Package recommender provides the public Go SDK for the recommender API.
package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// Client is the public SDK client for the recommender API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new recommender API client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Product is a normalized search result.
type Product struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// RecommendationsResponse is the payload of GET /recommendations.
type RecommendationsResponse struct {
	Results []Product `json:"results"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Analysis is the catalog recommendation summary.
type Analysis struct {
	BestProduct  string   `json:"best_product"`
	Reasoning    []string `json:"reasoning"`
	Alternatives []string `json:"alternatives"`
}

// AnalysisResult wraps an Analysis with its outcome status.
type AnalysisResult struct {
	Status  string    `json:"status"`
	Result  *Analysis `json:"result,omitempty"`
	Message string    `json:"message,omitempty"`
}

// UploadResult is the payload of POST /upload_catalog.
type UploadResult struct {
	FileID   int64          `json:"file_id"`
	Filename string         `json:"filename"`
	Analysis AnalysisResult `json:"analysis"`
}

// ExtractResult is the payload of POST /extract_triples.
type ExtractResult struct {
	Status     string `json:"status"`
	FileID     int64  `json:"file_id"`
	SourceFile string `json:"source_file"`
	Extracted  int    `json:"triples_extracted"`
	Message    string `json:"message,omitempty"`
}

// IndexResult is the payload of POST /index_catalog.
type IndexResult struct {
	Status  string `json:"status"`
	FileID  int64  `json:"file_id"`
	Indexed int    `json:"indexed"`
	Message string `json:"message,omitempty"`
}

// SimilarResponse is the payload of GET /similar.
type SimilarResponse struct {
	Results []map[string]interface{} `json:"results"`
	Error   string                   `json:"error,omitempty"`
}

// Recommendations fetches product search results for a query.
func (c *Client) Recommendations(ctx context.Context, query string) (*RecommendationsResponse, error) {
	var resp RecommendationsResponse
	if err := c.get(ctx, "/recommendations?query="+url.QueryEscape(query), &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("recommendations: %s", resp.Error)
	}
	return &resp, nil
}

// UploadCatalog uploads a catalog file and returns its analysis.
func (c *Client) UploadCatalog(ctx context.Context, filename string, content io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create multipart: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("write multipart: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload_catalog", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExtractTriples runs knowledge-graph extraction over an uploaded catalog.
func (c *Client) ExtractTriples(ctx context.Context, fileID int64, useLLM bool) (*ExtractResult, error) {
	var result ExtractResult
	err := c.post(ctx, "/extract_triples", map[string]interface{}{
		"file_id": fileID,
		"use_llm": useLLM,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Status == "error" {
		return nil, fmt.Errorf("extract triples: %s", result.Message)
	}
	return &result, nil
}

// IndexCatalog pushes an uploaded catalog's rows into the similarity index.
func (c *Client) IndexCatalog(ctx context.Context, fileID int64) (*IndexResult, error) {
	var result IndexResult
	if err := c.post(ctx, "/index_catalog", map[string]interface{}{"file_id": fileID}, &result); err != nil {
		return nil, err
	}
	if result.Status == "error" {
		return nil, fmt.Errorf("index catalog: %s", result.Message)
	}
	return &result, nil
}

// Similar performs a nearest-neighbor lookup over indexed catalog rows.
func (c *Client) Similar(ctx context.Context, query string, topK int) ([]map[string]interface{}, error) {
	path := fmt.Sprintf("/similar?query=%s&top_k=%d", url.QueryEscape(query), topK)
	var resp SimilarResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("similar: %s", resp.Error)
	}
	return resp.Results, nil
}

// Explain asks for a natural-language justification of a recommendation.
func (c *Client) Explain(ctx context.Context, query string, product Product) (string, error) {
	var resp struct {
		Explanation string `json:"explanation"`
		Status      string `json:"status"`
		Message     string `json:"message"`
	}
	err := c.post(ctx, "/explain", map[string]interface{}{
		"query": query,
		"product": map[string]string{
			"title":       product.Title,
			"price":       product.Price,
			"description": product.Description,
		},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Status == "error" {
		return "", fmt.Errorf("explain: %s", resp.Message)
	}
	return resp.Explanation, nil
}

// Health checks service liveness.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", &resp); err != nil {
		return err
	}
	if resp.Status != "healthy" {
		return fmt.Errorf("service reported status %q", resp.Status)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", req.URL.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
