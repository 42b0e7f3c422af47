package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// bovw Go SDK
//
// This module provides a thin wrapper around the bovw retrieval service so
// that histograms can be encoded and queried from Go code.
//
// All methods return a *ServiceError when the server answers with a
// non-successful status code.
//
// Example usage:
//  client := NewClient("http://localhost:8080")
//  ok, err := client.HealthCheck()
//  ...

// Client is an HTTP client for the bovw retrieval service.
type Client struct {
	BaseURL string
	Client  *http.Client
}

// ServiceError represents an error returned by the server.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("bovw: %d %s", e.StatusCode, e.Message)
}

// VocabularyStats mirrors GET /v1/vocabulary.
type VocabularyStats struct {
	Words      int    `json:"words"`
	Dimension  int    `json:"dimension"`
	Indexed    bool   `json:"indexed"`
	IndexType  string `json:"index_type,omitempty"`
	Images     int    `json:"images"`
	Reweighted bool   `json:"reweighted"`
}

// Histogram is an encoded image.
type Histogram struct {
	Path string    `json:"path"`
	Bins []float32 `json:"bins"`
}

// Similarity is one ranked dataset image.
type Similarity struct {
	Path     string  `json:"path"`
	Distance float64 `json:"distance"`
}

// NewClient creates a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ----------------- Low-level request helper -----------------
// request sends an HTTP request and decodes the JSON response into out.
func (c *Client) request(method, path string, body, out any) error {
	url := c.BaseURL + path
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return &ServiceError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// ----------------- API Methods -----------------

// HealthCheck checks if the server is healthy. Returns true if healthy.
func (c *Client) HealthCheck() (bool, error) {
	var result map[string]any
	if err := c.request(http.MethodGet, "/", nil, &result); err != nil {
		return false, err
	}
	return result["status"] == "ok", nil
}

// Vocabulary returns the size and state of the loaded vocabulary.
func (c *Client) Vocabulary() (*VocabularyStats, error) {
	var stats VocabularyStats
	if err := c.request(http.MethodGet, "/v1/vocabulary", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListHistograms returns the image identifiers of the dataset.
func (c *Client) ListHistograms() ([]string, error) {
	var result struct {
		Histograms []string `json:"histograms"`
	}
	if err := c.request(http.MethodGet, "/v1/histograms", nil, &result); err != nil {
		return nil, err
	}
	return result.Histograms, nil
}

// Encode returns the histogram of one image given its descriptors.
func (c *Client) Encode(path string, features [][]float32) (*Histogram, error) {
	payload := map[string]any{
		"path":     path,
		"features": features,
	}
	var h Histogram
	if err := c.request(http.MethodPost, "/v1/histograms/encode", payload, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Query ranks the dataset against one image. topK of 0 uses the server
// default; a negative topK returns the farthest images first.
func (c *Client) Query(path string, features [][]float32, topK int) ([]Similarity, error) {
	payload := map[string]any{
		"path":     path,
		"features": features,
		"top_k":    topK,
	}
	var result struct {
		Results []Similarity `json:"results"`
	}
	if err := c.request(http.MethodPost, "/v1/histograms/query", payload, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}
