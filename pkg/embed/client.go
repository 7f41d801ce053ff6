package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider defines the text embedding service interface.
type Provider interface {
	// Embed returns the dense embedding for a text.
	Embed(ctx context.Context, text string) ([]float64, error)
	// EmbedSparse returns the sparse (lexical) embedding for a text.
	// Implementations without a sparse model return ErrSparseUnavailable.
	EmbedSparse(ctx context.Context, text string) (Sparse, error)
}

// ErrSparseUnavailable is returned when no sparse model endpoint is
// configured; callers degrade to dense-only search.
var ErrSparseUnavailable = errors.New("sparse embedding model not configured")

// Sparse is a sparse embedding in index/value form.
type Sparse struct {
	Indices []uint32  `json:"indices"`
	Values  []float64 `json:"values"`
}

// Config carries the embedding service credentials and model names. Model
// names are fixed here at construction instead of being set on a shared
// client at call time.
type Config struct {
	Endpoint       string
	APIKey         string
	Model          string
	SparseEndpoint string
	SparseModel    string
	Timeout        time.Duration
}

// Client talks to an OpenAI-compatible embeddings API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new embeddings client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed generates the dense embedding for one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := c.call(ctx, c.cfg.Endpoint, embedRequest{Model: c.cfg.Model, Input: []string{text}})
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

type sparseResponse struct {
	Data []Sparse `json:"data"`
}

// EmbedSparse generates the sparse embedding for one text.
func (c *Client) EmbedSparse(ctx context.Context, text string) (Sparse, error) {
	if c.cfg.SparseEndpoint == "" {
		return Sparse{}, ErrSparseUnavailable
	}

	body, err := c.call(ctx, c.cfg.SparseEndpoint, embedRequest{Model: c.cfg.SparseModel, Input: []string{text}})
	if err != nil {
		return Sparse{}, err
	}

	var resp sparseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Sparse{}, fmt.Errorf("failed to parse sparse embedding response: %w", err)
	}
	if len(resp.Data) == 0 {
		return Sparse{}, fmt.Errorf("no sparse embedding returned")
	}
	return resp.Data[0], nil
}

func (c *Client) call(ctx context.Context, endpoint string, reqBody embedRequest) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding api error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
