package vectordb

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

// Point is a single entry of the collection, with the score assigned by the
// index for search responses (0 for retrieve/scroll).
type Point struct {
	ID      string
	Score   float64
	Payload map[string]interface{}
	Vector  []float64
}

// SparseVector is a sparse (lexical) query vector in index/value form.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float64 `json:"values"`
}

// Index is the read surface of the external vector index consumed by the
// engine. Implementations must be safe for concurrent use.
type Index interface {
	// Retrieve fetches points by id. Unknown ids are silently absent from
	// the result, never an error.
	Retrieve(ctx context.Context, ids []string, withVectors bool) ([]Point, error)
	// Search runs a similarity search with a dense vector against the
	// configured named vector field.
	Search(ctx context.Context, vector []float64, limit int) ([]Point, error)
	// SearchRaw runs the same search without named-field indirection, the
	// compatibility path for collections without named vectors.
	SearchRaw(ctx context.Context, vector []float64, limit int) ([]Point, error)
	// Query runs a hybrid dense+sparse search fused by the index's native
	// rank fusion.
	Query(ctx context.Context, dense []float64, sparse *SparseVector, limit int) ([]Point, error)
	// Scroll reads points in storage order starting at offset (nil for the
	// beginning). An unordered bulk read, not a ranking.
	Scroll(ctx context.Context, limit int, offset *uint64) ([]Point, error)
	// Count returns the number of points in the collection.
	Count(ctx context.Context) (int, error)
}

// Config carries everything the client needs. Collection and vector names are
// fixed at construction; nothing is mutated on a shared client afterwards.
type Config struct {
	URL              string
	APIKey           string
	Collection       string
	DenseVectorName  string
	SparseVectorName string
	Timeout          time.Duration
}

// Client is a Qdrant REST client.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient builds a client from an explicit config object.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// wireID converts a canonical string id to the index's native id type:
// digit strings become numeric point ids, everything else stays a string.
func wireID(id string) interface{} {
	if id == "" {
		return id
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return id
		}
	}
	return json.Number(id)
}

func wireIDs(ids []string) []interface{} {
	out := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, wireID(id))
	}
	return out
}

type rawPoint struct {
	ID      json.Number            `json:"id"`
	Score   float64                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
	Vector  json.RawMessage        `json:"vector"`
}

func (p rawPoint) toPoint() Point {
	out := Point{
		ID:      p.ID.String(),
		Score:   p.Score,
		Payload: p.Payload,
	}
	if len(p.Vector) > 0 {
		// Named collections return {"name": [...]}, unnamed return [...].
		var named map[string][]float64
		if err := json.Unmarshal(p.Vector, &named); err == nil {
			for _, v := range named {
				out.Vector = v
				break
			}
		} else {
			var plain []float64
			if json.Unmarshal(p.Vector, &plain) == nil {
				out.Vector = plain
			}
		}
	}
	return out
}

// post sends one JSON request and decodes the "result" envelope into result.
func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.URL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("index request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("index api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	envelope := struct {
		Result json.RawMessage `json:"result"`
	}{}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to parse index response: %w", err)
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to parse index result: %w", err)
		}
	}
	return nil
}

func (c *Client) collectionPath(op string) string {
	return fmt.Sprintf("/collections/%s/points/%s", c.cfg.Collection, op)
}

// Retrieve fetches points by id, dropping unknown ids.
func (c *Client) Retrieve(ctx context.Context, ids []string, withVectors bool) ([]Point, error) {
	body := map[string]interface{}{
		"ids":          wireIDs(ids),
		"with_payload": true,
		"with_vector":  withVectors,
	}
	var raw []rawPoint
	if err := c.post(ctx, fmt.Sprintf("/collections/%s/points", c.cfg.Collection), body, &raw); err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(raw))
	for _, p := range raw {
		points = append(points, p.toPoint())
	}
	return points, nil
}

// Search runs a dense similarity search against the named vector field.
func (c *Client) Search(ctx context.Context, vector []float64, limit int) ([]Point, error) {
	body := map[string]interface{}{
		"vector": map[string]interface{}{
			"name":   c.cfg.DenseVectorName,
			"vector": vector,
		},
		"limit":        limit,
		"with_payload": true,
	}
	return c.searchCall(ctx, body)
}

// SearchRaw runs the search with a bare vector, for collections that were
// created without named vectors.
func (c *Client) SearchRaw(ctx context.Context, vector []float64, limit int) ([]Point, error) {
	body := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	return c.searchCall(ctx, body)
}

func (c *Client) searchCall(ctx context.Context, body map[string]interface{}) ([]Point, error) {
	var raw []rawPoint
	if err := c.post(ctx, c.collectionPath("search"), body, &raw); err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(raw))
	for _, p := range raw {
		points = append(points, p.toPoint())
	}
	return points, nil
}

// Query runs a hybrid dense+sparse search, fused server-side with reciprocal
// rank fusion.
func (c *Client) Query(ctx context.Context, dense []float64, sparse *SparseVector, limit int) ([]Point, error) {
	if sparse == nil || len(sparse.Indices) == 0 {
		return nil, errors.New("hybrid query requires a sparse vector")
	}
	body := map[string]interface{}{
		"prefetch": []interface{}{
			map[string]interface{}{
				"query": dense,
				"using": c.cfg.DenseVectorName,
				"limit": limit * 2,
			},
			map[string]interface{}{
				"query": sparse,
				"using": c.cfg.SparseVectorName,
				"limit": limit * 2,
			},
		},
		"query":        map[string]interface{}{"fusion": "rrf"},
		"limit":        limit,
		"with_payload": true,
	}
	result := struct {
		Points []rawPoint `json:"points"`
	}{}
	if err := c.post(ctx, c.collectionPath("query"), body, &result); err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(result.Points))
	for _, p := range result.Points {
		points = append(points, p.toPoint())
	}
	return points, nil
}

// Scroll reads up to limit points in storage order.
func (c *Client) Scroll(ctx context.Context, limit int, offset *uint64) ([]Point, error) {
	body := map[string]interface{}{
		"limit":        limit,
		"with_payload": true,
	}
	if offset != nil {
		body["offset"] = *offset
	}
	result := struct {
		Points []rawPoint `json:"points"`
	}{}
	if err := c.post(ctx, c.collectionPath("scroll"), body, &result); err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(result.Points))
	for _, p := range result.Points {
		points = append(points, p.toPoint())
	}
	return points, nil
}

// Count returns the collection size.
func (c *Client) Count(ctx context.Context) (int, error) {
	result := struct {
		Count int `json:"count"`
	}{}
	if err := c.post(ctx, c.collectionPath("count"), map[string]interface{}{"exact": false}, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}
