package embed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Model != "bge-small" {
			t.Errorf("expected model bge-small, got %s", req.Model)
		}
		if len(req.Input) != 1 || req.Input[0] != "roguelike deckbuilder" {
			t.Errorf("unexpected input: %v", req.Input)
		}
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, Model: "bge-small"})
	got, err := c.Embed(context.Background(), "roguelike deckbuilder")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 dims, got %d", len(got))
	}
}

func TestEmbedSparseUnavailable(t *testing.T) {
	// 未配置稀疏端点：返回哨兵错误，调用方据此降级
	c := NewClient(Config{Endpoint: "http://unused", Model: "bge-small"})
	_, err := c.EmbedSparse(context.Background(), "text")
	if !errors.Is(err, ErrSparseUnavailable) {
		t.Errorf("expected ErrSparseUnavailable, got %v", err)
	}
}

func TestEmbedSparse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"indices":[3,17],"values":[0.5,0.2]}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: "http://unused", SparseEndpoint: srv.URL, SparseModel: "bm42"})
	got, err := c.EmbedSparse(context.Background(), "text")
	if err != nil {
		t.Fatalf("EmbedSparse failed: %v", err)
	}
	if len(got.Indices) != 2 || got.Indices[0] != 3 {
		t.Errorf("unexpected sparse result: %v", got)
	}
}

func TestEmbedErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, Model: "bge-small"})
	if _, err := c.Embed(context.Background(), "text"); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestEmbedEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, Model: "bge-small"})
	if _, err := c.Embed(context.Background(), "text"); err == nil {
		t.Error("expected error for empty data")
	}
}
