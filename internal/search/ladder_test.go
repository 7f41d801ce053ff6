package search

import (
	"context"
	"errors"
	"testing"

	"discovery_engine/internal/sampler"

	"discovery_engine/pkg/embed"
	"discovery_engine/pkg/vectordb"
)

type fakeIndex struct {
	queryResult  []vectordb.Point
	queryErr     error
	searchResult []vectordb.Point
	searchErr    error
	rawResult    []vectordb.Point
	rawErr       error
	corpus       []vectordb.Point
}

func (f *fakeIndex) Retrieve(context.Context, []string, bool) ([]vectordb.Point, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeIndex) Search(context.Context, []float64, int) ([]vectordb.Point, error) {
	return f.searchResult, f.searchErr
}
func (f *fakeIndex) SearchRaw(context.Context, []float64, int) ([]vectordb.Point, error) {
	return f.rawResult, f.rawErr
}
func (f *fakeIndex) Query(context.Context, []float64, *vectordb.SparseVector, int) ([]vectordb.Point, error) {
	return f.queryResult, f.queryErr
}
func (f *fakeIndex) Scroll(_ context.Context, limit int, offset *uint64) ([]vectordb.Point, error) {
	start := 0
	if offset != nil {
		start = int(*offset)
	}
	if start >= len(f.corpus) {
		return nil, nil
	}
	end := start + limit
	if end > len(f.corpus) {
		end = len(f.corpus)
	}
	return f.corpus[start:end], nil
}
func (f *fakeIndex) Count(context.Context) (int, error) {
	return len(f.corpus), nil
}

type fakeEmbedder struct {
	denseErr  error
	sparseErr error
	calls     int
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float64, error) {
	f.calls++
	if f.denseErr != nil {
		return nil, f.denseErr
	}
	return []float64{0.1, 0.2}, nil
}
func (f *fakeEmbedder) EmbedSparse(context.Context, string) (embed.Sparse, error) {
	if f.sparseErr != nil {
		return embed.Sparse{}, f.sparseErr
	}
	return embed.Sparse{Indices: []uint32{1}, Values: []float64{0.5}}, nil
}

func newLadder(idx *fakeIndex, emb *fakeEmbedder) *Ladder {
	return NewLadder(idx, emb, sampler.NewSampler(idx))
}

func TestSearchHybridFirst(t *testing.T) {
	idx := &fakeIndex{
		queryResult:  []vectordb.Point{{ID: "h1", Score: 0.9}},
		searchResult: []vectordb.Point{{ID: "d1", Score: 0.8}},
	}
	l := newLadder(idx, &fakeEmbedder{})

	got, err := l.SearchGames(context.Background(), "roguelike", 5, 1)
	if err != nil {
		t.Fatalf("SearchGames failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "h1" {
		t.Errorf("expected hybrid result h1, got %v", got)
	}
}

func TestSearchFallsToDense(t *testing.T) {
	// 稀疏嵌入不可用：跳过 hybrid，dense 接手
	idx := &fakeIndex{
		searchResult: []vectordb.Point{{ID: "d1", Score: 0.8}},
	}
	emb := &fakeEmbedder{sparseErr: embed.ErrSparseUnavailable}
	l := newLadder(idx, emb)

	got, err := l.SearchGames(context.Background(), "roguelike", 5, 1)
	if err != nil {
		t.Fatalf("SearchGames failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "d1" {
		t.Errorf("expected dense result d1, got %v", got)
	}
	// 稠密向量在两级之间只应计算一次
	if emb.calls != 1 {
		t.Errorf("expected 1 dense embedding call, got %d", emb.calls)
	}
}

func TestSearchFallsToRawVector(t *testing.T) {
	idx := &fakeIndex{
		queryErr:  errors.New("hybrid unsupported"),
		searchErr: errors.New("no named vectors"),
		rawResult: []vectordb.Point{{ID: "r1", Score: 0.7}},
	}
	l := newLadder(idx, &fakeEmbedder{})

	got, err := l.SearchGames(context.Background(), "roguelike", 5, 1)
	if err != nil {
		t.Fatalf("SearchGames failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("expected raw vector result r1, got %v", got)
	}
}

func TestSearchAllStrategiesFailIsRandom(t *testing.T) {
	// 嵌入服务挂了：三级全失败，落到随机采样
	idx := &fakeIndex{
		corpus: []vectordb.Point{{ID: "g1"}, {ID: "g2"}},
	}
	emb := &fakeEmbedder{denseErr: errors.New("embedding down")}
	l := newLadder(idx, emb)

	got, err := l.SearchGames(context.Background(), "roguelike", 5, 1)
	if err != nil {
		t.Fatalf("SearchGames failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 random results, got %d", len(got))
	}
	// 嵌入失败被记忆，不会按级重试
	if emb.calls != 1 {
		t.Errorf("expected 1 dense embedding attempt, got %d", emb.calls)
	}
}

func TestSearchBlankQueryIsRandom(t *testing.T) {
	idx := &fakeIndex{
		corpus: []vectordb.Point{{ID: "g1"}, {ID: "g2"}, {ID: "g3"}},
	}
	emb := &fakeEmbedder{}
	l := newLadder(idx, emb)

	got, err := l.SearchGames(context.Background(), "   ", 2, 1)
	if err != nil {
		t.Fatalf("SearchGames failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 random results, got %d", len(got))
	}
	if emb.calls != 0 {
		t.Errorf("blank query must not call the embedder, got %d calls", emb.calls)
	}
}

func TestSearchRandomFailureIsEmpty(t *testing.T) {
	// 空语料：随机兜底也拿不出条目，返回空列表而不是错误
	idx := &fakeIndex{}
	emb := &fakeEmbedder{denseErr: errors.New("embedding down")}
	l := newLadder(idx, emb)

	got, err := l.SearchGames(context.Background(), "roguelike", 5, 1)
	if err != nil {
		t.Fatalf("SearchGames failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}
