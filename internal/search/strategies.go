package search

import (
	"context"
	"fmt"

	"discovery_engine/internal/model"

	"discovery_engine/pkg/embed"
	"discovery_engine/pkg/vectordb"
)

// hybridStrategy 稠密+稀疏双路查询，由索引原生融合排序
type hybridStrategy struct {
	index    vectordb.Index
	embedder embed.Provider
}

func (s *hybridStrategy) Name() string { return "hybrid" }

func (s *hybridStrategy) Run(ctx context.Context, q *Query, limit int) ([]*model.Candidate, error) {
	dense, err := q.Dense(ctx)
	if err != nil {
		return nil, fmt.Errorf("dense embedding failed: %w", err)
	}
	sp, err := s.embedder.EmbedSparse(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("sparse embedding failed: %w", err)
	}
	points, err := s.index.Query(ctx, dense, &vectordb.SparseVector{
		Indices: sp.Indices,
		Values:  sp.Values,
	}, limit)
	if err != nil {
		return nil, err
	}
	return pointsToCandidates(points), nil
}

// denseStrategy 仅用稠密向量在命名向量字段上查询
type denseStrategy struct {
	index vectordb.Index
}

func (s *denseStrategy) Name() string { return "dense" }

func (s *denseStrategy) Run(ctx context.Context, q *Query, limit int) ([]*model.Candidate, error) {
	dense, err := q.Dense(ctx)
	if err != nil {
		return nil, fmt.Errorf("dense embedding failed: %w", err)
	}
	points, err := s.index.Search(ctx, dense, limit)
	if err != nil {
		return nil, err
	}
	return pointsToCandidates(points), nil
}

// rawVectorStrategy 裸向量查询，兼容没有命名向量的旧集合
type rawVectorStrategy struct {
	index vectordb.Index
}

func (s *rawVectorStrategy) Name() string { return "raw_vector" }

func (s *rawVectorStrategy) Run(ctx context.Context, q *Query, limit int) ([]*model.Candidate, error) {
	dense, err := q.Dense(ctx)
	if err != nil {
		return nil, fmt.Errorf("dense embedding failed: %w", err)
	}
	points, err := s.index.SearchRaw(ctx, dense, limit)
	if err != nil {
		return nil, err
	}
	return pointsToCandidates(points), nil
}
