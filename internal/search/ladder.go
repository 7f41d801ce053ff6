package search

import (
	"context"
	"strings"

	"discovery_engine/internal/logger"
	"discovery_engine/internal/model"
	"discovery_engine/internal/sampler"

	"discovery_engine/pkg/embed"
	"discovery_engine/pkg/vectordb"
)

// Strategy 是梯子上的一级：一种对索引的查询方式
// 统一的入参出参，失败就换下一级，不在内部重试
type Strategy interface {
	Name() string
	Run(ctx context.Context, q *Query, limit int) ([]*model.Candidate, error)
}

// Query 承载一次文本查询及按需生成、只算一次的向量
type Query struct {
	Text     string
	embedder embed.Provider

	dense     []float64
	denseErr  error
	denseDone bool
}

// Dense 返回查询文本的稠密向量，首次调用才真正请求嵌入服务
func (q *Query) Dense(ctx context.Context) ([]float64, error) {
	if !q.denseDone {
		q.dense, q.denseErr = q.embedder.Embed(ctx, q.Text)
		q.denseDone = true
	}
	return q.dense, q.denseErr
}

// Ladder 按固定顺序尝试各检索策略：hybrid -> dense -> raw -> random
// 每级最多尝试一次，失败记日志后降级
type Ladder struct {
	strategies []Strategy
	sampler    *sampler.Sampler
	embedder   embed.Provider
}

// NewLadder 创建检索降级梯子
func NewLadder(index vectordb.Index, embedder embed.Provider, smp *sampler.Sampler) *Ladder {
	return &Ladder{
		strategies: []Strategy{
			&hybridStrategy{index: index, embedder: embedder},
			&denseStrategy{index: index},
			&rawVectorStrategy{index: index},
		},
		sampler:  smp,
		embedder: embedder,
	}
}

// SearchGames 执行文本检索
// 空白查询直接走随机；全部策略失败也走随机；随机再失败返回空列表，不向调用方抛错
func (l *Ladder) SearchGames(ctx context.Context, query string, limit int, seed int64) ([]*model.Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return l.random(ctx, limit, seed), nil
	}

	q := &Query{Text: query, embedder: l.embedder}
	for _, s := range l.strategies {
		results, err := s.Run(ctx, q, limit)
		if err != nil {
			logger.Warn("Search strategy %s failed: %v", s.Name(), err)
			continue
		}
		logger.Info("Search strategy %s succeeded with %d results for %q", s.Name(), len(results), query)
		return results, nil
	}

	logger.Warn("All vector search strategies failed for %q, falling back to random", query)
	return l.random(ctx, limit, seed), nil
}

func (l *Ladder) random(ctx context.Context, limit int, seed int64) []*model.Candidate {
	results, err := l.sampler.Sample(ctx, limit, nil, seed)
	if err != nil {
		logger.Error("Random fallback failed: %v", err)
		return []*model.Candidate{}
	}
	return results
}

func pointsToCandidates(points []vectordb.Point) []*model.Candidate {
	out := make([]*model.Candidate, 0, len(points))
	for i := range points {
		p := points[i]
		out = append(out, &model.Candidate{
			ID:      p.ID,
			Score:   p.Score,
			Payload: p.Payload,
		})
	}
	return out
}
