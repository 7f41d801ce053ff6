package blend

import (
	"context"
	"math"
	"strings"
	"sync"

	"discovery_engine/internal/logger"
	"discovery_engine/internal/model"
	"discovery_engine/internal/resolver"
	"discovery_engine/internal/sampler"

	"discovery_engine/pkg/embed"
	"discovery_engine/pkg/vectordb"
)

// 各信号源的固定权重，只有实际出现的源计入 totalWeight
const (
	PositiveWeight = 1.0
	NegativeWeight = -1.0
	QueryWeight    = 0.5
)

// PoolMultiplier 每个信号源取 limit 的倍数作为邻居池
const PoolMultiplier = 3

// Engine 把多个信号源（喜欢、不喜欢、文本查询）的邻居检索结果
// 加权合并为一张归一化的候选排行榜
type Engine struct {
	index    vectordb.Index
	resolver *resolver.Resolver
	embedder embed.Provider
	sampler  *sampler.Sampler
}

// NewEngine 创建加权混合引擎
func NewEngine(index vectordb.Index, res *resolver.Resolver, embedder embed.Provider, smp *sampler.Sampler) *Engine {
	return &Engine{
		index:    index,
		resolver: res,
		embedder: embedder,
		sampler:  smp,
	}
}

// accumulator 并发安全的分数累加器，各路信号并行写入
type accumulator struct {
	mu      sync.Mutex
	entries map[string]*model.Candidate
}

func (a *accumulator) add(points []vectordb.Point, weight float64, excluded map[string]struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range points {
		p := points[i]
		if _, ok := excluded[p.ID]; ok {
			continue
		}
		entry, ok := a.entries[p.ID]
		if !ok {
			// 首次出现的邻居带入 payload
			entry = &model.Candidate{ID: p.ID, Payload: p.Payload}
			a.entries[p.ID] = entry
		}
		entry.Score += p.Score * weight
	}
}

// Blend 执行加权混合推荐
// 任一信号源失败只丢弃该源的贡献，不中断整体；没有任何信号源时退化为随机采样
func (e *Engine) Blend(ctx context.Context, positiveIDs, negativeIDs []string, query string, limit int, seed int64) ([]*model.Candidate, error) {
	positiveIDs = model.NormalizeIDs(positiveIDs)
	negativeIDs = model.NormalizeIDs(negativeIDs)
	query = strings.TrimSpace(query)

	// 输入列表里的 ID 永远不出现在结果里
	excluded := make(map[string]struct{}, len(positiveIDs)+len(negativeIDs))
	for _, id := range positiveIDs {
		excluded[id] = struct{}{}
	}
	for _, id := range negativeIDs {
		excluded[id] = struct{}{}
	}

	totalWeight := 0.0
	if len(positiveIDs) > 0 {
		totalWeight += math.Abs(PositiveWeight)
	}
	if len(negativeIDs) > 0 {
		totalWeight += math.Abs(NegativeWeight)
	}
	if query != "" {
		totalWeight += math.Abs(QueryWeight)
	}

	if totalWeight == 0 {
		logger.Info("Blend has no signal sources, falling back to random sampling")
		return e.sampler.Sample(ctx, limit, excluded, seed)
	}

	acc := &accumulator{entries: make(map[string]*model.Candidate)}
	poolSize := limit * PoolMultiplier

	// 各 ID、各源的邻居检索相互独立，并行执行后汇合
	var wg sync.WaitGroup
	for _, id := range positiveIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			e.accumulateNeighbors(ctx, acc, id, PositiveWeight, poolSize, excluded)
		}(id)
	}
	for _, id := range negativeIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			e.accumulateNeighbors(ctx, acc, id, NegativeWeight, poolSize, excluded)
		}(id)
	}
	if query != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.accumulateQuery(ctx, acc, query, poolSize, excluded)
		}()
	}
	wg.Wait()

	if len(acc.entries) == 0 {
		// 所有源都失败或没留下任何候选：读路径降级，不抛错
		logger.Warn("Blend produced no candidates (%d positive, %d negative, query=%q), falling back to random",
			len(positiveIDs), len(negativeIDs), query)
		return e.sampler.Sample(ctx, limit, excluded, seed)
	}

	results := make([]*model.Candidate, 0, len(acc.entries))
	for _, c := range acc.entries {
		c.Score /= totalWeight
		results = append(results, c)
	}

	model.SortCandidates(results)
	return model.Truncate(results, limit), nil
}

// accumulateNeighbors 取单个信号 ID 的邻居并按权重写入累加器
// 失败只记日志，该 ID 的贡献记零
func (e *Engine) accumulateNeighbors(ctx context.Context, acc *accumulator, id string, weight float64, poolSize int, excluded map[string]struct{}) {
	game, err := e.resolver.ResolveOne(ctx, id, true)
	if err != nil {
		logger.Warn("Blend skipped signal id %s: %v", id, err)
		return
	}
	if len(game.Vector) == 0 {
		logger.Warn("Blend skipped signal id %s: no stored vector", id)
		return
	}

	points, err := e.index.Search(ctx, game.Vector, poolSize)
	if err != nil {
		logger.Warn("Blend neighbor search failed for id %s: %v", id, err)
		return
	}
	acc.add(points, weight, excluded)
}

// accumulateQuery 把文本查询作为一路信号写入累加器
func (e *Engine) accumulateQuery(ctx context.Context, acc *accumulator, query string, poolSize int, excluded map[string]struct{}) {
	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("Blend query embedding failed for %q: %v", query, err)
		return
	}
	points, err := e.index.Search(ctx, vector, poolSize)
	if err != nil {
		logger.Warn("Blend query search failed for %q: %v", query, err)
		return
	}
	acc.add(points, QueryWeight, excluded)
}
