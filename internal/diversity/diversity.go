package diversity

import (
	"context"

	"discovery_engine/internal/logger"
	"discovery_engine/internal/model"
	"discovery_engine/internal/resolver"
	"discovery_engine/internal/sampler"

	"discovery_engine/pkg/vectordb"
)

// PoolMultiplier 相似邻居池取 limit 的倍数
const PoolMultiplier = 3

// Reranker 在"与种子相似"和"结果之间彼此不同"之间做贪心权衡
//
// 多样性分数用 1 - score(s)*score(c) 这个代理量（该路径拿不到原始向量距离），
// 不是真正的向量空间距离；两端 factor=0/1 的退化行为是对外承诺，不可更改
type Reranker struct {
	index    vectordb.Index
	resolver *resolver.Resolver
	sampler  *sampler.Sampler
}

// NewReranker 创建多样性重排器
func NewReranker(index vectordb.Index, res *resolver.Resolver, smp *sampler.Sampler) *Reranker {
	return &Reranker{index: index, resolver: res, sampler: smp}
}

// Recommend 基于种子条目产出一组平衡相似与多样的推荐
// factor 超出 [0,1] 做截断而不是报错；0 为纯相似序，1 退化为随机
func (r *Reranker) Recommend(ctx context.Context, seedID string, factor float64, limit int, seed int64) ([]*model.Candidate, error) {
	if factor < 0 {
		factor = 0
	} else if factor > 1 {
		factor = 1
	}
	seedID = model.NormalizeID(seedID)

	// 空池先于两端退化行为：种子解析不到或没有邻居就什么都不推荐
	pool := r.similarityPool(ctx, seedID, limit*PoolMultiplier)
	if len(pool) == 0 {
		return []*model.Candidate{}, nil
	}

	// factor=1 不再是多样性算法，直接换成不相关的随机内容
	if factor == 1 {
		return r.sampler.Sample(ctx, limit, map[string]struct{}{seedID: {}}, seed)
	}

	if factor == 0 {
		return model.Truncate(pool, limit), nil
	}

	// 贪心选择：先放入相似度最高者，之后每轮取综合分最高的候选
	selected := []*model.Candidate{pool[0]}
	remaining := pool[1:]

	for len(selected) < limit && len(remaining) > 0 {
		bestIdx := 0
		bestScore := combinedScore(remaining[0], selected, factor)
		for i := 1; i < len(remaining); i++ {
			// 严格大于：同分保留池序靠前者
			if s := combinedScore(remaining[i], selected, factor); s > bestScore {
				bestScore = s
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected, nil
}

// combinedScore 相似与多样按 factor 线性混合
// O(limit * poolSize)，两者都是小的有界值
func combinedScore(c *model.Candidate, selected []*model.Candidate, factor float64) float64 {
	diversity := 0.0
	for _, s := range selected {
		diversity += 1 - s.Score*c.Score
	}
	diversity /= float64(len(selected))
	return (1-factor)*c.Score + factor*diversity
}

// Similar 上下文发现：纯相似序 + 排除集过滤，不足时随机补满
func (r *Reranker) Similar(ctx context.Context, seedID string, limit int, excluded map[string]struct{}, seed int64) ([]*model.Candidate, error) {
	seedID = model.NormalizeID(seedID)
	pool := r.similarityPool(ctx, seedID, limit*PoolMultiplier+len(excluded))

	kept := make([]*model.Candidate, 0, limit)
	for _, c := range pool {
		if _, ok := excluded[c.ID]; ok {
			continue
		}
		kept = append(kept, c)
		if len(kept) >= limit {
			break
		}
	}

	if len(kept) < limit {
		padExcluded := make(map[string]struct{}, len(excluded)+len(kept)+1)
		for id := range excluded {
			padExcluded[id] = struct{}{}
		}
		for _, c := range kept {
			padExcluded[c.ID] = struct{}{}
		}
		padExcluded[seedID] = struct{}{}
		pad, err := r.sampler.Sample(ctx, limit-len(kept), padExcluded, seed)
		if err != nil {
			logger.Warn("Context discovery random padding failed: %v", err)
		} else {
			kept = append(kept, pad...)
		}
	}
	return kept, nil
}

// similarityPool 取种子的相似邻居池，种子自身被过滤
// 任何失败都降级为空池，由调用方决定兜底
func (r *Reranker) similarityPool(ctx context.Context, seedID string, poolSize int) []*model.Candidate {
	game, err := r.resolver.ResolveOne(ctx, seedID, true)
	if err != nil {
		logger.Warn("Diversity seed %s unresolved: %v", seedID, err)
		return nil
	}
	if len(game.Vector) == 0 {
		logger.Warn("Diversity seed %s has no stored vector", seedID)
		return nil
	}

	points, err := r.index.Search(ctx, game.Vector, poolSize)
	if err != nil {
		logger.Warn("Diversity pool search failed for seed %s: %v", seedID, err)
		return nil
	}

	pool := make([]*model.Candidate, 0, len(points))
	for i := range points {
		p := points[i]
		if p.ID == seedID {
			continue
		}
		pool = append(pool, &model.Candidate{
			ID:      p.ID,
			Score:   p.Score,
			Payload: p.Payload,
		})
	}
	return pool
}
