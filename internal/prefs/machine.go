package prefs

import (
	"context"

	"discovery_engine/internal/blend"
	"discovery_engine/internal/logger"
	"discovery_engine/internal/model"
	"discovery_engine/internal/sampler"
)

// Machine 把一次偏好变换接到发现流程上：
// 有喜欢列表走加权混合，否则走随机采样；结果不足时用随机补满
type Machine struct {
	blender *blend.Engine
	sampler *sampler.Sampler
}

// NewMachine 创建偏好状态机
func NewMachine(blender *blend.Engine, smp *sampler.Sampler) *Machine {
	return &Machine{blender: blender, sampler: smp}
}

// Step 应用一次动作并重新执行发现，返回变换后的集合和候选列表
func (m *Machine) Step(ctx context.Context, set *PreferenceSet, action Action, gameID string, extraExcluded []string, limit int, seed int64) ([]*model.Candidate, error) {
	if err := set.Apply(action, gameID); err != nil {
		return nil, err
	}
	return m.Discover(ctx, set.Liked, set.Disliked, set.Excluded(extraExcluded), limit, seed)
}

// Discover 偏好驱动的发现入口
// positive 非空时执行加权混合并过滤排除集，否则直接随机采样
func (m *Machine) Discover(ctx context.Context, positive, negative []string, excluded map[string]struct{}, limit int, seed int64) ([]*model.Candidate, error) {
	if len(positive) == 0 {
		return m.sampler.Sample(ctx, limit, excluded, seed)
	}

	// 超量请求，给排除过滤留余量
	results, err := m.blender.Blend(ctx, positive, negative, "", limit+len(excluded), seed)
	if err != nil {
		return nil, err
	}

	kept := make([]*model.Candidate, 0, limit)
	for _, c := range results {
		if _, ok := excluded[c.ID]; ok {
			continue
		}
		kept = append(kept, c)
		if len(kept) >= limit {
			break
		}
	}

	// 推荐不足时补随机，且不与已选重复
	if len(kept) < limit {
		padExcluded := make(map[string]struct{}, len(excluded)+len(kept))
		for id := range excluded {
			padExcluded[id] = struct{}{}
		}
		for _, c := range kept {
			padExcluded[c.ID] = struct{}{}
		}
		pad, err := m.sampler.Sample(ctx, limit-len(kept), padExcluded, seed)
		if err != nil {
			logger.Warn("Discovery random padding failed: %v", err)
		} else {
			kept = append(kept, pad...)
		}
	}

	return kept, nil
}
