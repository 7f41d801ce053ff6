package resolver

import (
	"context"
	"errors"
	"fmt"

	"discovery_engine/internal/logger"
	"discovery_engine/internal/model"

	"discovery_engine/pkg/vectordb"
)

// ErrNotFound 表示单个 ID 在索引中不存在
var ErrNotFound = errors.New("game not found")

// Resolver 负责把调用方传入的 ID 解析为索引中的条目
// 不存在的 ID 静默丢弃，只记数用于日志，不视为错误
type Resolver struct {
	index vectordb.Index
}

// NewResolver 创建一个新的 Resolver
func NewResolver(index vectordb.Index) *Resolver {
	return &Resolver{index: index}
}

// Resolve 批量解析 ID，返回命中的条目和未命中数量
// 单次外部调用完成（索引支持批量取点），不做重试
func (r *Resolver) Resolve(ctx context.Context, ids []string, withVectors bool) ([]*model.Game, int, error) {
	ids = model.NormalizeIDs(ids)
	if len(ids) == 0 {
		return nil, 0, nil
	}

	points, err := r.index.Retrieve(ctx, ids, withVectors)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve ids: %w", err)
	}

	games := make([]*model.Game, 0, len(points))
	for i := range points {
		p := points[i]
		games = append(games, &model.Game{
			ID:      p.ID,
			Payload: p.Payload,
			Vector:  p.Vector,
		})
	}

	missed := len(ids) - len(games)
	if missed > 0 {
		logger.Warn("Resolver dropped %d unresolved ids (requested %d)", missed, len(ids))
	}
	return games, missed, nil
}

// ResolveOne 解析单个 ID，未命中返回 ErrNotFound
func (r *Resolver) ResolveOne(ctx context.Context, id string, withVectors bool) (*model.Game, error) {
	games, _, err := r.Resolve(ctx, []string{id}, withVectors)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return games[0], nil
}
