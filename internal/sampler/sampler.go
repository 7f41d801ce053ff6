package sampler

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"time"

	"discovery_engine/internal/logger"
	"discovery_engine/internal/model"

	"discovery_engine/pkg/vectordb"
)

// DefaultPoolCap 随机池的上限，超过这个规模的超采样对随机性没有增益
const DefaultPoolCap = 200

// Sampler 从索引中抽取一批无偏、无重复的随机条目
// 既是无偏好时的默认发现路径，也是各处失败后的兜底
type Sampler struct {
	index   vectordb.Index
	poolCap int
}

// NewSampler 创建一个新的 Sampler
func NewSampler(index vectordb.Index) *Sampler {
	return &Sampler{index: index, poolCap: DefaultPoolCap}
}

// NewSeed 生成一个请求级随机种子：墙钟时间异或硬件熵
// 不使用全局随机源，避免并发请求之间相互干扰
func NewSeed() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return time.Now().UnixNano() ^ int64(binary.LittleEndian.Uint64(buf[:]))
}

// Sample 返回至多 limit 个随机条目，分数统一为 1.0
// excluded 中的 ID 不会出现；seed 相同则输出序列相同
func (s *Sampler) Sample(ctx context.Context, limit int, excluded map[string]struct{}, seed int64) ([]*model.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}

	total, err := s.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count collection: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	r := rand.New(rand.NewSource(seed))

	poolSize := limit * 10
	if half := total / 2; half > poolSize {
		poolSize = half
	}
	if poolSize > s.poolCap {
		poolSize = s.poolCap
	}

	// 随机起点扫描，避免池子总是从集合开头取
	points, err := s.scrollAt(ctx, poolSize, s.randomOffset(r, total, poolSize))
	if err != nil {
		return nil, err
	}

	pool := make([]*model.Candidate, 0, len(points))
	seen := make(map[string]struct{}, len(points))
	appendFiltered(&pool, seen, points, excluded)

	// 连续打乱三次，弱化底层扫描残留的顺序偏置
	for i := 0; i < 3; i++ {
		r.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
	}

	// 不够时从另一个随机位置再扫一次，合并去重后重新打乱
	if len(pool) < limit && total > poolSize {
		more, err := s.scrollAt(ctx, poolSize, s.randomOffset(r, total, poolSize))
		if err != nil {
			logger.Warn("Sampler refill scan failed: %v", err)
		} else {
			appendFiltered(&pool, seen, more, excluded)
			r.Shuffle(len(pool), func(i, j int) {
				pool[i], pool[j] = pool[j], pool[i]
			})
		}
	}

	if len(pool) > limit {
		pool = pool[:limit]
	}
	logger.Debug("Sampler drew %d of %d requested (corpus %d, pool %d)", len(pool), limit, total, poolSize)
	return pool, nil
}

func (s *Sampler) randomOffset(r *rand.Rand, total, poolSize int) *uint64 {
	span := total - poolSize
	if span <= 0 {
		return nil
	}
	off := uint64(r.Intn(span + 1))
	if off == 0 {
		return nil
	}
	return &off
}

func (s *Sampler) scrollAt(ctx context.Context, limit int, offset *uint64) ([]vectordb.Point, error) {
	points, err := s.index.Scroll(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll collection: %w", err)
	}
	return points, nil
}

func appendFiltered(pool *[]*model.Candidate, seen map[string]struct{}, points []vectordb.Point, excluded map[string]struct{}) {
	for i := range points {
		p := points[i]
		if _, ok := excluded[p.ID]; ok {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		*pool = append(*pool, &model.Candidate{
			ID:      p.ID,
			Score:   1.0,
			Payload: p.Payload,
		})
	}
}
