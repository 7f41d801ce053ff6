package model

import (
	"sort"
	"strings"
)

// Game 代表游戏库中的一个条目，由外部向量索引持有
// 本服务只读取，不负责写入
type Game struct {
	ID      string                 `json:"id"`
	Payload map[string]interface{} `json:"payload,omitempty"` // 元数据 (name, genres, tags...)
	Vector  []float64              `json:"-"`                 // 稠密向量，仅在内部透传，不参与序列化
}

// Candidate 代表一次请求中带相关性分数的候选条目
// 请求结束即丢弃，不持久化
type Candidate struct {
	ID      string                 `json:"id"`
	Score   float64                `json:"score"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// NormalizeID 把调用方传入的 ID 归一为规范字符串形式
// 数字形式的 ID 到索引原生类型的转换只发生在 vectordb 的请求边界，不在这里
func NormalizeID(raw string) string {
	return strings.TrimSpace(raw)
}

// NormalizeIDs 批量归一，丢弃空串并去重，保持首次出现顺序
func NormalizeIDs(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, r := range raw {
		id := NormalizeID(r)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SortCandidates 按分数降序排序，分数相同时按 ID 升序保证确定性
func SortCandidates(list []*Candidate) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].ID < list[j].ID
	})
}

// Truncate 截断到 limit，limit <= 0 时原样返回
func Truncate(list []*Candidate, limit int) []*Candidate {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}
