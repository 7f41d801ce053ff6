package prefs

import (
	"errors"
	"fmt"

	"discovery_engine/internal/model"
)

// Action 偏好操作类型
type Action string

const (
	ActionLike      Action = "like"
	ActionDislike   Action = "dislike"
	ActionUnlike    Action = "unlike"
	ActionUndislike Action = "undislike"
	ActionRefresh   Action = "refresh"
	ActionReset     Action = "reset"
)

// ErrValidation 请求级校验失败，是唯一会以 4xx 暴露给调用方的错误类别
var ErrValidation = errors.New("validation error")

// PreferenceSet 调用方随每次请求携带的喜欢/不喜欢集合
// 服务端不存储；变换后的集合原样回传，由调用方在下次请求带回
// 不变式：liked 与 disliked 永不相交，由状态机保证而非校验
type PreferenceSet struct {
	Liked    []string `json:"liked"`
	Disliked []string `json:"disliked"`
}

// NewPreferenceSet 归一调用方传入的两个集合，维持首次出现顺序
// 同一 ID 同时出现在两边时以 liked 优先（disliked 侧丢弃）
func NewPreferenceSet(liked, disliked []string) *PreferenceSet {
	p := &PreferenceSet{
		Liked: model.NormalizeIDs(liked),
	}
	likedSet := toSet(p.Liked)
	for _, id := range model.NormalizeIDs(disliked) {
		if _, ok := likedSet[id]; ok {
			continue
		}
		p.Disliked = append(p.Disliked, id)
	}
	return p
}

// Apply 按动作变换集合，非法输入返回包装了 ErrValidation 的错误
// 除 refresh/reset 外的动作都要求 gameID
func (p *PreferenceSet) Apply(action Action, gameID string) error {
	gameID = model.NormalizeID(gameID)

	switch action {
	case ActionRefresh:
		return nil
	case ActionReset:
		p.Liked = nil
		p.Disliked = nil
		return nil
	case ActionLike, ActionDislike, ActionUnlike, ActionUndislike:
		if gameID == "" {
			return fmt.Errorf("%w: action %q requires game_id", ErrValidation, action)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}

	switch action {
	case ActionLike:
		p.Disliked = remove(p.Disliked, gameID)
		p.Liked = addUnique(p.Liked, gameID)
	case ActionDislike:
		p.Liked = remove(p.Liked, gameID)
		p.Disliked = addUnique(p.Disliked, gameID)
	case ActionUnlike:
		p.Liked = remove(p.Liked, gameID)
	case ActionUndislike:
		p.Disliked = remove(p.Disliked, gameID)
	}
	return nil
}

// Excluded 派生排除集 liked ∪ disliked ∪ extra，每次重新计算，不单独存储
func (p *PreferenceSet) Excluded(extra []string) map[string]struct{} {
	out := make(map[string]struct{}, len(p.Liked)+len(p.Disliked)+len(extra))
	for _, id := range p.Liked {
		out[id] = struct{}{}
	}
	for _, id := range p.Disliked {
		out[id] = struct{}{}
	}
	for _, id := range model.NormalizeIDs(extra) {
		out[id] = struct{}{}
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func addUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
