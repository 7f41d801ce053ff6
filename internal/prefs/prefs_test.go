package prefs

import (
	"errors"
	"testing"
)

func hasID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// 不变式：liked 与 disliked 任何时刻不相交
func checkDisjoint(t *testing.T, p *PreferenceSet) {
	t.Helper()
	for _, id := range p.Liked {
		if hasID(p.Disliked, id) {
			t.Errorf("id %s present in both liked and disliked", id)
		}
	}
}

func TestNewPreferenceSetConflict(t *testing.T) {
	// 同一 ID 两边都出现时 liked 优先
	p := NewPreferenceSet([]string{"1", "2"}, []string{"2", "3"})
	if !hasID(p.Liked, "2") {
		t.Error("expected 2 in liked")
	}
	if hasID(p.Disliked, "2") {
		t.Error("expected 2 dropped from disliked")
	}
	if !hasID(p.Disliked, "3") {
		t.Error("expected 3 kept in disliked")
	}
	checkDisjoint(t, p)
}

func TestApplyLikeMovesFromDisliked(t *testing.T) {
	p := NewPreferenceSet(nil, []string{"5"})
	if err := p.Apply(ActionLike, "5"); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !hasID(p.Liked, "5") || hasID(p.Disliked, "5") {
		t.Errorf("expected 5 moved to liked, got liked=%v disliked=%v", p.Liked, p.Disliked)
	}
	checkDisjoint(t, p)
}

func TestApplyDislikeMovesFromLiked(t *testing.T) {
	p := NewPreferenceSet([]string{"5"}, nil)
	if err := p.Apply(ActionDislike, "5"); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if hasID(p.Liked, "5") || !hasID(p.Disliked, "5") {
		t.Errorf("expected 5 moved to disliked, got liked=%v disliked=%v", p.Liked, p.Disliked)
	}
	checkDisjoint(t, p)
}

func TestApplyIdempotent(t *testing.T) {
	// 重复 like 不产生重复项，unlike 不存在的 ID 无副作用
	p := NewPreferenceSet([]string{"1"}, nil)
	if err := p.Apply(ActionLike, "1"); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(p.Liked) != 1 {
		t.Errorf("expected single entry after repeated like, got %v", p.Liked)
	}
	if err := p.Apply(ActionUnlike, "404"); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(p.Liked) != 1 {
		t.Errorf("unlike of unknown id changed liked: %v", p.Liked)
	}
}

func TestApplyResetAndRefresh(t *testing.T) {
	p := NewPreferenceSet([]string{"1"}, []string{"2"})
	if err := p.Apply(ActionRefresh, ""); err != nil {
		t.Fatalf("refresh should not require game_id: %v", err)
	}
	if len(p.Liked) != 1 || len(p.Disliked) != 1 {
		t.Error("refresh must not mutate the set")
	}
	if err := p.Apply(ActionReset, ""); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if len(p.Liked) != 0 || len(p.Disliked) != 0 {
		t.Errorf("expected empty set after reset, got liked=%v disliked=%v", p.Liked, p.Disliked)
	}
}

func TestApplyValidation(t *testing.T) {
	p := NewPreferenceSet(nil, nil)

	if err := p.Apply(ActionLike, "  "); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for missing game_id, got %v", err)
	}
	if err := p.Apply(Action("superlike"), "5"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown action, got %v", err)
	}
}

func TestExcludedUnion(t *testing.T) {
	p := NewPreferenceSet([]string{"1"}, []string{"2"})
	got := p.Excluded([]string{"3", " 1 ", ""})

	for _, id := range []string{"1", "2", "3"} {
		if _, ok := got[id]; !ok {
			t.Errorf("expected %s in excluded set", id)
		}
	}
	if len(got) != 3 {
		t.Errorf("expected 3 entries, got %d", len(got))
	}
}
