package model

import (
	"testing"
)

func TestNormalizeIDs(t *testing.T) {
	got := NormalizeIDs([]string{" 10 ", "abc", "10", "", "  ", "abc", "7"})
	want := []string{"10", "abc", "7"}
	if len(got) != len(want) {
		t.Fatalf("expected %d ids, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestNormalizeIDsEmpty(t *testing.T) {
	if got := NormalizeIDs(nil); got != nil {
		t.Errorf("expected nil for nil input, got %v", got)
	}
	if got := NormalizeIDs([]string{"", "   "}); got != nil {
		t.Errorf("expected nil for blank input, got %v", got)
	}
}

func TestSortCandidates(t *testing.T) {
	list := []*Candidate{
		{ID: "c", Score: 0.5},
		{ID: "b", Score: 0.9},
		{ID: "a", Score: 0.5},
		{ID: "d", Score: 0.9},
	}
	SortCandidates(list)

	// 分数降序，同分按 ID 升序
	wantOrder := []string{"b", "d", "a", "c"}
	for i, id := range wantOrder {
		if list[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, list[i].ID)
		}
	}
}

func TestTruncate(t *testing.T) {
	list := []*Candidate{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	if got := Truncate(list, 2); len(got) != 2 {
		t.Errorf("expected 2 candidates, got %d", len(got))
	}
	if got := Truncate(list, 10); len(got) != 3 {
		t.Errorf("expected 3 candidates when limit exceeds length, got %d", len(got))
	}
	if got := Truncate(list, 0); len(got) != 3 {
		t.Errorf("expected untouched list for limit 0, got %d", len(got))
	}
}
