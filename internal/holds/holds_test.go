package holds

import (
	"math/rand"
	"testing"

	"github.com/chaz8081/holdlight/internal/board"
)

func clickN(m Map, holdID int, family board.Family, n int) Map {
	for i := 0; i < n; i++ {
		m = Advance(m, holdID, family)
	}
	return m
}

func TestEmptyMap(t *testing.T) {
	var m Map
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
	if m.StartingCount() != 0 || m.FinishCount() != 0 {
		t.Errorf("counts = (%d, %d), want (0, 0)", m.StartingCount(), m.FinishCount())
	}
	if m.IsValid(board.Kilter) {
		t.Error("empty map should not be valid")
	}
}

func TestAdvanceKilterCycle(t *testing.T) {
	want := []board.Classification{board.Starting, board.Hand, board.Foot, board.Finish}
	var m Map
	for i, w := range want {
		m = Advance(m, 100, board.Kilter)
		e, ok := m.Get(100)
		if !ok {
			t.Fatalf("click %d: hold missing", i+1)
		}
		if e.Classification != w {
			t.Errorf("click %d: classification = %v, want %v", i+1, e.Classification, w)
		}
	}
	e, _ := m.Get(100)
	if e.Colors.Color != "#FF00FF" {
		t.Errorf("finish color = %q, want #FF00FF", e.Colors.Color)
	}

	m = Advance(m, 100, board.Kilter)
	if _, ok := m.Get(100); ok {
		t.Error("fifth click should remove the hold")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestAdvanceMoonBoardCycle(t *testing.T) {
	want := []board.Classification{board.Starting, board.Hand, board.Finish}
	var m Map
	for i, w := range want {
		m = Advance(m, 7, board.MoonBoard)
		if got := m.Classification(7); got != w {
			t.Errorf("click %d: classification = %v, want %v", i+1, got, w)
		}
	}
	m = Advance(m, 7, board.MoonBoard)
	if m.Classification(7) != board.Off || m.Len() != 0 {
		t.Error("fourth click should remove the hold on moonboard")
	}
}

func TestAdvanceReturnsToOff(t *testing.T) {
	tests := []struct {
		family board.Family
		clicks int
	}{
		{board.Kilter, 5},
		{board.Tension, 5},
		{board.MoonBoard, 4},
	}
	for _, tt := range tests {
		t.Run(string(tt.family), func(t *testing.T) {
			base := NewMap(Entry{HoldID: 1, Classification: board.Hand})
			m := clickN(base, 50, tt.family, tt.clicks)
			if _, ok := m.Get(50); ok {
				t.Errorf("%d clicks should return hold to Off", tt.clicks)
			}
			if m.Len() != 1 {
				t.Errorf("Len() = %d, want 1 (other holds untouched)", m.Len())
			}
		})
	}
}

func TestAdvanceSkipsStartingWhenSaturated(t *testing.T) {
	var m Map
	m = Advance(m, 100, board.Kilter)
	m = Advance(m, 200, board.Kilter)
	if m.StartingCount() != 2 {
		t.Fatalf("StartingCount() = %d, want 2", m.StartingCount())
	}

	m = Advance(m, 300, board.Kilter)
	if got := m.Classification(300); got != board.Hand {
		t.Errorf("third hold = %v, want HAND", got)
	}
}

func TestAdvanceSkipsFinishWhenSaturated(t *testing.T) {
	var m Map
	m = clickN(m, 100, board.Kilter, 4)
	m = clickN(m, 200, board.Kilter, 4)
	if m.FinishCount() != 2 {
		t.Fatalf("FinishCount() = %d, want 2", m.FinishCount())
	}

	// STARTING, HAND, FOOT, then FINISH is skipped and the hold goes Off.
	m = clickN(m, 300, board.Kilter, 3)
	if got := m.Classification(300); got != board.Foot {
		t.Fatalf("hold 300 = %v, want FOOT", got)
	}
	m = Advance(m, 300, board.Kilter)
	if _, ok := m.Get(300); ok {
		t.Error("hold 300 should be removed when FINISH is saturated")
	}
}

func TestAdvanceDoesNotMutateInput(t *testing.T) {
	before := NewMap(Entry{HoldID: 1, Classification: board.Starting})
	after := Advance(before, 1, board.Kilter)

	if before.Classification(1) != board.Starting {
		t.Errorf("input map changed to %v", before.Classification(1))
	}
	if after.Classification(1) != board.Hand {
		t.Errorf("output = %v, want HAND", after.Classification(1))
	}

	added := Advance(before, 2, board.Kilter)
	if before.Len() != 1 {
		t.Errorf("input Len() = %d after adding to a copy, want 1", before.Len())
	}
	if added.Len() != 2 {
		t.Errorf("output Len() = %d, want 2", added.Len())
	}
}

func TestAdvancePreservesInsertionOrder(t *testing.T) {
	var m Map
	for _, id := range []int{30, 10, 20} {
		m = Advance(m, id, board.Kilter)
	}
	m = Advance(m, 10, board.Kilter)

	got := m.Entries()
	want := []int{30, 10, 20}
	for i, id := range want {
		if got[i].HoldID != id {
			t.Errorf("Entries()[%d] = %d, want %d", i, got[i].HoldID, id)
		}
	}
}

func TestCardinalityInvariantUnderRandomClicks(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, family := range []board.Family{board.Kilter, board.Tension, board.MoonBoard} {
		var m Map
		for i := 0; i < 2000; i++ {
			m = Advance(m, rng.Intn(12), family)
			if m.StartingCount() > MaxStarting {
				t.Fatalf("%s: StartingCount() = %d after %d clicks", family, m.StartingCount(), i+1)
			}
			if m.FinishCount() > MaxFinish {
				t.Fatalf("%s: FinishCount() = %d after %d clicks", family, m.FinishCount(), i+1)
			}
			if m.Count(board.Off) != 0 {
				t.Fatalf("%s: Off entry stored", family)
			}
		}
	}
}

func TestIsValid(t *testing.T) {
	hand := NewMap(Entry{HoldID: 1, Classification: board.Hand})
	if !hand.IsValid(board.Kilter) {
		t.Error("kilter: any hold should be valid")
	}
	if hand.IsValid(board.MoonBoard) {
		t.Error("moonboard: hand only should be invalid")
	}

	startOnly := NewMap(Entry{HoldID: 1, Classification: board.Starting})
	if startOnly.IsValid(board.MoonBoard) {
		t.Error("moonboard: start without finish should be invalid")
	}

	both := NewMap(
		Entry{HoldID: 1, Classification: board.Starting},
		Entry{HoldID: 2, Classification: board.Finish},
	)
	if !both.IsValid(board.MoonBoard) {
		t.Error("moonboard: start and finish should be valid")
	}
}

func TestNewMapSkipsOff(t *testing.T) {
	m := NewMap(
		Entry{HoldID: 1, Classification: board.Off},
		Entry{HoldID: 2, Classification: board.Hand},
		Entry{HoldID: 2, Classification: board.Foot},
	)
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if m.Classification(2) != board.Foot {
		t.Errorf("hold 2 = %v, want FOOT", m.Classification(2))
	}
	if m.HandCount() != 0 || m.FootCount() != 1 {
		t.Errorf("hand/foot = %d/%d, want 0/1", m.HandCount(), m.FootCount())
	}
}
