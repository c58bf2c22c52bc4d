// Package holds implements the hold-state machine used while authoring a
// climb. A Map is immutable: every mutation returns a new Map, so a caller
// holding an older value never observes a half-applied toggle.
package holds

import "github.com/chaz8081/holdlight/internal/board"

// MaxStarting and MaxFinish cap the holds of each role in one climb.
const (
	MaxStarting = 2
	MaxFinish   = 2
)

// Entry is one lit hold.
type Entry struct {
	HoldID         int
	Classification board.Classification
	Colors         board.Colors
}

// Map is the set of active holds, in insertion order. The zero value is an
// empty map. Off holds are never stored.
type Map struct {
	order   []int
	entries map[int]Entry
}

// NewMap builds a Map from entries, keeping their order. Entries classified
// Off are skipped and a repeated hold id keeps its first position with the
// last value.
func NewMap(entries ...Entry) Map {
	m := Map{entries: make(map[int]Entry, len(entries))}
	for _, e := range entries {
		if e.Classification == board.Off {
			continue
		}
		if _, ok := m.entries[e.HoldID]; !ok {
			m.order = append(m.order, e.HoldID)
		}
		m.entries[e.HoldID] = e
	}
	return m
}

// Get returns the entry for holdID. A missing hold is Off.
func (m Map) Get(holdID int) (Entry, bool) {
	e, ok := m.entries[holdID]
	return e, ok
}

// Classification returns the current role of holdID, Off when absent.
func (m Map) Classification(holdID int) board.Classification {
	if e, ok := m.entries[holdID]; ok {
		return e.Classification
	}
	return board.Off
}

// Entries returns the active holds in insertion order.
func (m Map) Entries() []Entry {
	out := make([]Entry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.entries[id])
	}
	return out
}

// Len is the total number of active holds.
func (m Map) Len() int { return len(m.order) }

// Count returns how many holds carry classification c.
func (m Map) Count(c board.Classification) int {
	n := 0
	for _, e := range m.entries {
		if e.Classification == c {
			n++
		}
	}
	return n
}

func (m Map) countExcluding(c board.Classification, holdID int) int {
	n := 0
	for id, e := range m.entries {
		if id != holdID && e.Classification == c {
			n++
		}
	}
	return n
}

// StartingCount, HandCount, FootCount and FinishCount are shorthands for Count.
func (m Map) StartingCount() int { return m.Count(board.Starting) }
func (m Map) HandCount() int     { return m.Count(board.Hand) }
func (m Map) FootCount() int     { return m.Count(board.Foot) }
func (m Map) FinishCount() int   { return m.Count(board.Finish) }

// IsValid reports whether the climb can be saved or sent. Families with
// foot holds only need one lit hold; the others need at least one start
// and one finish.
func (m Map) IsValid(family board.Family) bool {
	if family.HasFootHolds() {
		return m.Len() > 0
	}
	return m.StartingCount() > 0 && m.FinishCount() > 0
}

func (m Map) with(e Entry) Map {
	out := Map{
		order:   make([]int, len(m.order), len(m.order)+1),
		entries: make(map[int]Entry, len(m.entries)+1),
	}
	copy(out.order, m.order)
	for id, v := range m.entries {
		out.entries[id] = v
	}
	if _, ok := out.entries[e.HoldID]; !ok {
		out.order = append(out.order, e.HoldID)
	}
	out.entries[e.HoldID] = e
	return out
}

func (m Map) without(holdID int) Map {
	out := Map{
		order:   make([]int, 0, len(m.order)),
		entries: make(map[int]Entry, len(m.entries)),
	}
	for _, id := range m.order {
		if id == holdID {
			continue
		}
		out.order = append(out.order, id)
		out.entries[id] = m.entries[id]
	}
	return out
}

// Advance moves holdID to its next classification in the family's cycle,
// skipping Starting or Finish when two other holds already hold that role.
// The receiver is left untouched.
func Advance(m Map, holdID int, family board.Family) Map {
	cycle := family.CycleOrder()
	current := m.Classification(holdID)

	start := 0
	for i, c := range cycle {
		if c == current {
			start = i + 1
			break
		}
	}

	next := board.Off
	for i := 0; i < len(cycle); i++ {
		candidate := cycle[(start+i)%len(cycle)]
		if candidate == board.Starting && m.countExcluding(board.Starting, holdID) >= MaxStarting {
			continue
		}
		if candidate == board.Finish && m.countExcluding(board.Finish, holdID) >= MaxFinish {
			continue
		}
		next = candidate
		break
	}

	if next == board.Off {
		if _, ok := m.entries[holdID]; !ok {
			return m
		}
		return m.without(holdID)
	}
	colors, _ := family.ColorsFor(next)
	return m.with(Entry{HoldID: holdID, Classification: next, Colors: colors})
}
