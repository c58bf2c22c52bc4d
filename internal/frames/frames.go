// Package frames encodes and decodes the frame string format used to store
// and transmit climbs: one "p<holdId>r<stateCode>" pair per lit hold,
// optionally several frames separated by commas.
package frames

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chaz8081/holdlight/internal/board"
	"github.com/chaz8081/holdlight/internal/holds"
)

// Pair is one hold reference inside a frame string.
type Pair struct {
	HoldID    int
	StateCode int
}

// MirrorError reports a hold that has no counterpart on the mirrored side
// of the layout.
type MirrorError struct {
	HoldID int
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("Mirrored hold ID is not defined for hold ID %d.", e.HoldID)
}

// Encode renders m in insertion order. An empty map encodes to "".
func Encode(m holds.Map, family board.Family) string {
	var b strings.Builder
	for _, e := range m.Entries() {
		code, ok := family.StateCode(e.Classification)
		if !ok {
			continue
		}
		b.WriteString(formatPair(e.HoldID, code))
	}
	return b.String()
}

// Format renders pairs back into a frame string.
func Format(pairs []Pair) string {
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(formatPair(p.HoldID, p.StateCode))
	}
	return b.String()
}

func formatPair(holdID, code int) string {
	return "p" + strconv.Itoa(holdID) + "r" + strconv.Itoa(code)
}

// Parse splits a single frame string into its pairs, in order.
func Parse(frame string) ([]Pair, error) {
	var pairs []Pair
	for _, segment := range strings.Split(frame, "p") {
		if segment == "" {
			continue
		}
		idPart, codePart, found := strings.Cut(segment, "r")
		if !found {
			return nil, fmt.Errorf("frames: malformed segment %q: missing state code", segment)
		}
		id, err := strconv.Atoi(idPart)
		if err != nil {
			return nil, fmt.Errorf("frames: malformed hold id %q: %w", idPart, err)
		}
		code, err := strconv.Atoi(codePart)
		if err != nil {
			return nil, fmt.Errorf("frames: malformed state code %q: %w", codePart, err)
		}
		pairs = append(pairs, Pair{HoldID: id, StateCode: code})
	}
	return pairs, nil
}

// Decode parses the first frame of s into a hold map for family. Unknown
// state codes are an error; authoring cannot round-trip a hold it cannot
// classify.
func Decode(s string, family board.Family) (holds.Map, error) {
	first, _, _ := strings.Cut(strings.TrimLeft(s, ","), ",")
	pairs, err := Parse(first)
	if err != nil {
		return holds.Map{}, err
	}
	entries := make([]holds.Entry, 0, len(pairs))
	for _, p := range pairs {
		class, colors, ok := family.Lookup(p.StateCode)
		if !ok {
			return holds.Map{}, fmt.Errorf("frames: unknown %s state code %d for hold %d", family, p.StateCode, p.HoldID)
		}
		entries = append(entries, holds.Entry{HoldID: p.HoldID, Classification: class, Colors: colors})
	}
	return holds.NewMap(entries...), nil
}

// Mirror rewrites every hold id in frame to the id of its mirrored hold,
// keeping order and state codes. A hold without a mirror fails the whole
// conversion with a *MirrorError.
func Mirror(frame string, layout []board.Hold) (string, error) {
	if frame == "" {
		return "", nil
	}

	mirrored := make(map[int]int, len(layout))
	for _, h := range layout {
		if h.MirroredHoldID != 0 {
			mirrored[h.ID] = h.MirroredHoldID
		}
	}

	pairs, err := Parse(frame)
	if err != nil {
		return "", err
	}
	for i, p := range pairs {
		m, ok := mirrored[p.HoldID]
		if !ok {
			return "", &MirrorError{HoldID: p.HoldID}
		}
		pairs[i].HoldID = m
	}
	return Format(pairs), nil
}
