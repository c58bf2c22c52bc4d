// Package board describes the climbing board families supported by holdlight:
// their hold classifications, the numeric state codes used in frame strings,
// the LED colours for each classification and the LED protocol the
// controller firmware speaks.
package board

import (
	"fmt"
	"strings"
)

// Family identifies a board product line. Families differ in state codes,
// colours, whether foot holds exist, and the LED command encoding.
type Family string

const (
	Kilter    Family = "kilter"
	Tension   Family = "tension"
	MoonBoard Family = "moonboard"
)

// ParseFamily converts a config or CLI value into a Family.
func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := families[f]; !ok {
		return "", fmt.Errorf("board: unknown family %q (want kilter, tension or moonboard)", s)
	}
	return f, nil
}

// Classification is the role a hold plays in a climb.
type Classification int

const (
	Off Classification = iota
	Starting
	Hand
	Foot
	Finish
)

func (c Classification) String() string {
	switch c {
	case Starting:
		return "STARTING"
	case Hand:
		return "HAND"
	case Foot:
		return "FOOT"
	case Finish:
		return "FINISH"
	default:
		return "OFF"
	}
}

// Colors is the colour pair for a classification: Color drives the LEDs,
// DisplayColor is what a renderer shows on screen.
type Colors struct {
	Color        string
	DisplayColor string
}

// ProtocolVersion is the Aurora LED command encoding understood by the
// board controller.
type ProtocolVersion int

const (
	ProtocolV2 ProtocolVersion = 2
	ProtocolV3 ProtocolVersion = 3
)

// ParseProtocol parses "v2"/"v3" (or "2"/"3"). An empty string returns 0,
// meaning "use the family default".
func ParseProtocol(s string) (ProtocolVersion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "v2", "2":
		return ProtocolV2, nil
	case "v3", "3":
		return ProtocolV3, nil
	default:
		return 0, fmt.Errorf("board: unknown protocol %q (want v2 or v3)", s)
	}
}

type codeInfo struct {
	class  Classification
	colors Colors
}

type familySpec struct {
	feet     bool
	protocol ProtocolVersion
	// primary code emitted when encoding
	encode map[Classification]int
	// every code accepted when decoding, legacy codes included
	decode map[int]codeInfo
}

var (
	kilterColors = map[Classification]Colors{
		Starting: {Color: "#00FF00", DisplayColor: "#00FF00"},
		Hand:     {Color: "#00FFFF", DisplayColor: "#00FFFF"},
		Finish:   {Color: "#FF00FF", DisplayColor: "#FF00FF"},
		Foot:     {Color: "#FFA500", DisplayColor: "#FFA500"},
	}
	tensionColors = map[Classification]Colors{
		Starting: {Color: "#00FF00", DisplayColor: "#00DD00"},
		Hand:     {Color: "#0000FF", DisplayColor: "#4444FF"},
		Finish:   {Color: "#FF0000", DisplayColor: "#FF0000"},
		Foot:     {Color: "#FF00FF", DisplayColor: "#FF00FF"},
	}
	moonColors = map[Classification]Colors{
		Starting: {Color: "#00FF00", DisplayColor: "#44FF44"},
		Hand:     {Color: "#0000FF", DisplayColor: "#4444FF"},
		Finish:   {Color: "#FF0000", DisplayColor: "#FF3333"},
	}
)

var families = map[Family]familySpec{
	Kilter: {
		feet:     true,
		protocol: ProtocolV3,
		encode:   map[Classification]int{Starting: 42, Hand: 43, Finish: 44, Foot: 45},
		decode: map[int]codeInfo{
			42: {Starting, kilterColors[Starting]},
			43: {Hand, kilterColors[Hand]},
			44: {Finish, kilterColors[Finish]},
			45: {Foot, kilterColors[Foot]},
			12: {Starting, kilterColors[Starting]},
			13: {Hand, kilterColors[Hand]},
			14: {Finish, kilterColors[Finish]},
			15: {Foot, kilterColors[Foot]},
		},
	},
	Tension: {
		feet:     true,
		protocol: ProtocolV3,
		encode:   map[Classification]int{Starting: 1, Hand: 2, Finish: 3, Foot: 4},
		decode: map[int]codeInfo{
			1: {Starting, tensionColors[Starting]},
			2: {Hand, tensionColors[Hand]},
			3: {Finish, tensionColors[Finish]},
			4: {Foot, tensionColors[Foot]},
			5: {Starting, tensionColors[Starting]},
			6: {Hand, tensionColors[Hand]},
			7: {Finish, tensionColors[Finish]},
			8: {Foot, tensionColors[Foot]},
		},
	},
	MoonBoard: {
		feet:     false,
		protocol: ProtocolV2,
		encode:   map[Classification]int{Starting: 42, Hand: 43, Finish: 44},
		decode: map[int]codeInfo{
			42: {Starting, moonColors[Starting]},
			43: {Hand, moonColors[Hand]},
			44: {Finish, moonColors[Finish]},
		},
	},
}

// HasFootHolds reports whether the family has a FOOT classification.
func (f Family) HasFootHolds() bool {
	return families[f].feet
}

// DefaultProtocol returns the LED protocol the family's controllers speak
// out of the box.
func (f Family) DefaultProtocol() ProtocolVersion {
	return families[f].protocol
}

// CycleOrder returns the order a hold walks through on successive toggles.
// Off is always last.
func (f Family) CycleOrder() []Classification {
	if f.HasFootHolds() {
		return []Classification{Starting, Hand, Foot, Finish, Off}
	}
	return []Classification{Starting, Hand, Finish, Off}
}

// StateCode returns the primary frame-string code for c.
func (f Family) StateCode(c Classification) (int, bool) {
	code, ok := families[f].encode[c]
	return code, ok
}

// Lookup resolves a frame-string state code, legacy codes included.
func (f Family) Lookup(code int) (Classification, Colors, bool) {
	info, ok := families[f].decode[code]
	if !ok {
		return Off, Colors{}, false
	}
	return info.class, info.colors, true
}

// ColorsFor returns the colour pair of a classification on this family.
func (f Family) ColorsFor(c Classification) (Colors, bool) {
	code, ok := f.StateCode(c)
	if !ok {
		return Colors{}, false
	}
	_, colors, ok := f.Lookup(code)
	return colors, ok
}
