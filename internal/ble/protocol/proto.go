// Package protocol implements the Aurora LED command encoding spoken by
// Kilter, Tension and compatible board controllers.
//
// A climb becomes a sequence of messages, each framed as
//
//	SOH(0x01) len checksum STX(0x02) cmd led-data... ETX(0x03)
//
// where len counts cmd plus led-data and checksum is the one's complement
// of their byte sum. The cmd byte marks the message's position in the
// sequence (only, first, middle, last) and the protocol version.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chaz8081/holdlight/internal/board"
	"github.com/chaz8081/holdlight/internal/frames"
)

// Frame delimiters.
const (
	FrameSOH = 0x01
	FrameSTX = 0x02
	FrameETX = 0x03
)

// Command bytes.
const (
	CmdV2PacketOnly   = 'P'
	CmdV2PacketFirst  = 'N'
	CmdV2PacketMiddle = 'M'
	CmdV2PacketLast   = 'O'

	CmdV3PacketOnly   = 'T'
	CmdV3PacketFirst  = 'R'
	CmdV3PacketMiddle = 'Q'
	CmdV3PacketLast   = 'S'
)

// MaxMessageBody is the largest cmd+led-data length a single message may carry.
const MaxMessageBody = 255

// frameOverhead is SOH, len, checksum, STX and ETX.
const frameOverhead = 5

// MissingPlacementError reports a hold with no LED index in the placement map.
type MissingPlacementError struct {
	HoldID int
}

func (e *MissingPlacementError) Error() string {
	return fmt.Sprintf("protocol: no LED placement for hold %d", e.HoldID)
}

// UnknownStateCodeError reports a frame-string state code the board family
// does not define.
type UnknownStateCodeError struct {
	Family board.Family
	Code   int
}

func (e *UnknownStateCodeError) Error() string {
	return fmt.Sprintf("protocol: unknown %s state code %d", e.Family, e.Code)
}

// LEDCommand is one LED set to one colour.
type LEDCommand struct {
	Position int
	R, G, B  uint8
}

type commandSet struct {
	only, first, middle, last byte
	ledSize                   int
	maxPosition               int
}

func commandsFor(v board.ProtocolVersion) (commandSet, error) {
	switch v {
	case board.ProtocolV2:
		return commandSet{CmdV2PacketOnly, CmdV2PacketFirst, CmdV2PacketMiddle, CmdV2PacketLast, 2, 0x3FF}, nil
	case board.ProtocolV3:
		return commandSet{CmdV3PacketOnly, CmdV3PacketFirst, CmdV3PacketMiddle, CmdV3PacketLast, 3, 0xFFFF}, nil
	default:
		return commandSet{}, fmt.Errorf("protocol: unsupported protocol version %d", v)
	}
}

// BuildPacket converts a frame string into the byte stream for the board.
// Every hold must resolve through placements; a missing one fails the whole
// packet rather than lighting a partial pattern. An empty frame string
// produces a single message with no LEDs, which clears the board.
func BuildPacket(frame string, placements map[int]int, family board.Family, version board.ProtocolVersion) ([]byte, error) {
	cmds, err := commandsFor(version)
	if err != nil {
		return nil, err
	}

	pairs, err := frames.Parse(frame)
	if err != nil {
		return nil, err
	}

	bodies := [][]byte{{cmds.middle}}
	for _, p := range pairs {
		led, ok := placements[p.HoldID]
		if !ok {
			return nil, &MissingPlacementError{HoldID: p.HoldID}
		}
		if led < 0 || led > cmds.maxPosition {
			return nil, fmt.Errorf("protocol: LED position %d for hold %d out of range", led, p.HoldID)
		}
		_, colors, ok := family.Lookup(p.StateCode)
		if !ok {
			return nil, &UnknownStateCodeError{Family: family, Code: p.StateCode}
		}
		r, g, b, err := parseHexColor(colors.Color)
		if err != nil {
			return nil, err
		}

		encoded := encodeLED(version, led, r, g, b)
		last := len(bodies) - 1
		if len(bodies[last])+len(encoded) > MaxMessageBody {
			bodies = append(bodies, []byte{cmds.middle})
			last++
		}
		bodies[last] = append(bodies[last], encoded...)
	}

	if len(bodies) == 1 {
		bodies[0][0] = cmds.only
	} else {
		bodies[0][0] = cmds.first
		bodies[len(bodies)-1][0] = cmds.last
	}

	var out []byte
	for _, body := range bodies {
		out = append(out, wrapMessage(body)...)
	}
	return out, nil
}

func encodeLED(version board.ProtocolVersion, position int, r, g, b uint8) []byte {
	if version == board.ProtocolV2 {
		return []byte{
			byte(position & 0xFF),
			(r/64)<<6 | (g/64)<<4 | (b/64)<<2 | byte((position>>8)&0x03),
		}
	}
	return []byte{
		byte(position & 0xFF),
		byte((position >> 8) & 0xFF),
		EncodeColor(r, g, b),
	}
}

// EncodeColor packs an RGB colour into the v3 RRRGGGBB byte.
func EncodeColor(r, g, b uint8) byte {
	return (r/32)<<5 | (g/32)<<2 | b/64
}

// Checksum is the one's complement of the byte sum of data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum ^ 0xFF
}

func wrapMessage(body []byte) []byte {
	msg := make([]byte, 0, len(body)+frameOverhead)
	msg = append(msg, FrameSOH, byte(len(body)), Checksum(body), FrameSTX)
	msg = append(msg, body...)
	return append(msg, FrameETX)
}

func parseHexColor(s string) (r, g, b uint8, err error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("protocol: bad colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("protocol: bad colour %q: %w", s, err)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// Message is one decoded frame from a packet.
type Message struct {
	Command byte
	LEDs    []LEDCommand
}

// ParseMessages decodes a packet produced by BuildPacket. It is strict:
// any framing or checksum error fails the whole packet.
func ParseMessages(data []byte) ([]Message, error) {
	var msgs []Message
	for len(data) > 0 {
		if len(data) < frameOverhead+1 {
			return nil, errors.New("protocol: truncated message")
		}
		if data[0] != FrameSOH {
			return nil, fmt.Errorf("protocol: expected SOH, got 0x%02x", data[0])
		}
		n := int(data[1])
		size := 4 + n + 1
		if n < 1 || len(data) < size {
			return nil, fmt.Errorf("protocol: message length %d exceeds remaining %d bytes", n, len(data)-frameOverhead)
		}
		if data[3] != FrameSTX {
			return nil, fmt.Errorf("protocol: expected STX, got 0x%02x", data[3])
		}
		if data[size-1] != FrameETX {
			return nil, fmt.Errorf("protocol: expected ETX, got 0x%02x", data[size-1])
		}
		body := data[4 : 4+n]
		if want := Checksum(body); data[2] != want {
			return nil, fmt.Errorf("protocol: checksum 0x%02x, want 0x%02x", data[2], want)
		}

		msg, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
		data = data[size:]
	}
	return msgs, nil
}

func decodeBody(body []byte) (Message, error) {
	msg := Message{Command: body[0]}
	leds := body[1:]
	switch msg.Command {
	case CmdV2PacketOnly, CmdV2PacketFirst, CmdV2PacketMiddle, CmdV2PacketLast:
		for i := 0; i+1 < len(leds); i += 2 {
			c := leds[i+1]
			msg.LEDs = append(msg.LEDs, LEDCommand{
				Position: int(leds[i]) | int(c&0x03)<<8,
				R:        (c >> 6 & 0x03) * 85,
				G:        (c >> 4 & 0x03) * 85,
				B:        (c >> 2 & 0x03) * 85,
			})
		}
	case CmdV3PacketOnly, CmdV3PacketFirst, CmdV3PacketMiddle, CmdV3PacketLast:
		for i := 0; i+2 < len(leds); i += 3 {
			c := leds[i+2]
			msg.LEDs = append(msg.LEDs, LEDCommand{
				Position: int(leds[i]) | int(leds[i+1])<<8,
				R:        (c >> 5 & 0x07) * 36,
				G:        (c >> 2 & 0x07) * 36,
				B:        (c & 0x03) * 85,
			})
		}
	default:
		return Message{}, fmt.Errorf("protocol: unknown command 0x%02x", msg.Command)
	}
	return msg, nil
}
