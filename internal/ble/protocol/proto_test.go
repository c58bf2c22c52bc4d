package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chaz8081/holdlight/internal/board"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		data []byte
		want byte
	}{
		{nil, 0xFF},
		{[]byte{0x00}, 0xFF},
		{[]byte{0xFF}, 0x00},
		{[]byte{1, 2, 3}, 0xF9},
		{[]byte{0x80, 0x80}, 0xFF},
	}
	for _, tt := range tests {
		if got := Checksum(tt.data); got != tt.want {
			t.Errorf("Checksum(%x) = 0x%02x, want 0x%02x", tt.data, got, tt.want)
		}
	}
}

func TestEncodeColor(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    byte
	}{
		{0, 0, 0, 0x00},
		{255, 255, 255, 0xFF},
		{255, 0, 0, 0xE0},
		{0, 255, 0, 0x1C},
		{0, 0, 255, 0x03},
		{0, 255, 255, 0x1F},
		{255, 0, 255, 0xE3},
	}
	for _, tt := range tests {
		if got := EncodeColor(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("EncodeColor(%d,%d,%d) = 0x%02x, want 0x%02x", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
}

func TestBuildPacketSingleHoldV3(t *testing.T) {
	got, err := BuildPacket("p100r42", map[int]int{100: 0x0102}, board.Kilter, board.ProtocolV3)
	if err != nil {
		t.Fatalf("BuildPacket() error = %v", err)
	}
	body := []byte{CmdV3PacketOnly, 0x02, 0x01, 0x1C}
	want := append([]byte{FrameSOH, byte(len(body)), Checksum(body), FrameSTX}, body...)
	want = append(want, FrameETX)
	if !bytes.Equal(got, want) {
		t.Errorf("BuildPacket() = %x, want %x", got, want)
	}
}

func TestBuildPacketSingleHoldV2(t *testing.T) {
	// MoonBoard start is #00FF00: green bits 11, position 0x105.
	got, err := BuildPacket("p1r42", map[int]int{1: 0x105}, board.MoonBoard, board.ProtocolV2)
	if err != nil {
		t.Fatalf("BuildPacket() error = %v", err)
	}
	msgs, err := ParseMessages(got)
	if err != nil {
		t.Fatalf("ParseMessages() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].Command != CmdV2PacketOnly {
		t.Fatalf("messages = %+v, want one 'P' message", msgs)
	}
	led := msgs[0].LEDs[0]
	if led.Position != 0x105 || led.R != 0 || led.G != 255 || led.B != 0 {
		t.Errorf("LED = %+v, want position 0x105 green", led)
	}
}

func TestBuildPacketEmptyClearsBoard(t *testing.T) {
	got, err := BuildPacket("", nil, board.Kilter, board.ProtocolV3)
	if err != nil {
		t.Fatalf("BuildPacket() error = %v", err)
	}
	want := []byte{FrameSOH, 1, Checksum([]byte{CmdV3PacketOnly}), FrameSTX, CmdV3PacketOnly, FrameETX}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildPacket(\"\") = %x, want %x", got, want)
	}
}

func TestBuildPacketMultiMessage(t *testing.T) {
	// 200 holds at 3 bytes each need three messages of at most 84 LEDs.
	var frame strings.Builder
	placements := make(map[int]int)
	for i := 1; i <= 200; i++ {
		fmt.Fprintf(&frame, "p%dr43", i)
		placements[i] = i * 2
	}
	got, err := BuildPacket(frame.String(), placements, board.Kilter, board.ProtocolV3)
	if err != nil {
		t.Fatalf("BuildPacket() error = %v", err)
	}
	msgs, err := ParseMessages(got)
	if err != nil {
		t.Fatalf("ParseMessages() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	wantCmds := []byte{CmdV3PacketFirst, CmdV3PacketMiddle, CmdV3PacketLast}
	total := 0
	for i, m := range msgs {
		if m.Command != wantCmds[i] {
			t.Errorf("message %d command = %q, want %q", i, m.Command, wantCmds[i])
		}
		total += len(m.LEDs)
	}
	if total != 200 {
		t.Errorf("decoded %d LEDs, want 200", total)
	}
	if msgs[0].LEDs[0].Position != 2 || msgs[2].LEDs[len(msgs[2].LEDs)-1].Position != 400 {
		t.Error("LED order not preserved across messages")
	}
}

func TestBuildPacketTwoMessagesUseFirstAndLast(t *testing.T) {
	var frame strings.Builder
	placements := make(map[int]int)
	for i := 1; i <= 100; i++ {
		fmt.Fprintf(&frame, "p%dr42", i)
		placements[i] = i
	}
	got, err := BuildPacket(frame.String(), placements, board.Kilter, board.ProtocolV3)
	if err != nil {
		t.Fatalf("BuildPacket() error = %v", err)
	}
	msgs, err := ParseMessages(got)
	if err != nil {
		t.Fatalf("ParseMessages() error = %v", err)
	}
	if len(msgs) != 2 || msgs[0].Command != CmdV3PacketFirst || msgs[1].Command != CmdV3PacketLast {
		t.Errorf("messages = %d, want first+last", len(msgs))
	}
}

func TestBuildPacketMissingPlacement(t *testing.T) {
	_, err := BuildPacket("p1r42p2r43", map[int]int{1: 10}, board.Kilter, board.ProtocolV3)
	var missing *MissingPlacementError
	if !errors.As(err, &missing) {
		t.Fatalf("BuildPacket() error = %v, want *MissingPlacementError", err)
	}
	if missing.HoldID != 2 {
		t.Errorf("HoldID = %d, want 2", missing.HoldID)
	}
}

func TestBuildPacketUnknownStateCode(t *testing.T) {
	_, err := BuildPacket("p1r99", map[int]int{1: 10}, board.Kilter, board.ProtocolV3)
	var unknown *UnknownStateCodeError
	if !errors.As(err, &unknown) || unknown.Code != 99 {
		t.Errorf("BuildPacket() error = %v, want *UnknownStateCodeError{99}", err)
	}
}

func TestBuildPacketPositionOutOfRangeV2(t *testing.T) {
	if _, err := BuildPacket("p1r42", map[int]int{1: 1024}, board.MoonBoard, board.ProtocolV2); err == nil {
		t.Error("BuildPacket() should reject LED 1024 on v2")
	}
}

func TestBuildPacketUnsupportedVersion(t *testing.T) {
	if _, err := BuildPacket("p1r42", map[int]int{1: 1}, board.Kilter, 0); err == nil {
		t.Error("BuildPacket() should reject protocol version 0")
	}
}

func TestParseMessagesRejectsBadChecksum(t *testing.T) {
	packet, err := BuildPacket("p1r42", map[int]int{1: 1}, board.Kilter, board.ProtocolV3)
	if err != nil {
		t.Fatalf("BuildPacket() error = %v", err)
	}
	packet[2] ^= 0xFF
	if _, err := ParseMessages(packet); err == nil {
		t.Error("ParseMessages() should fail on a corrupted checksum")
	}
}

func TestParseMessagesTruncated(t *testing.T) {
	packet, _ := BuildPacket("p1r42", map[int]int{1: 1}, board.Kilter, board.ProtocolV3)
	if _, err := ParseMessages(packet[:len(packet)-1]); err == nil {
		t.Error("ParseMessages() should fail on a truncated packet")
	}
}

func TestPacketSurvivesSplitAndJoin(t *testing.T) {
	packet, err := BuildPacket("p1r42p2r43p3r44p4r45", map[int]int{1: 1, 2: 2, 3: 3, 4: 4}, board.Kilter, board.ProtocolV3)
	if err != nil {
		t.Fatalf("BuildPacket() error = %v", err)
	}
	joined := bytes.Join(SplitMessages(packet, MaxChunkBytes), nil)
	msgs, err := ParseMessages(joined)
	if err != nil {
		t.Fatalf("ParseMessages() error = %v", err)
	}
	if len(msgs[0].LEDs) != 4 {
		t.Errorf("decoded %d LEDs, want 4", len(msgs[0].LEDs))
	}
}
