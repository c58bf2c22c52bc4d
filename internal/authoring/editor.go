// Package authoring edits a climb one hold click at a time and keeps a
// connected board showing the current selection.
package authoring

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chaz8081/holdlight/internal/board"
	"github.com/chaz8081/holdlight/internal/frames"
	"github.com/chaz8081/holdlight/internal/holds"
)

// FrameSender is the part of the board connection the editor drives.
type FrameSender interface {
	IsConnected() bool
	SendFramesToBoard(ctx context.Context, frame string, mirrored bool) bool
}

// boardClearer is implemented by senders that can turn every LED off.
type boardClearer interface {
	Clear(ctx context.Context) error
}

// Editor holds the climb being authored. Every change is pushed to the
// board when the sender is connected. Safe for concurrent use.
type Editor struct {
	details  board.Details
	sender   FrameSender
	mirrored bool

	mu    sync.Mutex
	holds holds.Map

	// pushMu orders pushes. Each push sends the selection current at the
	// time it runs, so the board ends on the latest state.
	pushMu sync.Mutex
}

// NewEditor creates an empty editor. sender may be nil for offline editing.
func NewEditor(details board.Details, sender FrameSender) *Editor {
	return &Editor{details: details, sender: sender}
}

// SetMirrored makes subsequent pushes light the mirrored climb.
func (e *Editor) SetMirrored(mirrored bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mirrored = mirrored
}

// Toggle advances holdID one step through the family's cycle and returns
// its new classification.
func (e *Editor) Toggle(ctx context.Context, holdID int) board.Classification {
	e.mu.Lock()
	e.holds = holds.Advance(e.holds, holdID, e.details.Family)
	class := e.holds.Classification(holdID)
	e.mu.Unlock()

	slog.Debug("[authoring] toggled hold", "hold", holdID, "state", class)
	e.push(ctx)
	return class
}

// Clear removes every hold.
func (e *Editor) Clear(ctx context.Context) {
	e.mu.Lock()
	e.holds = holds.NewMap()
	e.mu.Unlock()
	e.push(ctx)
}

// Load replaces the selection with the first frame of an existing climb.
func (e *Editor) Load(ctx context.Context, frameString string) error {
	m, err := frames.Decode(frameString, e.details.Family)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.holds = m
	e.mu.Unlock()
	e.push(ctx)
	return nil
}

// Holds returns the current selection.
func (e *Editor) Holds() holds.Map {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.holds
}

// Frames returns the frame string of the current selection.
func (e *Editor) Frames() string {
	return frames.Encode(e.Holds(), e.details.Family)
}

// MirroredFrames returns the mirrored frame string. A hold without a mirror
// counterpart is reported as *frames.MirrorError.
func (e *Editor) MirroredFrames() (string, error) {
	return frames.Mirror(e.Frames(), e.details.Holds)
}

// IsValid reports whether the selection can be saved as a climb.
func (e *Editor) IsValid() bool {
	return e.Holds().IsValid(e.details.Family)
}

// push sends the current selection. Callers must not hold mu.
func (e *Editor) push(ctx context.Context) {
	if e.sender == nil || !e.sender.IsConnected() {
		return
	}
	e.pushMu.Lock()
	defer e.pushMu.Unlock()

	e.mu.Lock()
	frame := frames.Encode(e.holds, e.details.Family)
	mirrored := e.mirrored
	e.mu.Unlock()

	if frame == "" {
		if c, ok := e.sender.(boardClearer); ok {
			if err := c.Clear(ctx); err != nil {
				slog.Warn("[authoring] clear board failed", "error", err)
			}
		}
		return
	}
	if !e.sender.SendFramesToBoard(ctx, frame, mirrored) {
		slog.Warn("[authoring] board not updated", "frames", frame)
	}
}
