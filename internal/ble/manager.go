package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chaz8081/holdlight/internal/ble/protocol"
	"github.com/chaz8081/holdlight/internal/board"
	"github.com/chaz8081/holdlight/internal/frames"
	"github.com/chaz8081/holdlight/internal/notify"
	"github.com/chaz8081/holdlight/internal/placement"
)

// State is the connection state of a Manager.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// unsupportedMessage is shown once when the host has no Bluetooth.
const unsupportedMessage = "Bluetooth is not available on this device."

// Options configures the Manager behavior.
type Options struct {
	Notifier  notify.Notifier
	Telemetry notify.Telemetry
	// Selector chooses the board from a scan. Defaults to the strongest
	// board in range.
	Selector Selector
	// OnConnectionChange is called with true on connect and false on every
	// transition back to Disconnected.
	OnConnectionChange func(connected bool)
	// OnLoadingChange is called when a connect attempt starts and ends.
	OnLoadingChange func(loading bool)

	ChunkSize    int           // bytes per GATT write
	ScanTimeout  time.Duration // how long device selection scans
	WriteTimeout time.Duration // per chunk write
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Notifier:     notify.Discard{},
		Telemetry:    notify.Discard{},
		Selector:     MatchSelector{},
		ChunkSize:    protocol.MaxChunkBytes,
		ScanTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// ChunkError reports the chunk write that aborted a send.
type ChunkError struct {
	Index int
	Total int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("ble: write chunk %d/%d: %v", e.Index+1, e.Total, e.Err)
}

func (e *ChunkError) Unwrap() []error { return []error{ErrChunkWrite, e.Err} }

// session is one live connection to a board.
type session struct {
	id     string
	device Device
	conn   Connection
	char   Characteristic

	// inflight is closed when an abandoned write returns. Guarded by
	// Manager.sendMu.
	inflight chan struct{}

	mu       sync.Mutex
	remove   func()
	detached bool
}

func (s *session) setRemove(remove func()) {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		remove()
		return
	}
	s.remove = remove
	s.mu.Unlock()
}

// detach removes the disconnect listener. Safe to call repeatedly.
func (s *session) detach() {
	s.mu.Lock()
	s.detached = true
	remove := s.remove
	s.remove = nil
	s.mu.Unlock()
	if remove != nil {
		remove()
	}
}

// Manager owns the connection to one board and sends frame strings to it.
// Explicit and unsolicited disconnects go through the same transition.
type Manager struct {
	adapter Adapter
	details board.Details
	fetcher placement.Fetcher
	cache   *placement.Cache
	opts    Options

	connectMu sync.Mutex // serializes Connect
	sendMu    sync.Mutex // serializes chunk sequences on the wire

	mu      sync.Mutex
	state   State
	loading bool
	session *session
	gen     uint64 // bumped by every teardown
}

// NewManager creates a Manager for the given board. Placements are fetched
// through fetcher and cached for the lifetime of the Manager.
func NewManager(adapter Adapter, details board.Details, fetcher placement.Fetcher, opts Options) *Manager {
	def := DefaultOptions()
	if opts.Notifier == nil {
		opts.Notifier = def.Notifier
	}
	if opts.Telemetry == nil {
		opts.Telemetry = def.Telemetry
	}
	if opts.Selector == nil {
		opts.Selector = def.Selector
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = def.ChunkSize
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = def.ScanTimeout
	}
	return &Manager{
		adapter: adapter,
		details: details,
		fetcher: fetcher,
		cache:   placement.NewCache(),
		opts:    opts,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether a board session is active.
func (m *Manager) IsConnected() bool {
	return m.State() == Connected
}

// Loading reports whether a connect attempt is in progress.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Device returns the connected board, if any.
func (m *Manager) Device() (Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Device{}, false
	}
	return m.session.device, true
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	changed := m.loading != v
	m.loading = v
	m.mu.Unlock()
	if changed && m.opts.OnLoadingChange != nil {
		m.opts.OnLoadingChange(v)
	}
}

func (m *Manager) emitConnection(v bool) {
	if m.opts.OnConnectionChange != nil {
		m.opts.OnConnectionChange(v)
	}
}

func (m *Manager) current() *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Connect selects a board, connects to it and, when initialFrames is not
// empty, lights it. Failures are logged and reported as false.
func (m *Manager) Connect(ctx context.Context, initialFrames string, mirrored bool) bool {
	if err := m.adapter.Enable(); err != nil {
		slog.Error("[BLE] bluetooth unavailable", "error", err)
		m.opts.Notifier.Error(unsupportedMessage)
		return false
	}

	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	m.setLoading(true)
	defer m.setLoading(false)

	m.mu.Lock()
	prev := m.session
	prevState := m.state
	m.state = Connecting
	gen := m.gen
	m.mu.Unlock()
	if prev != nil {
		prev.detach()
	}

	sess, err := m.open(ctx)
	if err == nil {
		// Listen before publishing. A loss before the session is current is
		// caught by the Connected check, a loss after it by the listener.
		sess.setRemove(sess.conn.OnDisconnect(func() { m.teardown(sess, false) }))

		m.mu.Lock()
		switch {
		case m.gen != gen:
			err = fmt.Errorf("ble: connect to %s: torn down while connecting", sess.device.Address)
		case !sess.conn.Connected():
			err = fmt.Errorf("ble: connect to %s: link lost while connecting", sess.device.Address)
		default:
			m.session = sess
			m.state = Connected
		}
		m.mu.Unlock()
		if err != nil {
			sess.detach()
			if sess.conn.Connected() {
				_ = sess.conn.Disconnect()
			}
		}
	}

	props := map[string]string{"boardLayout": m.details.String()}
	if err != nil {
		slog.Error("[BLE] connect failed", "error", err)
		props["error"] = err.Error()
		m.opts.Telemetry.Track(notify.EventConnectionFailed, props)

		m.mu.Lock()
		stale := m.gen != gen
		if !stale {
			m.session = nil
			m.state = Disconnected
		}
		m.mu.Unlock()
		if !stale && prevState == Connected {
			m.emitConnection(false)
		}
		return false
	}

	props["session"] = sess.id
	m.opts.Telemetry.Track(notify.EventConnectionSuccess, props)
	slog.Info("[BLE] connected", "device", sess.device.Name, "address", sess.device.Address, "session", sess.id)
	m.emitConnection(true)

	// The listener may have torn the session down before true went out.
	if m.current() != sess {
		m.emitConnection(false)
		return false
	}

	if initialFrames != "" {
		if !m.SendFramesToBoard(ctx, initialFrames, mirrored) {
			slog.Warn("[BLE] initial frames not sent", "session", sess.id)
		}
	}
	return true
}

// open runs device selection and acquires the write characteristic.
func (m *Manager) open(ctx context.Context) (*session, error) {
	device, err := RequestDevice(ctx, m.adapter, m.opts.Selector, m.opts.ScanTimeout)
	if err != nil {
		if !errors.Is(err, ErrDeviceSelection) {
			err = fmt.Errorf("%w: %w", ErrDeviceSelection, err)
		}
		return nil, err
	}

	conn, err := m.adapter.Connect(ctx, device.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceSelection, err)
	}

	char, err := conn.DiscoverCharacteristic(ServiceUUID, WriteCharUUID)
	if err != nil {
		_ = conn.Disconnect()
		return nil, fmt.Errorf("%w: %w", ErrCharacteristicUnavailable, err)
	}

	return &session{
		id:     uuid.NewString(),
		device: device,
		conn:   conn,
		char:   char,
	}, nil
}

// Disconnect closes the board connection. Safe to call when already
// disconnected.
func (m *Manager) Disconnect() {
	m.teardown(nil, true)
}

// teardown moves to Disconnected. A non-nil expected session makes the
// call a no-op unless that session is still current, so a late link-loss
// event cannot clear a newer session.
func (m *Manager) teardown(expected *session, closeLink bool) {
	m.mu.Lock()
	if expected != nil && m.session != expected {
		m.mu.Unlock()
		return
	}
	sess := m.session
	prevState := m.state
	m.session = nil
	m.state = Disconnected
	m.gen++
	m.mu.Unlock()

	if sess != nil {
		sess.detach()
		if closeLink && sess.conn.Connected() {
			if err := sess.conn.Disconnect(); err != nil {
				slog.Warn("[BLE] disconnect", "error", err, "session", sess.id)
			}
		}
		if expected != nil {
			slog.Warn("[BLE] board disconnected", "session", sess.id)
		} else {
			slog.Info("[BLE] disconnected", "session", sess.id)
		}
	}

	if prevState != Disconnected {
		m.emitConnection(false)
	}
}

// Close removes the disconnect listener without closing the link, for
// when the owner of the Manager goes away.
func (m *Manager) Close() {
	if sess := m.current(); sess != nil {
		sess.detach()
	}
}

// SendFramesToBoard lights frame on the board. It returns false when not
// connected, when frame is empty, or when any step of the send fails.
func (m *Manager) SendFramesToBoard(ctx context.Context, frame string, mirrored bool) bool {
	if frame == "" {
		return false
	}
	if err := m.Send(ctx, frame, mirrored); err != nil {
		slog.Error("[BLE] send failed", "error", err)
		return false
	}
	return true
}

// Send lights frame on the board and reports why it failed. An empty frame
// is a no-op. A missing mirror mapping is returned as *frames.MirrorError.
func (m *Manager) Send(ctx context.Context, frame string, mirrored bool) error {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	sess := m.current()
	if sess == nil || sess.char == nil {
		return ErrNotConnected
	}
	if frame == "" {
		return nil
	}

	placements, err := m.cache.Get(ctx, placement.KeyFor(m.details), m.fetcher)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPlacementResolution, err)
	}

	if mirrored {
		frame, err = frames.Mirror(frame, m.details.Holds)
		if err != nil {
			return err
		}
	}

	packet, err := protocol.BuildPacket(frame, placements, m.details.Family, m.details.LEDProtocol())
	if err != nil {
		return fmt.Errorf("ble: build packet: %w", err)
	}
	return m.writeChunks(ctx, sess, packet)
}

// Clear turns every LED off.
func (m *Manager) Clear(ctx context.Context) error {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	sess := m.current()
	if sess == nil || sess.char == nil {
		return ErrNotConnected
	}
	packet, err := protocol.BuildPacket("", nil, m.details.Family, m.details.LEDProtocol())
	if err != nil {
		return fmt.Errorf("ble: build packet: %w", err)
	}
	return m.writeChunks(ctx, sess, packet)
}

// writeChunks writes packet in order, one chunk at a time. The first
// failure aborts the rest; nothing is retried.
func (m *Manager) writeChunks(ctx context.Context, sess *session, packet []byte) error {
	chunks := protocol.SplitMessages(packet, m.opts.ChunkSize)
	slog.Debug("[BLE] sending packet", "bytes", len(packet), "chunks", len(chunks), "session", sess.id)

	for i, chunk := range chunks {
		if m.current() != sess {
			return &ChunkError{Index: i, Total: len(chunks), Err: ErrNotConnected}
		}
		if err := m.writeChunk(ctx, sess, chunk); err != nil {
			return &ChunkError{Index: i, Total: len(chunks), Err: err}
		}
	}
	return nil
}

// writeChunk writes one chunk within WriteTimeout. A write abandoned on
// timeout or cancellation keeps running, so the next write on the session
// waits for it first. Callers hold sendMu.
func (m *Manager) writeChunk(ctx context.Context, sess *session, chunk []byte) error {
	var timeout <-chan time.Time
	if m.opts.WriteTimeout > 0 {
		t := time.NewTimer(m.opts.WriteTimeout)
		defer t.Stop()
		timeout = t.C
	}

	if sess.inflight != nil {
		select {
		case <-sess.inflight:
			sess.inflight = nil
		case <-timeout:
			return fmt.Errorf("%w: previous write still in progress after %s", context.DeadlineExceeded, m.opts.WriteTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	done := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		done <- sess.char.Write(chunk)
		close(finished)
	}()

	select {
	case err := <-done:
		return err
	case <-timeout:
		sess.inflight = finished
		return fmt.Errorf("%w: timed out after %s", context.DeadlineExceeded, m.opts.WriteTimeout)
	case <-ctx.Done():
		sess.inflight = finished
		return ctx.Err()
	}
}
