package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// mockCharacteristic records writes and can be told to fail.
type mockCharacteristic struct {
	mu      sync.Mutex
	writes  [][]byte
	failAt  int // 1-based write number that fails; 0 never fails
	count   int
	onWrite func(data []byte)

	active    int // writes currently in progress
	maxActive int
}

func (c *mockCharacteristic) Write(data []byte) error {
	c.mu.Lock()
	c.count++
	c.active++
	if c.active > c.maxActive {
		c.maxActive = c.active
	}
	defer func() {
		c.mu.Lock()
		c.active--
		c.mu.Unlock()
	}()
	if c.failAt > 0 && c.count == c.failAt {
		c.mu.Unlock()
		return errors.New("mock: write failed")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	hook := c.onWrite
	c.mu.Unlock()
	if hook != nil {
		hook(cp)
	}
	return nil
}

// MaxConcurrentWrites reports the most writes ever in progress at once.
func (c *mockCharacteristic) MaxConcurrentWrites() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxActive
}

func (c *mockCharacteristic) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// mockConnection simulates a BLE connection.
type mockConnection struct {
	mu           sync.Mutex
	char         *mockCharacteristic
	charErr      error
	listeners    map[int]func()
	nextID       int
	removed      int
	disconnects  int
	disconnected bool
	onDiscover   func(c *mockConnection)
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		char:      &mockCharacteristic{},
		listeners: make(map[int]func()),
	}
}

func (c *mockConnection) DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error) {
	if c.onDiscover != nil {
		c.onDiscover(c)
	}
	if c.charErr != nil {
		return nil, c.charErr
	}
	if serviceUUID != ServiceUUID || charUUID != WriteCharUUID {
		return nil, fmt.Errorf("mock: unknown characteristic %s/%s", serviceUUID, charUUID)
	}
	return c.char, nil
}

func (c *mockConnection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disconnected
}

func (c *mockConnection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.disconnected = true
	return nil
}

func (c *mockConnection) OnDisconnect(cb func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = cb
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.listeners[id]; ok {
			delete(c.listeners, id)
			c.removed++
		}
	}
}

// SimulateDisconnect drops the link and fires the registered listeners.
func (c *mockConnection) SimulateDisconnect() {
	c.mu.Lock()
	c.disconnected = true
	cbs := make([]func(), 0, len(c.listeners))
	for _, cb := range c.listeners {
		cbs = append(cbs, cb)
	}
	c.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

func (c *mockConnection) ListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *mockConnection) DisconnectCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

// mockAdapter simulates the BLE adapter.
type mockAdapter struct {
	mu          sync.Mutex
	devices     []Device
	enableErr   error
	scanErr     error
	connectErr  error
	charErr     error
	onDiscover  func(c *mockConnection)
	enables     int
	connections []*mockConnection
}

func newMockAdapter(devices []Device) *mockAdapter {
	return &mockAdapter{devices: devices}
}

func (a *mockAdapter) Enable() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enables++
	return a.enableErr
}

func (a *mockAdapter) Scan(_ context.Context, serviceUUID string) ([]Device, error) {
	if serviceUUID != AdvertisedServiceUUID {
		return nil, fmt.Errorf("mock: unexpected scan filter %q", serviceUUID)
	}
	if a.scanErr != nil {
		return nil, a.scanErr
	}
	return a.devices, nil
}

func (a *mockAdapter) Connect(_ context.Context, _ string) (Connection, error) {
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	conn := newMockConnection()
	conn.charErr = a.charErr
	conn.onDiscover = a.onDiscover
	a.mu.Lock()
	a.connections = append(a.connections, conn)
	a.mu.Unlock()
	return conn, nil
}

// latestConnection returns the most recently created connection (thread-safe).
func (a *mockAdapter) latestConnection() *mockConnection {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.connections) == 0 {
		return nil
	}
	return a.connections[len(a.connections)-1]
}

func TestMockAdapterImplementsInterface(t *testing.T) {
	var _ Adapter = (*mockAdapter)(nil)
}

func TestMockConnectionImplementsInterface(t *testing.T) {
	var _ Connection = (*mockConnection)(nil)
}

func TestMockCharacteristicImplementsInterface(t *testing.T) {
	var _ Characteristic = (*mockCharacteristic)(nil)
}
