package ble

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"tinygo.org/x/bluetooth"
)

// TinyGoAdapter wraps tinygo-org/bluetooth (CoreBluetooth on macOS, BlueZ
// over D-Bus on Linux, WinRT on Windows). On macOS device addresses are
// CoreBluetooth UUIDs rather than MAC addresses.
type TinyGoAdapter struct {
	adapter *bluetooth.Adapter

	// mu protects the connections map.
	mu          sync.Mutex
	connections map[string]*tinyGoConnection // keyed by device address
}

// NewTinyGoAdapter creates a new BLE adapter on the system default radio.
func NewTinyGoAdapter() *TinyGoAdapter {
	return &TinyGoAdapter{
		adapter:     bluetooth.DefaultAdapter,
		connections: make(map[string]*tinyGoConnection),
	}
}

func (a *TinyGoAdapter) Enable() error {
	if err := a.adapter.Enable(); err != nil {
		return fmt.Errorf("%w: %w", ErrCapabilityUnsupported, err)
	}

	// Register the adapter-level connect/disconnect handler. tinygo fires it
	// with connected=false when a peripheral drops the link (on macOS via
	// DidDisconnectPeripheral, on Linux via the BlueZ Connected property).
	// The connection is forgotten here since its address may be reused.
	a.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		addr := device.Address.String()
		a.mu.Lock()
		conn, ok := a.connections[addr]
		delete(a.connections, addr)
		a.mu.Unlock()
		if ok {
			conn.lost()
		}
	})

	return nil
}

// Scan collects boards advertising serviceUUID until ctx is done. Each
// address is reported once.
func (a *TinyGoAdapter) Scan(ctx context.Context, serviceUUID string) ([]Device, error) {
	uuid, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: parse service UUID: %w", err)
	}

	var mu sync.Mutex
	var devices []Device
	seen := make(map[string]bool)

	// adapter.Scan blocks until StopScan, so stop it from the side when
	// the deadline passes.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			a.adapter.StopScan()
		case <-done:
		}
	}()

	err = a.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		if !result.HasServiceUUID(uuid) {
			return
		}
		addr := result.Address.String()
		mu.Lock()
		defer mu.Unlock()
		if seen[addr] {
			return
		}
		seen[addr] = true
		devices = append(devices, Device{
			Name:    result.LocalName(),
			Address: addr,
			RSSI:    int(result.RSSI),
		})
	})
	close(done)

	// A scan stopped by ctx is the normal way out, not an error.
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return devices, nil
}

func (a *TinyGoAdapter) Connect(ctx context.Context, address string) (Connection, error) {
	// On macOS the address is a CoreBluetooth UUID, elsewhere a MAC.
	// Address.Set parses both.
	var addr bluetooth.Address
	addr.Set(address)

	// tinygo's Connect blocks internally with its own timeout.
	// Wrap it so ctx cancellation is also respected.
	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		// The underlying Connect keeps going until it times out or
		// succeeds. It cannot be cancelled from here, so stop waiting.
		return nil, fmt.Errorf("ble: connect to %s: %w", address, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return nil, fmt.Errorf("ble: connect to %s: %w", address, result.err)
		}
		conn := &tinyGoConnection{device: result.device}
		conn.connected.Store(true)

		// Track the connection so the adapter-level handler can find it
		// and run its OnDisconnect listeners.
		a.mu.Lock()
		a.connections[address] = conn
		a.mu.Unlock()

		return conn, nil
	}
}

// Compile-time check that TinyGoAdapter implements Adapter.
var _ Adapter = (*TinyGoAdapter)(nil)

// tinyGoConnection is one link to a board. Listeners registered with
// OnDisconnect run when the adapter reports the link lost.
type tinyGoConnection struct {
	device    bluetooth.Device
	connected atomic.Bool

	// mu protects the listener map.
	mu     sync.Mutex
	nextID int
	cbs    map[int]func()
}

func (c *tinyGoConnection) DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error) {
	svcUUID, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, err
	}
	chrUUID, err := bluetooth.ParseUUID(charUUID)
	if err != nil {
		return nil, err
	}

	svcs, err := c.device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil {
		return nil, fmt.Errorf("ble: discover services: %w", err)
	}
	if len(svcs) == 0 {
		return nil, fmt.Errorf("ble: service %s not found", serviceUUID)
	}

	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{chrUUID})
	if err != nil {
		return nil, fmt.Errorf("ble: discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("ble: characteristic %s not found", charUUID)
	}

	return &tinyGoCharacteristic{char: chars[0]}, nil
}

func (c *tinyGoConnection) Connected() bool {
	return c.connected.Load()
}

// Disconnect closes the link locally. tinygo still reports the drop through
// the connect handler, which finds no listeners once the manager detached.
func (c *tinyGoConnection) Disconnect() error {
	c.connected.Store(false)
	return c.device.Disconnect()
}

func (c *tinyGoConnection) OnDisconnect(cb func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cbs == nil {
		c.cbs = make(map[int]func())
	}
	id := c.nextID
	c.nextID++
	c.cbs[id] = cb
	return func() {
		c.mu.Lock()
		delete(c.cbs, id)
		c.mu.Unlock()
	}
}

// lost marks the link down and runs the registered listeners.
func (c *tinyGoConnection) lost() {
	c.connected.Store(false)
	c.mu.Lock()
	cbs := make([]func(), 0, len(c.cbs))
	for _, cb := range c.cbs {
		cbs = append(cbs, cb)
	}
	c.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

type tinyGoCharacteristic struct {
	char bluetooth.DeviceCharacteristic
}

// Write sends one chunk. Boards take writes without response on the UART
// RX characteristic.
func (c *tinyGoCharacteristic) Write(data []byte) error {
	_, err := c.char.WriteWithoutResponse(data)
	return err
}
