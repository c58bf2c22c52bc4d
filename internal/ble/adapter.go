// Package ble controls an Aurora-protocol climbing board over Bluetooth Low
// Energy. It owns the connection lifecycle and writes LED packets to the
// board's UART characteristic.
package ble

import (
	"context"
	"errors"
)

// Aurora board GATT identifiers.
const (
	// AdvertisedServiceUUID is advertised by every board controller and is
	// used as the scan filter.
	AdvertisedServiceUUID = "4488b571-7806-4df6-bcff-a2897e4953ff"
	// ServiceUUID is the Nordic UART service carrying LED packets.
	ServiceUUID = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	// WriteCharUUID is the UART RX characteristic the host writes to.
	WriteCharUUID = "6e400002-b5a3-f393-e0a9-e50e24dcca9e"
)

var (
	ErrCapabilityUnsupported     = errors.New("ble: bluetooth is not available on this system")
	ErrDeviceSelection           = errors.New("ble: no board selected")
	ErrCharacteristicUnavailable = errors.New("ble: board write characteristic unavailable")
	ErrPlacementResolution       = errors.New("ble: LED placements unavailable")
	ErrChunkWrite                = errors.New("ble: chunk write failed")
	ErrNotConnected              = errors.New("ble: not connected")
)

// Characteristic represents a writable BLE GATT characteristic.
type Characteristic interface {
	// Write sends data and returns once the write has completed.
	Write(data []byte) error
}

// Device represents a discovered BLE peripheral. On macOS the Address is a
// CoreBluetooth UUID rather than a MAC.
type Device struct {
	Name    string
	Address string
	RSSI    int
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Connected reports whether the link is still up.
	Connected() bool
	// Disconnect terminates the link.
	Disconnect() error
	// OnDisconnect registers cb for an unsolicited link loss. The returned
	// function removes the registration; calling it twice is harmless.
	OnDisconnect(cb func()) (remove func())
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the adapter. An error wrapping
	// ErrCapabilityUnsupported means the host has no usable Bluetooth.
	Enable() error
	// Scan discovers peripherals advertising serviceUUID until ctx is done.
	Scan(ctx context.Context, serviceUUID string) ([]Device, error)
	// Connect establishes a connection to the device with the given address.
	Connect(ctx context.Context, address string) (Connection, error)
}
