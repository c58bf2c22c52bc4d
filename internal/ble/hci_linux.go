//go:build linux

package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	goble "github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

// HCIAdapter talks to the controller through a raw HCI socket using
// go-ble. It needs CAP_NET_ADMIN and BlueZ stopped on the chosen device.
type HCIAdapter struct {
	mu     sync.Mutex
	device *linux.Device
}

// NewHCIAdapter returns an adapter that opens the HCI device on Enable.
func NewHCIAdapter() *HCIAdapter {
	return &HCIAdapter{}
}

func (a *HCIAdapter) Enable() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.device != nil {
		return nil
	}
	d, err := linux.NewDevice()
	if err != nil {
		return fmt.Errorf("%w: open hci device: %w", ErrCapabilityUnsupported, err)
	}
	goble.SetDefaultDevice(d)
	a.device = d
	return nil
}

func (a *HCIAdapter) Scan(ctx context.Context, serviceUUID string) ([]Device, error) {
	svc, err := goble.Parse(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: parse service UUID: %w", err)
	}

	var mu sync.Mutex
	var devices []Device
	seen := make(map[string]bool)

	filter := func(adv goble.Advertisement) bool {
		for _, u := range adv.Services() {
			if u.Equal(svc) {
				return true
			}
		}
		return false
	}
	err = goble.Scan(ctx, false, func(adv goble.Advertisement) {
		addr := adv.Addr().String()
		mu.Lock()
		defer mu.Unlock()
		if seen[addr] {
			return
		}
		seen[addr] = true
		devices = append(devices, Device{
			Name:    adv.LocalName(),
			Address: addr,
			RSSI:    adv.RSSI(),
		})
	}, filter)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return devices, nil
}

func (a *HCIAdapter) Connect(ctx context.Context, address string) (Connection, error) {
	client, err := goble.Dial(ctx, goble.NewAddr(address))
	if err != nil {
		return nil, fmt.Errorf("ble: connect to %s: %w", address, err)
	}
	conn := &hciConnection{client: client, cbs: make(map[int]func())}
	go conn.watch()
	return conn, nil
}

var _ Adapter = (*HCIAdapter)(nil)

type hciConnection struct {
	client goble.Client

	mu     sync.Mutex
	nextID int
	cbs    map[int]func()
	closed bool // Disconnect was requested locally
}

// watch runs the listeners when the controller reports link loss.
func (c *hciConnection) watch() {
	<-c.client.Disconnected()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	cbs := make([]func(), 0, len(c.cbs))
	for _, cb := range c.cbs {
		cbs = append(cbs, cb)
	}
	c.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

func (c *hciConnection) DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error) {
	svcUUID, err := goble.Parse(serviceUUID)
	if err != nil {
		return nil, err
	}
	chrUUID, err := goble.Parse(charUUID)
	if err != nil {
		return nil, err
	}

	profile, err := c.client.DiscoverProfile(true)
	if err != nil {
		return nil, fmt.Errorf("ble: discover profile: %w", err)
	}
	for _, s := range profile.Services {
		if !s.UUID.Equal(svcUUID) {
			continue
		}
		for _, ch := range s.Characteristics {
			if ch.UUID.Equal(chrUUID) {
				return &hciCharacteristic{client: c.client, char: ch}, nil
			}
		}
		return nil, fmt.Errorf("ble: characteristic %s not found", charUUID)
	}
	return nil, fmt.Errorf("ble: service %s not found", serviceUUID)
}

func (c *hciConnection) Connected() bool {
	select {
	case <-c.client.Disconnected():
		return false
	default:
		return true
	}
}

func (c *hciConnection) Disconnect() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.client.CancelConnection()
}

func (c *hciConnection) OnDisconnect(cb func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.cbs[id] = cb
	return func() {
		c.mu.Lock()
		delete(c.cbs, id)
		c.mu.Unlock()
	}
}

type hciCharacteristic struct {
	client goble.Client
	char   *goble.Characteristic
}

func (c *hciCharacteristic) Write(data []byte) error {
	return c.client.WriteCharacteristic(c.char, data, false)
}
