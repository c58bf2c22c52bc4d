package ble

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Selector picks the board to connect to from a scan result. It stands in
// for the user-mediated device chooser and may refuse every candidate.
type Selector interface {
	Select(ctx context.Context, devices []Device) (Device, error)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(ctx context.Context, devices []Device) (Device, error)

func (f SelectorFunc) Select(ctx context.Context, devices []Device) (Device, error) {
	return f(ctx, devices)
}

// MatchSelector picks the device with an exact Address, or failing that the
// strongest device whose name starts with NamePrefix. Empty fields match
// anything.
type MatchSelector struct {
	Address    string
	NamePrefix string
}

func (s MatchSelector) Select(_ context.Context, devices []Device) (Device, error) {
	if s.Address != "" {
		for _, d := range devices {
			if strings.EqualFold(d.Address, s.Address) {
				return d, nil
			}
		}
		return Device{}, fmt.Errorf("%w: %s not found", ErrDeviceSelection, s.Address)
	}

	var candidates []Device
	for _, d := range devices {
		if s.NamePrefix == "" || strings.HasPrefix(strings.ToLower(d.Name), strings.ToLower(s.NamePrefix)) {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return Device{}, fmt.Errorf("%w: no matching board in range", ErrDeviceSelection)
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].RSSI > candidates[j].RSSI })
	return candidates[0], nil
}

// ScanForBoards scans for board controllers for the given duration.
// The adapter must already be enabled.
func ScanForBoards(ctx context.Context, adapter Adapter, timeout time.Duration) ([]Device, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	devices, err := adapter.Scan(ctx, AdvertisedServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}
	return devices, nil
}

// RequestDevice scans and hands the result to selector.
func RequestDevice(ctx context.Context, adapter Adapter, selector Selector, timeout time.Duration) (Device, error) {
	devices, err := ScanForBoards(ctx, adapter, timeout)
	if err != nil {
		return Device{}, fmt.Errorf("%w: %w", ErrDeviceSelection, err)
	}
	slog.Debug("[BLE] scan complete", "found", len(devices))

	d, err := selector.Select(ctx, devices)
	if err != nil {
		return Device{}, err
	}
	return d, nil
}
