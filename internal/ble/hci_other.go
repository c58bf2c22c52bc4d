//go:build !linux

package ble

import (
	"context"
	"fmt"
)

// HCIAdapter is only available on Linux.
type HCIAdapter struct{}

func NewHCIAdapter() *HCIAdapter { return &HCIAdapter{} }

func (a *HCIAdapter) Enable() error {
	return fmt.Errorf("%w: the hci backend requires linux", ErrCapabilityUnsupported)
}

func (a *HCIAdapter) Scan(context.Context, string) ([]Device, error) {
	return nil, fmt.Errorf("%w: the hci backend requires linux", ErrCapabilityUnsupported)
}

func (a *HCIAdapter) Connect(context.Context, string) (Connection, error) {
	return nil, fmt.Errorf("%w: the hci backend requires linux", ErrCapabilityUnsupported)
}

var _ Adapter = (*HCIAdapter)(nil)
