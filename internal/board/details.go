package board

import "fmt"

// Hold is the part of a board hold the control pipeline cares about.
// MirroredHoldID is zero when the layout has no mirror counterpart.
type Hold struct {
	ID             int `yaml:"id"`
	MirroredHoldID int `yaml:"mirrored_hold_id,omitempty"`
}

// Details identifies one physical board configuration.
type Details struct {
	Family     Family
	LayoutID   int
	SizeID     int
	LayoutName string
	// Protocol overrides Family.DefaultProtocol when non-zero.
	Protocol ProtocolVersion
	Holds    []Hold
}

// LEDProtocol returns the protocol to encode packets with.
func (d Details) LEDProtocol() ProtocolVersion {
	if d.Protocol != 0 {
		return d.Protocol
	}
	return d.Family.DefaultProtocol()
}

// String is used as the layout label in logs and telemetry.
func (d Details) String() string {
	if d.LayoutName != "" {
		return d.LayoutName
	}
	return fmt.Sprintf("%s/%d/%d", d.Family, d.LayoutID, d.SizeID)
}
