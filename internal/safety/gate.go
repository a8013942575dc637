// Package safety implements the HIL (human-in-the-loop) constraint
// profile checked before any write operation touches the wire (spec
// §4.7): allowed VLANs/devices/ports, protected VLANs, and a
// max-ports-per-call cap.
package safety

import (
	"fmt"

	"github.com/emesix/switchcraft/internal/xerr"
)

// Profile is one HIL constraint set. The zero value has Enabled false,
// so Gate.Check is a no-op until a profile opts in.
type Profile struct {
	Enabled bool

	// AllowedVLANs restricts which VLAN ids a write may touch. Empty
	// means "no restriction" except the spec's default of {999} — callers
	// building a HIL profile from config should start from
	// DefaultProfile() rather than a bare Profile{}.
	AllowedVLANs map[int]bool

	// AllowedDevices restricts which device hosts a write may target.
	// Empty means no restriction.
	AllowedDevices map[string]bool

	// AllowedPorts restricts which ports may be touched, per device.
	// A device with no entry here is unrestricted at the port level.
	AllowedPorts map[string]map[string]bool

	// ProtectedVLANs may never be touched regardless of AllowedVLANs.
	ProtectedVLANs map[int]bool

	// MaxPortsPerCall caps how many ports one operation may touch. Zero
	// means unbounded.
	MaxPortsPerCall int
}

// DefaultProfile returns the spec's default HIL profile: only VLAN 999
// allowed, no device/port restriction, no protected VLANs, unbounded
// ports per call. Enabled is false; callers flip it on when HIL mode is
// requested.
func DefaultProfile() Profile {
	return Profile{AllowedVLANs: map[int]bool{999: true}}
}

// Operation describes one write's scope for the gate to check.
type Operation struct {
	DeviceID string
	VLANIDs  []int
	PortIDs  []string
}

// Gate checks operations against a Profile.
type Gate struct {
	profile Profile
}

// NewGate builds a Gate bound to profile.
func NewGate(profile Profile) *Gate {
	return &Gate{profile: profile}
}

// Check validates op against the gate's profile, in the order: device
// allowlist, protected VLANs, VLAN allowlist, max-ports-per-call, port
// allowlist. Returns a safety-violation EngineError on the first
// violation found; nil if op passes or the gate is disabled (spec §4.7:
// "violations raise a distinct safety-violation error before any planner
// work").
func (g *Gate) Check(op Operation) error {
	if !g.profile.Enabled {
		return nil
	}

	if len(g.profile.AllowedDevices) > 0 && !g.profile.AllowedDevices[op.DeviceID] {
		return g.violation(op.DeviceID, fmt.Sprintf("device %q is not in the HIL allowed_devices list", op.DeviceID))
	}

	for _, vid := range op.VLANIDs {
		if g.profile.ProtectedVLANs[vid] {
			return g.violation(op.DeviceID, fmt.Sprintf("VLAN %d is protected and cannot be modified", vid))
		}
		if len(g.profile.AllowedVLANs) > 0 && !g.profile.AllowedVLANs[vid] {
			return g.violation(op.DeviceID, fmt.Sprintf("VLAN %d is not in the HIL allowed_vlans list", vid))
		}
	}

	if g.profile.MaxPortsPerCall > 0 && len(op.PortIDs) > g.profile.MaxPortsPerCall {
		return g.violation(op.DeviceID, fmt.Sprintf("operation touches %d ports, exceeding max_ports_per_call=%d", len(op.PortIDs), g.profile.MaxPortsPerCall))
	}

	if allowed, ok := g.profile.AllowedPorts[op.DeviceID]; ok {
		for _, port := range op.PortIDs {
			if !allowed[port] {
				return g.violation(op.DeviceID, fmt.Sprintf("port %q is not in the HIL allowed_ports list for %s", port, op.DeviceID))
			}
		}
	}

	return nil
}

func (g *Gate) violation(deviceID, message string) error {
	return xerr.New(xerr.KindSafetyViolation, deviceID, message)
}
