package model

import "sort"

// Mode governs how DesiredState treats entities it doesn't mention (spec §3).
type Mode string

const (
	ModeFull  Mode = "full"
	ModePatch Mode = "patch"
)

// SettingValue is a scalar settings value (string, int, bool, or float64
// after YAML/JSON decoding).
type SettingValue = interface{}

// DeviceConfig is the normalized, observed (or desired) configuration for
// one device (spec §3). Equality is structural after normalization.
type DeviceConfig struct {
	DeviceID string
	VLANs    map[int]VLAN
	Ports    map[string]Port
	Settings map[string]SettingValue
}

// NewDeviceConfig builds an empty config for deviceID.
func NewDeviceConfig(deviceID string) *DeviceConfig {
	return &DeviceConfig{
		DeviceID: deviceID,
		VLANs:    make(map[int]VLAN),
		Ports:    make(map[string]Port),
		Settings: make(map[string]SettingValue),
	}
}

// SortedVLANIDs returns the config's VLAN ids in ascending order.
func (c *DeviceConfig) SortedVLANIDs() []int {
	ids := make([]int, 0, len(c.VLANs))
	for id := range c.VLANs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SortedPortIDs returns the config's port ids in canonical tuple order.
func (c *DeviceConfig) SortedPortIDs() []string {
	ids := make([]string, 0, len(c.Ports))
	for id := range c.Ports {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ComparePortIDs(ids[i], ids[j]) < 0 })
	return ids
}

// Equal reports structural equality between two configs: same VLAN set
// (per VLAN.Equal), same port attributes, same settings.
func (c *DeviceConfig) Equal(other *DeviceConfig) bool {
	if other == nil {
		return false
	}
	if len(c.VLANs) != len(other.VLANs) || len(c.Ports) != len(other.Ports) {
		return false
	}
	for id, v := range c.VLANs {
		ov, ok := other.VLANs[id]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	for id, p := range c.Ports {
		op, ok := other.Ports[id]
		if !ok {
			return false
		}
		if p.Enabled != op.Enabled || p.Description != op.Description || p.Speed != op.Speed {
			return false
		}
	}
	if len(c.Settings) != len(other.Settings) {
		return false
	}
	for k, v := range c.Settings {
		if other.Settings[k] != v {
			return false
		}
	}
	return true
}

// DesiredState is a DeviceConfig plus the declarative intent fields that
// govern how the differ treats unlisted entities (spec §3).
type DesiredState struct {
	DeviceID string
	Version  string
	Checksum string // sha256 over the canonical serialization, optional
	Mode     Mode
	VLANs    map[int]VLAN // each entry's Action governs ensure/absent
	Ports    map[string]Port
	Settings map[string]SettingValue
}

// ToDeviceConfig projects the desired state's entity maps into a
// DeviceConfig shape for comparison against an observed config. VLANs with
// Action == ActionAbsent are kept (callers that care about delete intent,
// such as the differ, key off the Action field); callers that only want
// the device's steady-state shape should skip entries with that Action.
func (d *DesiredState) ToDeviceConfig() *DeviceConfig {
	cfg := NewDeviceConfig(d.DeviceID)
	for id, v := range d.VLANs {
		cfg.VLANs[id] = v
	}
	for id, p := range d.Ports {
		cfg.Ports[id] = p
	}
	for k, v := range d.Settings {
		cfg.Settings[k] = v
	}
	return cfg
}
