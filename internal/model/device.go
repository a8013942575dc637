// Package model defines the vendor-neutral data types shared by every layer
// of the engine: Device, VLAN, Port, DeviceConfig, DesiredState, Diff,
// CommandPlan, AuditRecord (see spec §3). Types here carry no I/O.
package model

// TransportKind names one of the four supported management surfaces.
type TransportKind string

const (
	TransportBrocadeTelnet TransportKind = "brocade-telnet"
	TransportZyxelCLI      TransportKind = "zyxel-cli"
	TransportOpenWrtSSH    TransportKind = "openwrt-ssh"
	TransportZyxelHTTPS    TransportKind = "zyxel-https"
)

// Capabilities describes what a device's transport/handler combination
// supports, used by the planner and executor to decide strategy.
type Capabilities struct {
	SupportsBatch        bool
	SupportsSCPConfig    bool
	SupportsRollback     bool
	WriteMemoryRequired  bool
}

// Device is immutable identity + connection metadata, built from inventory
// at startup and never mutated by the engine.
type Device struct {
	ID                     string
	Transport              TransportKind
	Host                   string
	Port                   int
	CredentialEnv          string // env var name holding the password
	EnablePasswordRequired bool
	Capabilities           Capabilities
}

// Reserved Brocade VLAN ids that may never be created or deleted by the
// engine (spec §3).
var ReservedBrocadeVLANs = map[int]bool{
	4087: true,
	4090: true,
	4093: true,
	4094: true,
}

// ProtectedVLANID is the undeletable default VLAN.
const ProtectedVLANID = 1

// MinVLANID and MaxVLANID bound the legal VLAN id range (inclusive).
const (
	MinVLANID = 1
	MaxVLANID = 4094
)
