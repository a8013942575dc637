// Package inventory loads the device inventory document: a mapping from
// device id to connection metadata (spec §6). It is consumed by callers
// that build handlers/transports and register them with
// internal/engine — inventory itself owns no I/O beyond reading and
// validating the document.
package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/emesix/switchcraft/internal/logx"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/xerr"
)

// VendorType names the device family in the inventory document's "type"
// field. This is distinct from model.TransportKind: Zyxel devices share
// one VendorType across two transports (CLI and HTTPS), selected by
// Protocol.
type VendorType string

const (
	VendorBrocade VendorType = "brocade"
	VendorZyxel   VendorType = "zyxel"
	VendorOpenWrt VendorType = "openwrt"
)

// Protocol names the inventory document's "protocol" field.
type Protocol string

const (
	ProtocolTelnet Protocol = "telnet"
	ProtocolSSH    Protocol = "ssh"
	ProtocolHTTPS  Protocol = "https"
)

// Entry is one device's resolved inventory record.
type Entry struct {
	DeviceID               string
	Type                   VendorType
	Protocol               Protocol
	Host                   string
	Port                   int
	Username               string
	PasswordEnv            string
	EnablePasswordRequired bool
	Capabilities           model.Capabilities

	// Transport is Type+Protocol resolved to the engine's vendor-neutral
	// TransportKind.
	Transport model.TransportKind
}

// ToDevice projects the entry into the model.Device the engine registers
// handlers against.
func (e *Entry) ToDevice() model.Device {
	return model.Device{
		ID:                     e.DeviceID,
		Transport:              e.Transport,
		Host:                   e.Host,
		Port:                   e.Port,
		CredentialEnv:          e.PasswordEnv,
		EnablePasswordRequired: e.EnablePasswordRequired,
		Capabilities:           e.Capabilities,
	}
}

// rawCapabilities mirrors model.Capabilities for YAML decoding; the model
// package carries no I/O concerns of its own (spec §3).
type rawCapabilities struct {
	SupportsBatch       bool `yaml:"supports_batch"`
	SupportsSCPConfig   bool `yaml:"supports_scp_config"`
	SupportsRollback    bool `yaml:"supports_rollback"`
	WriteMemoryRequired bool `yaml:"write_memory_required"`
}

func (c rawCapabilities) toModel() model.Capabilities {
	return model.Capabilities{
		SupportsBatch:       c.SupportsBatch,
		SupportsSCPConfig:   c.SupportsSCPConfig,
		SupportsRollback:    c.SupportsRollback,
		WriteMemoryRequired: c.WriteMemoryRequired,
	}
}

type rawEntry struct {
	Type                   string           `yaml:"type"`
	Host                   string           `yaml:"host"`
	Port                   int              `yaml:"port"`
	Protocol               string           `yaml:"protocol"`
	Username               string           `yaml:"username"`
	PasswordEnv            string           `yaml:"password_env"`
	EnablePasswordRequired bool             `yaml:"enable_password_required"`
	Capabilities           rawCapabilities  `yaml:"capabilities"`
}

// knownInventoryKeys is the top-level key set per device entry. Anything
// else is an unknown key, warned about but not fatal (spec §6).
var knownInventoryKeys = map[string]bool{
	"type":                     true,
	"host":                     true,
	"port":                     true,
	"protocol":                 true,
	"username":                 true,
	"password_env":             true,
	"enable_password_required": true,
	"capabilities":             true,
}

// Load reads and validates the inventory document at path: a YAML mapping
// from device id to {type, host, port, protocol, username, password_env,
// enable_password_required, capabilities}. Unknown per-device keys are
// logged as warnings; an unknown "type" is fatal (spec §6).
func Load(path string) (map[string]*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindValidation, "", err, fmt.Sprintf("reading inventory %s", path))
	}
	return Parse(data)
}

// Parse decodes raw YAML bytes into inventory entries, applying the same
// unknown-key/unknown-type rules as Load.
func Parse(data []byte) (map[string]*Entry, error) {
	var loose map[string]map[string]interface{}
	if err := yaml.Unmarshal(data, &loose); err != nil {
		return nil, xerr.Wrap(xerr.KindValidation, "", err, "parsing inventory document")
	}
	for deviceID, fields := range loose {
		for key := range fields {
			if !knownInventoryKeys[key] {
				logx.Logger.Warnf("inventory: device %q has unknown key %q", deviceID, key)
			}
		}
	}

	var raw map[string]rawEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, xerr.Wrap(xerr.KindValidation, "", err, "parsing inventory document")
	}

	entries := make(map[string]*Entry, len(raw))
	for deviceID, r := range raw {
		vendor := VendorType(r.Type)
		proto := Protocol(r.Protocol)
		transport, err := resolveTransport(vendor, proto)
		if err != nil {
			return nil, xerr.New(xerr.KindValidation, deviceID, err.Error())
		}
		entries[deviceID] = &Entry{
			DeviceID:               deviceID,
			Type:                   vendor,
			Protocol:               proto,
			Host:                   r.Host,
			Port:                   r.Port,
			Username:               r.Username,
			PasswordEnv:            r.PasswordEnv,
			EnablePasswordRequired: r.EnablePasswordRequired,
			Capabilities:           r.Capabilities.toModel(),
			Transport:              transport,
		}
	}
	return entries, nil
}

// resolveTransport maps a vendor/protocol pair to the engine's
// TransportKind, rejecting any combination the module doesn't support.
// An unrecognized vendor type is always fatal (spec §6); an unrecognized
// protocol for a known vendor is fatal the same way, since it leaves no
// transport to build.
func resolveTransport(vendor VendorType, proto Protocol) (model.TransportKind, error) {
	switch vendor {
	case VendorBrocade:
		if proto == ProtocolTelnet {
			return model.TransportBrocadeTelnet, nil
		}
	case VendorZyxel:
		switch proto {
		case ProtocolSSH:
			return model.TransportZyxelCLI, nil
		case ProtocolHTTPS:
			return model.TransportZyxelHTTPS, nil
		}
	case VendorOpenWrt:
		if proto == ProtocolSSH {
			return model.TransportOpenWrtSSH, nil
		}
	default:
		return "", fmt.Errorf("unknown device type %q", vendor)
	}
	return "", fmt.Errorf("unsupported protocol %q for device type %q", proto, vendor)
}
