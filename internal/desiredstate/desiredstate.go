// Package desiredstate loads and validates the desired-state document: one
// device's target VLANs/ports/settings plus an optional integrity
// checksum (spec §3, §6). Unlike internal/inventory's per-key warnings,
// an unrecognized top-level key here rejects the whole document.
package desiredstate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/xerr"
)

// knownTopLevelKeys are the only keys a desired-state document may carry
// (spec §6: "unknown top-level keys reject the document").
var knownTopLevelKeys = map[string]bool{
	"device_id": true,
	"version":   true,
	"checksum":  true,
	"mode":      true,
	"vlans":     true,
	"ports":     true,
	"settings":  true,
}

type rawL3Interface struct {
	Address string `yaml:"address"`
	Mask    string `yaml:"mask"`
}

type rawVLAN struct {
	Name          string          `yaml:"name"`
	UntaggedPorts []string        `yaml:"untagged_ports"`
	TaggedPorts   []string        `yaml:"tagged_ports"`
	L3            *rawL3Interface `yaml:"l3,omitempty"`
	Action        string          `yaml:"action,omitempty"`
}

type rawPort struct {
	Enabled     bool   `yaml:"enabled"`
	Description string `yaml:"description"`
	Speed       string `yaml:"speed"`
}

type rawDocument struct {
	DeviceID string                 `yaml:"device_id"`
	Version  string                 `yaml:"version"`
	Checksum string                 `yaml:"checksum"`
	Mode     string                 `yaml:"mode"`
	VLANs    map[int]rawVLAN        `yaml:"vlans"`
	Ports    map[string]rawPort     `yaml:"ports"`
	Settings map[string]interface{} `yaml:"settings"`
}

// Load reads and validates the desired-state document at path.
func Load(path string) (*model.DesiredState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindValidation, "", err, fmt.Sprintf("reading desired state %s", path))
	}
	return Parse(data)
}

// Parse decodes raw YAML bytes into a model.DesiredState, rejecting
// unknown top-level keys and, when the document carries a non-empty
// checksum, verifying it against the canonical form (spec §6).
func Parse(data []byte) (*model.DesiredState, error) {
	var loose map[string]interface{}
	if err := yaml.Unmarshal(data, &loose); err != nil {
		return nil, xerr.Wrap(xerr.KindValidation, "", err, "parsing desired state document")
	}
	for key := range loose {
		if !knownTopLevelKeys[key] {
			return nil, xerr.New(xerr.KindValidation, "", fmt.Sprintf("unknown top-level key %q in desired state document", key))
		}
	}

	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, xerr.Wrap(xerr.KindValidation, "", err, "parsing desired state document")
	}

	mode := model.Mode(raw.Mode)
	if mode == "" {
		mode = model.ModePatch
	}
	if mode != model.ModeFull && mode != model.ModePatch {
		return nil, xerr.New(xerr.KindValidation, raw.DeviceID, fmt.Sprintf("unknown mode %q", raw.Mode))
	}

	ds := &model.DesiredState{
		DeviceID: raw.DeviceID,
		Version:  raw.Version,
		Checksum: raw.Checksum,
		Mode:     mode,
		VLANs:    make(map[int]model.VLAN, len(raw.VLANs)),
		Ports:    make(map[string]model.Port, len(raw.Ports)),
		Settings: make(map[string]model.SettingValue, len(raw.Settings)),
	}

	for id, v := range raw.VLANs {
		action := model.VLANAction(v.Action)
		if action == "" {
			action = model.ActionEnsure
		}
		if action != model.ActionEnsure && action != model.ActionAbsent {
			return nil, xerr.New(xerr.KindValidation, raw.DeviceID, fmt.Sprintf("vlan %d: unknown action %q", id, v.Action))
		}
		vlan := model.VLAN{
			ID:            id,
			Name:          v.Name,
			UntaggedPorts: model.NewPortSet(v.UntaggedPorts...),
			TaggedPorts:   model.NewPortSet(v.TaggedPorts...),
			Action:        action,
		}
		if v.L3 != nil {
			vlan.L3 = &model.L3Interface{Address: v.L3.Address, Mask: v.L3.Mask}
		}
		ds.VLANs[id] = vlan
	}

	for id, p := range raw.Ports {
		ds.Ports[id] = model.Port{
			ID:          id,
			Enabled:     p.Enabled,
			Description: p.Description,
			Speed:       model.Speed(p.Speed),
		}
	}

	for k, v := range raw.Settings {
		ds.Settings[k] = v
	}

	if ds.Checksum != "" {
		if err := VerifyChecksum(ds); err != nil {
			return nil, err
		}
	}

	return ds, nil
}

// canonical is the deterministic, order-independent representation hashed
// for the document's checksum: slices in sorted order rather than maps,
// so json.Marshal's output is stable regardless of source map iteration
// order (spec §6: "checksum... sha256 over canonical form").
type canonical struct {
	DeviceID string           `json:"device_id"`
	Mode     string           `json:"mode"`
	VLANs    []canonicalVLAN  `json:"vlans"`
	Ports    []canonicalPort  `json:"ports"`
	Settings []canonicalKV    `json:"settings"`
}

type canonicalVLAN struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	UntaggedPorts []string `json:"untagged_ports"`
	TaggedPorts   []string `json:"tagged_ports"`
	Action        string   `json:"action"`
}

type canonicalPort struct {
	ID          string `json:"id"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
	Speed       string `json:"speed"`
}

type canonicalKV struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

func toCanonical(ds *model.DesiredState) canonical {
	c := canonical{DeviceID: ds.DeviceID, Mode: string(ds.Mode)}

	ids := make([]int, 0, len(ds.VLANs))
	for id := range ds.VLANs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		v := ds.VLANs[id]
		c.VLANs = append(c.VLANs, canonicalVLAN{
			ID:            v.ID,
			Name:          v.Name,
			UntaggedPorts: v.UntaggedPorts.Sorted(),
			TaggedPorts:   v.TaggedPorts.Sorted(),
			Action:        string(v.Action),
		})
	}

	portIDs := make([]string, 0, len(ds.Ports))
	for id := range ds.Ports {
		portIDs = append(portIDs, id)
	}
	sort.Slice(portIDs, func(i, j int) bool { return model.ComparePortIDs(portIDs[i], portIDs[j]) < 0 })
	for _, id := range portIDs {
		p := ds.Ports[id]
		c.Ports = append(c.Ports, canonicalPort{
			ID:          p.ID,
			Enabled:     p.Enabled,
			Description: p.Description,
			Speed:       string(p.Speed),
		})
	}

	keys := make([]string, 0, len(ds.Settings))
	for k := range ds.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.Settings = append(c.Settings, canonicalKV{Key: k, Value: ds.Settings[k]})
	}

	return c
}

// ComputeChecksum returns the hex-encoded sha256 of ds's canonical form.
func ComputeChecksum(ds *model.DesiredState) (string, error) {
	data, err := json.Marshal(toCanonical(ds))
	if err != nil {
		return "", xerr.Wrap(xerr.KindValidation, ds.DeviceID, err, "canonicalizing desired state")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyChecksum recomputes ds's checksum and compares it against
// ds.Checksum, failing if they disagree.
func VerifyChecksum(ds *model.DesiredState) error {
	want, err := ComputeChecksum(ds)
	if err != nil {
		return err
	}
	if want != ds.Checksum {
		return xerr.New(xerr.KindValidation, ds.DeviceID, fmt.Sprintf("checksum mismatch: document has %s, canonical form is %s", ds.Checksum, want))
	}
	return nil
}
