// Package diff implements the engine's pure comparison step: given two
// normalized DeviceConfig values it produces a Diff describing exactly
// what would need to change, with no I/O (spec §4.3).
package diff

import (
	"sort"

	"github.com/emesix/switchcraft/internal/model"
)

// Compute compares before (the freshly fetched device state) against after
// (the desired state projected to a DeviceConfig) and returns the Diff
// needed to move before toward after. mode governs whether entities
// present on the device but absent from after are scheduled for deletion
// (model.ModeFull) or left untouched (model.ModePatch). The full-mode
// deletion of unlisted VLANs never schedules a protected VLAN (VLAN 1); an
// explicit absent entry for VLAN 1 is still scheduled, and the handler's
// DeleteVLAN rejects it with a validation error.
func Compute(before, after *model.DeviceConfig, mode model.Mode) *model.Diff {
	d := &model.Diff{}

	for _, id := range after.SortedVLANIDs() {
		desired := after.VLANs[id]
		observed, existed := before.VLANs[id]

		// An explicit absent intent schedules a delete regardless of mode
		// (spec §3); protected-VLAN rejection is the handler's job (its
		// DeleteVLAN surfaces the validation error), not the differ's, so
		// it is never skipped here the way the full-mode unlisted-deletion
		// loop below skips protected VLANs.
		if desired.Action == model.ActionAbsent {
			if existed {
				d.VLANsToDelete = append(d.VLANsToDelete, observed)
			}
			continue
		}

		switch {
		case !existed:
			d.VLANsToCreate = append(d.VLANsToCreate, desired)
		case !observed.Equal(desired):
			d.VLANsToModify = append(d.VLANsToModify, model.VLANModification{Before: observed, After: desired})
		}
	}

	if mode == model.ModeFull {
		for _, id := range before.SortedVLANIDs() {
			if model.IsProtected(id) {
				continue
			}
			if _, stillDesired := after.VLANs[id]; !stillDesired {
				d.VLANsToDelete = append(d.VLANsToDelete, before.VLANs[id])
			}
		}
	}

	for _, id := range after.SortedPortIDs() {
		desired := after.Ports[id]
		observed, existed := before.Ports[id]
		if !existed {
			continue
		}
		if portManagedAttrsDiffer(observed, desired) {
			d.PortsToConfigure = append(d.PortsToConfigure, model.PortChange{Before: observed, After: desired})
		}
	}

	for _, key := range sortedSettingKeys(after.Settings) {
		desired := after.Settings[key]
		observed, existed := before.Settings[key]
		if !existed || observed != desired {
			d.SettingsToChange = append(d.SettingsToChange, model.SettingChange{Key: key, Before: observed, After: desired})
		}
	}
	if mode == model.ModeFull {
		for _, key := range sortedSettingKeys(before.Settings) {
			if _, stillDesired := after.Settings[key]; !stillDesired {
				d.SettingsToChange = append(d.SettingsToChange, model.SettingChange{Key: key, Before: before.Settings[key], After: nil})
			}
		}
	}

	return d
}

func portManagedAttrsDiffer(a, b model.Port) bool {
	return a.Enabled != b.Enabled || a.Description != b.Description || a.Speed != b.Speed
}

func sortedSettingKeys(m map[string]model.SettingValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
