package drift

import (
	"testing"

	"github.com/emesix/switchcraft/internal/model"
)

func verdictFor(r *Report, kind, id string) Verdict {
	for _, e := range r.Entries {
		if e.Kind == kind && e.ID == id {
			return e.Verdict
		}
	}
	return ""
}

func TestComputeInSync(t *testing.T) {
	desired := &model.DesiredState{
		DeviceID: "sw1",
		Mode:     model.ModePatch,
		VLANs:    map[int]model.VLAN{100: {ID: 100, Name: "Servers"}},
	}
	observed := model.NewDeviceConfig("sw1")
	observed.VLANs[100] = model.VLAN{ID: 100, Name: "Servers"}

	r := Compute(desired, observed)
	if !r.InSync() {
		t.Errorf("report = %+v, want fully in-sync", r.Entries)
	}
}

func TestComputeMissingVLAN(t *testing.T) {
	desired := &model.DesiredState{
		DeviceID: "sw1",
		Mode:     model.ModePatch,
		VLANs:    map[int]model.VLAN{100: {ID: 100, Name: "Servers"}},
	}
	observed := model.NewDeviceConfig("sw1")

	r := Compute(desired, observed)
	if verdictFor(r, "vlan", "100") != Missing {
		t.Errorf("verdict = %q, want missing", verdictFor(r, "vlan", "100"))
	}
}

func TestComputeDiffersVLAN(t *testing.T) {
	desired := &model.DesiredState{
		DeviceID: "sw1",
		Mode:     model.ModePatch,
		VLANs:    map[int]model.VLAN{100: {ID: 100, Name: "Servers"}},
	}
	observed := model.NewDeviceConfig("sw1")
	observed.VLANs[100] = model.VLAN{ID: 100, Name: "Wrong"}

	r := Compute(desired, observed)
	if verdictFor(r, "vlan", "100") != Differs {
		t.Errorf("verdict = %q, want differs", verdictFor(r, "vlan", "100"))
	}
}

func TestComputePatchModeIgnoresExtraVLANs(t *testing.T) {
	desired := &model.DesiredState{DeviceID: "sw1", Mode: model.ModePatch}
	observed := model.NewDeviceConfig("sw1")
	observed.VLANs[200] = model.VLAN{ID: 200, Name: "Unmanaged"}

	r := Compute(desired, observed)
	if len(r.Entries) != 0 {
		t.Errorf("patch mode should ignore unlisted VLANs, got %+v", r.Entries)
	}
}

func TestComputeFullModeFlagsExtraVLANs(t *testing.T) {
	desired := &model.DesiredState{DeviceID: "sw1", Mode: model.ModeFull}
	observed := model.NewDeviceConfig("sw1")
	observed.VLANs[200] = model.VLAN{ID: 200, Name: "Unmanaged"}

	r := Compute(desired, observed)
	if verdictFor(r, "vlan", "200") != Extra {
		t.Errorf("verdict = %q, want extra", verdictFor(r, "vlan", "200"))
	}
}

func TestComputeFullModeNeverFlagsVLAN1AsExtra(t *testing.T) {
	desired := &model.DesiredState{DeviceID: "sw1", Mode: model.ModeFull}
	observed := model.NewDeviceConfig("sw1")
	observed.VLANs[1] = model.VLAN{ID: 1}

	r := Compute(desired, observed)
	if verdictFor(r, "vlan", "1") != "" {
		t.Errorf("VLAN 1 should never be reported as drift, got %q", verdictFor(r, "vlan", "1"))
	}
}

func TestComputePortDiffers(t *testing.T) {
	desired := &model.DesiredState{
		DeviceID: "sw1",
		Mode:     model.ModePatch,
		Ports:    map[string]model.Port{"1/1/1": {ID: "1/1/1", Enabled: true, Description: "uplink"}},
	}
	observed := model.NewDeviceConfig("sw1")
	observed.Ports["1/1/1"] = model.Port{ID: "1/1/1", Enabled: false, Description: "uplink"}

	r := Compute(desired, observed)
	if verdictFor(r, "port", "1/1/1") != Differs {
		t.Errorf("verdict = %q, want differs", verdictFor(r, "port", "1/1/1"))
	}
}
