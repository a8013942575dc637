// Package drift compares a stored DesiredState against a freshly fetched
// DeviceConfig and reports per-entity verdicts (spec §4.6). It is pure and
// side-effect-free: callers own the fetch.
package drift

import (
	"strconv"

	"github.com/emesix/switchcraft/internal/model"
)

// Verdict classifies one entity's drift status.
type Verdict string

const (
	InSync  Verdict = "in-sync"
	Missing Verdict = "missing" // desired but not present on the device
	Extra   Verdict = "extra"   // present on the device but not desired (full mode only)
	Differs Verdict = "differs" // present on both but attributes disagree
)

// Entry is one entity's drift result.
type Entry struct {
	Kind     string // "vlan", "port", "setting"
	ID       string
	Verdict  Verdict
	Expected interface{} `json:",omitempty"`
	Observed interface{} `json:",omitempty"`
}

// Report is the full drift result for one device.
type Report struct {
	DeviceID string
	Entries  []Entry
}

// InSync reports whether every entry is in sync.
func (r *Report) InSync() bool {
	for _, e := range r.Entries {
		if e.Verdict != InSync {
			return false
		}
	}
	return true
}

// Compute compares desired against observed, honoring desired.Mode for
// whether observed-only entities count as "extra" (spec §3, §4.6:
// "extra... only meaningful in full mode").
func Compute(desired *model.DesiredState, observed *model.DeviceConfig) *Report {
	report := &Report{DeviceID: desired.DeviceID}

	target := desired.ToDeviceConfig()

	seenVLANs := make(map[int]bool, len(desired.VLANs))
	for id, want := range desired.VLANs {
		seenVLANs[id] = true
		got, ok := observed.VLANs[id]

		if want.Action == model.ActionAbsent {
			if !ok {
				report.Entries = append(report.Entries, Entry{Kind: "vlan", ID: idString(id), Verdict: InSync})
			} else {
				report.Entries = append(report.Entries, Entry{Kind: "vlan", ID: idString(id), Verdict: Differs, Observed: got})
			}
			continue
		}

		if !ok {
			report.Entries = append(report.Entries, Entry{Kind: "vlan", ID: idString(id), Verdict: Missing, Expected: want})
			continue
		}
		if want.Equal(got) {
			report.Entries = append(report.Entries, Entry{Kind: "vlan", ID: idString(id), Verdict: InSync})
		} else {
			report.Entries = append(report.Entries, Entry{Kind: "vlan", ID: idString(id), Verdict: Differs, Expected: want, Observed: got})
		}
	}
	if desired.Mode == model.ModeFull {
		for id, got := range observed.VLANs {
			if seenVLANs[id] || model.IsProtected(id) {
				continue
			}
			report.Entries = append(report.Entries, Entry{Kind: "vlan", ID: idString(id), Verdict: Extra, Observed: got})
		}
	}

	seenPorts := make(map[string]bool, len(target.Ports))
	for id, want := range target.Ports {
		seenPorts[id] = true
		got, ok := observed.Ports[id]
		if !ok {
			report.Entries = append(report.Entries, Entry{Kind: "port", ID: id, Verdict: Missing, Expected: want})
			continue
		}
		if portManagedAttrsEqual(want, got) {
			report.Entries = append(report.Entries, Entry{Kind: "port", ID: id, Verdict: InSync})
		} else {
			report.Entries = append(report.Entries, Entry{Kind: "port", ID: id, Verdict: Differs, Expected: want, Observed: got})
		}
	}
	if desired.Mode == model.ModeFull {
		for id, got := range observed.Ports {
			if seenPorts[id] {
				continue
			}
			report.Entries = append(report.Entries, Entry{Kind: "port", ID: id, Verdict: Extra, Observed: got})
		}
	}

	seenSettings := make(map[string]bool, len(target.Settings))
	for k, want := range target.Settings {
		seenSettings[k] = true
		got, ok := observed.Settings[k]
		if !ok {
			report.Entries = append(report.Entries, Entry{Kind: "setting", ID: k, Verdict: Missing, Expected: want})
			continue
		}
		if want == got {
			report.Entries = append(report.Entries, Entry{Kind: "setting", ID: k, Verdict: InSync})
		} else {
			report.Entries = append(report.Entries, Entry{Kind: "setting", ID: k, Verdict: Differs, Expected: want, Observed: got})
		}
	}
	if desired.Mode == model.ModeFull {
		for k, got := range observed.Settings {
			if seenSettings[k] {
				continue
			}
			report.Entries = append(report.Entries, Entry{Kind: "setting", ID: k, Verdict: Extra, Observed: got})
		}
	}

	return report
}

func portManagedAttrsEqual(a, b model.Port) bool {
	return a.Enabled == b.Enabled && a.Description == b.Description && a.Speed == b.Speed
}

func idString(id int) string {
	return strconv.Itoa(id)
}
