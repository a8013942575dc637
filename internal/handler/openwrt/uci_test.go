package openwrt

import (
	"strings"
	"testing"

	"github.com/emesix/switchcraft/internal/model"
)

func vlanFixture(id int, untagged, tagged []string) model.VLAN {
	return model.VLAN{ID: id, UntaggedPorts: model.NewPortSet(untagged...), TaggedPorts: model.NewPortSet(tagged...)}
}

func TestWriteFileCommandRoundTrip(t *testing.T) {
	text := writeFileCommand("/etc/config/network", "config switch_vlan\n\toption vlan '100'\n")
	path, content, ok := parseWriteFileCommand(text)
	if !ok {
		t.Fatal("parseWriteFileCommand: ok = false")
	}
	if path != "/etc/config/network" {
		t.Errorf("path = %q", path)
	}
	if !strings.Contains(content, "option vlan '100'") {
		t.Errorf("content = %q", content)
	}
}

func TestParseWriteFileCommandRejectsOtherText(t *testing.T) {
	if _, _, ok := parseWriteFileCommand("uci commit network"); ok {
		t.Error("expected ok = false for a plain uci command")
	}
}

const sampleNetworkConfig = `
config interface 'loopback'
	option device 'lo'
	option proto 'static'

config switch_vlan
	option device 'switch0'
	option vlan '1'
	option ports '0t 1 2 3'
`

func TestAppendAndRemoveSwitchVLANSection(t *testing.T) {
	vlans, err := ParseUCIShowNetwork(uciShowFromFile(sampleNetworkConfig))
	if err != nil {
		t.Fatalf("ParseUCIShowNetwork: %v", err)
	}
	if _, ok := vlans[1]; !ok {
		t.Fatalf("expected vlan 1 in baseline config, got %v", vlans)
	}

	appended := appendUCISection(sampleNetworkConfig, buildSwitchVLANSection(
		vlanFixture(100, []string{"4"}, nil), "0", false))
	vlans, err = ParseUCIShowNetwork(uciShowFromFile(appended))
	if err != nil {
		t.Fatalf("ParseUCIShowNetwork after append: %v", err)
	}
	if _, ok := vlans[100]; !ok {
		t.Fatalf("expected vlan 100 after append, got %v", vlans)
	}
	if _, ok := vlans[1]; !ok {
		t.Fatalf("expected vlan 1 to survive append, got %v", vlans)
	}

	removed := removeSwitchVLANSection(appended, 1)
	vlans, err = ParseUCIShowNetwork(uciShowFromFile(removed))
	if err != nil {
		t.Fatalf("ParseUCIShowNetwork after remove: %v", err)
	}
	if _, ok := vlans[1]; ok {
		t.Errorf("expected vlan 1 removed, got %v", vlans)
	}
	if _, ok := vlans[100]; !ok {
		t.Errorf("expected vlan 100 to survive removal of vlan 1, got %v", vlans)
	}
}

func TestRejectEmptyUpload(t *testing.T) {
	if err := rejectEmptyUpload("   \n\t\n"); err == nil {
		t.Error("expected error for whitespace-only content")
	}
	if err := rejectEmptyUpload(sampleNetworkConfig); err != nil {
		t.Errorf("unexpected error for non-empty content: %v", err)
	}
}

func TestPortIDsFromUCI(t *testing.T) {
	ids := portIDsFromUCI(uciShowFromFile(sampleNetworkConfig))
	want := map[string]bool{"0": true, "1": true, "2": true, "3": true}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want 4 ids", ids)
	}
	for _, id := range ids {
		if !want[id] {
			t.Errorf("unexpected port id %q", id)
		}
	}
}
