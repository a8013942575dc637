package openwrt

import (
	"testing"

	"github.com/emesix/switchcraft/internal/model"
)

func TestParseUCIShowNetwork(t *testing.T) {
	output := "network.@switch_vlan[0]=switch_vlan\n" +
		"network.@switch_vlan[0].device='switch0'\n" +
		"network.@switch_vlan[0].vlan='1'\n" +
		"network.@switch_vlan[0].ports='0t 1 2 3'\n" +
		"network.@switch_vlan[1]=switch_vlan\n" +
		"network.@switch_vlan[1].device='switch0'\n" +
		"network.@switch_vlan[1].vlan='100'\n" +
		"network.@switch_vlan[1].ports='0t 4t 5'\n"

	vlans, err := ParseUCIShowNetwork(output)
	if err != nil {
		t.Fatalf("ParseUCIShowNetwork: %v", err)
	}
	if len(vlans) != 2 {
		t.Fatalf("got %d vlans, want 2", len(vlans))
	}

	v1 := vlans[1]
	if !v1.TaggedPorts["0"] {
		t.Errorf("vlan 1 tagged should include cpu port 0: %v", v1.TaggedPorts)
	}
	if !v1.UntaggedPorts["1"] || !v1.UntaggedPorts["2"] || !v1.UntaggedPorts["3"] {
		t.Errorf("vlan 1 untagged missing members: %v", v1.UntaggedPorts)
	}

	v100 := vlans[100]
	if !v100.TaggedPorts["4"] || !v100.UntaggedPorts["5"] {
		t.Errorf("vlan 100 members wrong: tagged=%v untagged=%v", v100.TaggedPorts, v100.UntaggedPorts)
	}
}

func TestFormatSwitchVLANPortsPutsCPUPortFirst(t *testing.T) {
	untagged := model.NewPortSet("2", "3")
	tagged := model.NewPortSet("0")
	got := FormatSwitchVLANPorts(untagged, tagged, "0")
	want := "0t 2 3"
	if got != want {
		t.Errorf("FormatSwitchVLANPorts = %q, want %q", got, want)
	}
}

func TestParsePortOperState(t *testing.T) {
	cases := map[string]model.LinkState{
		"up\n":     model.LinkUp,
		"down\n":   model.LinkDown,
		"garbage":  model.LinkUnknown,
	}
	for input, want := range cases {
		if got := ParsePortOperState(input); got != want {
			t.Errorf("ParsePortOperState(%q) = %v, want %v", input, got, want)
		}
	}
}
