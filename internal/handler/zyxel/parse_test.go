package zyxel

import "testing"

func TestParseShowVLAN(t *testing.T) {
	output := "VID Name       Untagged        Tagged\n" +
		"1   DEFAULT    1-4,7            ---\n" +
		"100 Servers    10-12,lag1-2     5\n"
	vlans, err := ParseShowVLAN(output)
	if err != nil {
		t.Fatalf("ParseShowVLAN: %v", err)
	}
	if len(vlans) != 2 {
		t.Fatalf("got %d vlans, want 2", len(vlans))
	}

	v1 := vlans[1]
	want := []string{"1", "2", "3", "4", "7"}
	got := v1.UntaggedPorts.Sorted()
	if len(got) != len(want) {
		t.Fatalf("vlan 1 untagged = %v, want %v", got, want)
	}
	if len(v1.TaggedPorts) != 0 {
		t.Errorf("vlan 1 tagged should be empty, got %v", v1.TaggedPorts)
	}

	v100 := vlans[100]
	if !v100.UntaggedPorts["10"] || !v100.UntaggedPorts["lag1"] || !v100.UntaggedPorts["lag2"] {
		t.Errorf("vlan 100 untagged missing expected members: %v", v100.UntaggedPorts)
	}
	if !v100.TaggedPorts["5"] {
		t.Errorf("vlan 100 tagged should contain port 5: %v", v100.TaggedPorts)
	}
}

func TestExpandPortNotationEmptyDash(t *testing.T) {
	ports, err := expandPortNotation("---")
	if err != nil || len(ports) != 0 {
		t.Errorf("expandPortNotation(---) = (%v, %v), want (nil, nil)", ports, err)
	}
}

func TestExpandPortNotationLAGRange(t *testing.T) {
	ports, err := expandPortNotation("lag1-2")
	if err != nil {
		t.Fatalf("expandPortNotation: %v", err)
	}
	want := []string{"lag1", "lag2"}
	if len(ports) != len(want) {
		t.Fatalf("got %v, want %v", ports, want)
	}
	for i := range want {
		if ports[i] != want[i] {
			t.Errorf("ports[%d] = %q, want %q", i, ports[i], want[i])
		}
	}
}
