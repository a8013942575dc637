package model

import "testing"

func TestVLANEqualIgnoresPortInsertionOrder(t *testing.T) {
	a := VLAN{ID: 100, Name: "Servers", UntaggedPorts: NewPortSet("1/1/5", "1/1/6"), TaggedPorts: NewPortSet("1/2/1")}
	b := VLAN{ID: 100, Name: "Servers", UntaggedPorts: NewPortSet("1/1/6", "1/1/5"), TaggedPorts: NewPortSet("1/2/1")}
	if !a.Equal(b) {
		t.Error("VLANs with same port sets in different order should be equal")
	}
}

func TestVLANEqualDetectsNameDifference(t *testing.T) {
	a := VLAN{ID: 100, Name: "Servers"}
	b := VLAN{ID: 100, Name: "Workstations"}
	if a.Equal(b) {
		t.Error("VLANs with different names should not be equal")
	}
}

func TestVLANEqualComparesL3Interface(t *testing.T) {
	a := VLAN{ID: 10, L3: &L3Interface{Address: "10.0.0.1", Mask: "255.255.255.0"}}
	b := VLAN{ID: 10, L3: &L3Interface{Address: "10.0.0.1", Mask: "255.255.255.0"}}
	if !a.Equal(b) {
		t.Error("VLANs with identical L3 interfaces should be equal")
	}
	c := VLAN{ID: 10, L3: nil}
	if a.Equal(c) {
		t.Error("VLAN with L3 set should not equal VLAN without one")
	}
}

func TestVLANEqualIgnoresAction(t *testing.T) {
	a := VLAN{ID: 100, Action: ActionEnsure}
	b := VLAN{ID: 100, Action: ActionAbsent}
	if !a.Equal(b) {
		t.Error("Action should not affect device-observable identity")
	}
}

func TestProtectedAndReservedVLANs(t *testing.T) {
	if !IsProtected(1) {
		t.Error("VLAN 1 must be protected")
	}
	for _, id := range []int{4087, 4090, 4093, 4094} {
		if !IsReserved(id) {
			t.Errorf("VLAN %d must be reserved", id)
		}
	}
	if IsReserved(100) {
		t.Error("VLAN 100 should not be reserved")
	}
}

func TestValidVLANIDBoundaries(t *testing.T) {
	cases := []struct {
		id   int
		want bool
	}{
		{0, false},
		{1, true},
		{4094, true},
		{4095, false},
		{4096, false},
		{-1, false},
	}
	for _, c := range cases {
		if got := ValidVLANID(c.id); got != c.want {
			t.Errorf("ValidVLANID(%d) = %v, want %v", c.id, got, c.want)
		}
	}
}
