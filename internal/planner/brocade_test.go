package planner

import (
	"context"
	"testing"

	"github.com/emesix/switchcraft/internal/handler/brocade"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/transport"
)

// TestPlanCreateVLANClearsOldUntaggedMembershipFirst mirrors the reference
// scenario: VLAN 1 owns 1/1/1-24 untagged; the new VLAN 100 wants
// 1/1/5-8 untagged and 1/2/1 tagged. The plan must clear the conflicting
// range from VLAN 1 before assigning it to VLAN 100.
func TestPlanCreateVLANClearsOldUntaggedMembershipFirst(t *testing.T) {
	before := model.NewDeviceConfig("sw1")
	before.VLANs[1] = model.VLAN{ID: 1, UntaggedPorts: portRange(1, 1, 1, 24)}
	before.VLANs[254] = model.VLAN{ID: 254}

	h := brocade.New("sw1", transport.NewFake("sw1"))

	d := &model.Diff{
		VLANsToCreate: []model.VLAN{{
			ID:            100,
			Name:          "Servers",
			UntaggedPorts: model.NewPortSet("1/1/5", "1/1/6", "1/1/7", "1/1/8"),
			TaggedPorts:   model.NewPortSet("1/2/1"),
		}},
	}

	plan, err := For(model.TransportBrocadeTelnet).Plan(context.Background(), h, before, d, Options{SaveOnSuccess: true})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	wantPre := []string{"vlan 1", "no untagged ethe 1/1/5 to 1/1/8", "exit"}
	if !textsEqual(plan.PreCommands, wantPre) {
		t.Errorf("PreCommands = %v, want %v", texts(plan.PreCommands), wantPre)
	}

	wantMain := []string{
		"vlan 100 name Servers by port",
		"untagged ethe 1/1/5 to 1/1/8",
		"tagged ethe 1/2/1",
		"exit",
	}
	if !textsEqual(plan.MainCommands, wantMain) {
		t.Errorf("MainCommands = %v, want %v", texts(plan.MainCommands), wantMain)
	}

	wantPost := []string{"write memory"}
	if !textsEqual(plan.PostCommands, wantPost) {
		t.Errorf("PostCommands = %v, want %v", texts(plan.PostCommands), wantPost)
	}
}

func TestPlanDeleteVLANRollbackRecreatesIt(t *testing.T) {
	h := brocade.New("sw1", transport.NewFake("sw1"))
	d := &model.Diff{
		VLANsToDelete: []model.VLAN{{ID: 200, Name: "Old", UntaggedPorts: model.NewPortSet("1/1/9")}},
	}
	plan, err := For(model.TransportBrocadeTelnet).Plan(context.Background(), h, model.NewDeviceConfig("sw1"), d, Options{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.MainCommands) == 0 || plan.MainCommands[0].Text != "no vlan 200" {
		t.Errorf("MainCommands = %v, want first entry 'no vlan 200'", texts(plan.MainCommands))
	}
	if len(plan.RollbackCommands) == 0 || plan.RollbackCommands[0].Text != "vlan 200 name Old by port" {
		t.Errorf("RollbackCommands = %v, want to recreate VLAN 200", texts(plan.RollbackCommands))
	}
}

// TestPlanModifyRemovesStaleMembersBeforeAddingNew covers VLANsToModify:
// Brocade's CreateVLAN only ever adds members, so a modify needs its own
// remove-old/add-new commands rather than reusing CreateVLAN wholesale.
func TestPlanModifyRemovesStaleMembersBeforeAddingNew(t *testing.T) {
	h := brocade.New("sw1", transport.NewFake("sw1"))
	before := model.NewDeviceConfig("sw1")

	d := &model.Diff{
		VLANsToModify: []model.VLANModification{{
			Before: model.VLAN{ID: 100, Name: "Servers", UntaggedPorts: model.NewPortSet("1/1/5", "1/1/6")},
			After:  model.VLAN{ID: 100, Name: "Servers", UntaggedPorts: model.NewPortSet("1/1/6", "1/1/7")},
		}},
	}

	plan, err := For(model.TransportBrocadeTelnet).Plan(context.Background(), h, before, d, Options{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	wantMain := []string{
		"vlan 100 name Servers by port",
		"no untagged ethe 1/1/5",
		"untagged ethe 1/1/7",
		"exit",
	}
	if !textsEqual(plan.MainCommands, wantMain) {
		t.Errorf("MainCommands = %v, want %v", texts(plan.MainCommands), wantMain)
	}
}

func portRange(unit, module, from, to int) model.PortSet {
	s := model.NewPortSet()
	for p := from; p <= to; p++ {
		s[model.FormatBrocadePortID(unit, module, p)] = true
	}
	return s
}

func texts(cmds []model.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Text
	}
	return out
}

func textsEqual(cmds []model.Command, want []string) bool {
	got := texts(cmds)
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
