package planner

import (
	"context"
	"testing"

	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/transport"
	"github.com/emesix/switchcraft/internal/handler/zyxel"
	"github.com/emesix/switchcraft/internal/handler/openwrt"
)

func TestZyxelPlanEmitsHTTPSCommandWithoutSaveStep(t *testing.T) {
	h := zyxel.New("sw1", transport.NewFake("sw1"), transport.NewFake("sw1"))
	d := &model.Diff{VLANsToCreate: []model.VLAN{{ID: 50, Name: "Guests"}}}

	plan, err := For(model.TransportZyxelCLI).Plan(context.Background(), h, model.NewDeviceConfig("sw1"), d, Options{SaveOnSuccess: true})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.MainCommands) != 1 {
		t.Fatalf("MainCommands = %v, want 1", texts(plan.MainCommands))
	}
	if len(plan.PostCommands) != 0 {
		t.Errorf("zyxel plan should not add a save step, got %v", texts(plan.PostCommands))
	}
}

func TestOpenWrtPlanAppendsReloadAfterVLANChange(t *testing.T) {
	tp := transport.NewFake("sw1")
	tp.Files["/etc/config/network"] = []byte("\nconfig interface 'lan'\n\toption device 'br-lan'\n")
	h := openwrt.New("sw1", tp, "0")
	d := &model.Diff{VLANsToCreate: []model.VLAN{{ID: 60, UntaggedPorts: model.NewPortSet("1")}}}

	plan, err := For(model.TransportOpenWrtSSH).Plan(context.Background(), h, model.NewDeviceConfig("sw1"), d, Options{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.PostCommands) != 1 || plan.PostCommands[0].Text != "/etc/init.d/network reload" {
		t.Errorf("PostCommands = %v, want a network reload", texts(plan.PostCommands))
	}
}
