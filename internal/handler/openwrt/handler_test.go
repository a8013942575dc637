package openwrt

import (
	"context"
	"testing"

	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/transport"
)

func TestCreateVLANRewritesNetworkFile(t *testing.T) {
	tp := transport.NewFake("sw1")
	tp.Files[networkConfigPath] = []byte(sampleNetworkConfig)

	h := New("sw1", tp, "0")
	cmds, err := h.CreateVLAN(context.Background(), vlanFixture(100, []string{"4", "5"}, nil))
	if err != nil {
		t.Fatalf("CreateVLAN: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}

	if _, err := h.Execute(context.Background(), cmds[0]); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	vlans, err := ParseUCIShowNetwork(uciShowFromFile(string(tp.Files[networkConfigPath])))
	if err != nil {
		t.Fatalf("parsing rewritten network file: %v", err)
	}
	if _, ok := vlans[100]; !ok {
		t.Errorf("expected vlan 100 after create, got %v", vlans)
	}
	if _, ok := vlans[1]; !ok {
		t.Errorf("expected vlan 1 to survive create, got %v", vlans)
	}
}

func TestDeleteVLANRejectsProtected(t *testing.T) {
	tp := transport.NewFake("sw1")
	tp.Files[networkConfigPath] = []byte(sampleNetworkConfig)
	h := New("sw1", tp, "0")
	if _, err := h.DeleteVLAN(context.Background(), 1); err == nil {
		t.Error("expected error deleting VLAN 1")
	}
}

func TestConfigurePortEmitsUCISetAndCommit(t *testing.T) {
	tp := transport.NewFake("sw1")
	h := New("sw1", tp, "0")
	before := model.Port{ID: "lan1", Enabled: true}
	after := model.Port{ID: "lan1", Enabled: false}
	cmds, err := h.ConfigurePort(context.Background(), before, after)
	if err != nil {
		t.Fatalf("ConfigurePort: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want 2 (set + commit)", len(cmds))
	}
	if cmds[len(cmds)-1].Text != "uci commit network" {
		t.Errorf("last command = %q, want commit", cmds[len(cmds)-1].Text)
	}
}

func TestConfigurePortNoChangesEmitsNothing(t *testing.T) {
	h := New("sw1", transport.NewFake("sw1"), "0")
	p := model.Port{ID: "lan1", Enabled: true, Description: "uplink"}
	cmds, err := h.ConfigurePort(context.Background(), p, p)
	if err != nil {
		t.Fatalf("ConfigurePort: %v", err)
	}
	if len(cmds) != 0 {
		t.Errorf("got %d commands, want 0", len(cmds))
	}
}
