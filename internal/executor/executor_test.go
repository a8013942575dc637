package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/emesix/switchcraft/internal/handler/brocade"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/transport"
)

func TestApplyDryRunSkipsWireWrites(t *testing.T) {
	tp := transport.NewFake("sw1")
	h := brocade.New("sw1", tp)
	plan := &model.CommandPlan{MainCommands: []model.Command{{Text: "vlan 100 name Servers by port"}}}

	rec, err := New().Apply(context.Background(), h, plan, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !rec.Success || !rec.DryRun {
		t.Errorf("rec = %+v, want success dry-run record", rec)
	}
	if len(tp.Calls) != 2 { // show vlan, show interfaces brief for GetConfig
		t.Errorf("Calls = %v, want only the before-state fetch", tp.Calls)
	}
}

func TestApplyRecoversFromDualModeRejection(t *testing.T) {
	tp := transport.NewFake("sw1")
	tp.Sequence["untagged ethe 1/1/10"] = []transport.CommandResult{
		{Output: "Please disable dual mode on this port", Hint: transport.ExitError},
		{Output: "", Hint: transport.ExitOK},
	}
	h := brocade.New("sw1", tp)
	plan := &model.CommandPlan{
		MainCommands: []model.Command{{Text: "untagged ethe 1/1/10", Tag: model.TagVLANCreate, EntityID: "1/1/10"}},
	}

	rec, err := New().Apply(context.Background(), h, plan, Options{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !rec.Success {
		t.Fatalf("rec.Success = false, err recorded: %s", rec.Error)
	}
	if len(rec.RecoveryAttempts) != 1 || !strings.Contains(rec.RecoveryAttempts[0], "dual-mode") {
		t.Errorf("RecoveryAttempts = %v, want one dual-mode entry", rec.RecoveryAttempts)
	}
	if !containsAll(tp.Calls, "interface ethe 1/1/10", "no dual-mode") {
		t.Errorf("Calls = %v, want dual-mode clear sequence", tp.Calls)
	}
}

func TestApplyTreatsAlreadyAMemberAsSuccess(t *testing.T) {
	tp := transport.NewFake("sw1")
	tp.Script["tagged ethe 1/2/1"] = transport.CommandResult{Output: "Port is already a member of this vlan", Hint: transport.ExitError}
	h := brocade.New("sw1", tp)
	plan := &model.CommandPlan{MainCommands: []model.Command{{Text: "tagged ethe 1/2/1", EntityID: "1/2/1"}}}

	rec, err := New().Apply(context.Background(), h, plan, Options{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !rec.Success {
		t.Errorf("rec.Success = false, want true (idempotent no-op)")
	}
}

func TestApplyFatalOnInvalidInput(t *testing.T) {
	tp := transport.NewFake("sw1")
	tp.Script["vlan 9999 by port"] = transport.CommandResult{Output: "Invalid input ->9999", Hint: transport.ExitError}
	h := brocade.New("sw1", tp)
	plan := &model.CommandPlan{MainCommands: []model.Command{{Text: "vlan 9999 by port"}}}

	rec, err := New().Apply(context.Background(), h, plan, Options{})
	if err == nil {
		t.Fatal("Apply: want error on invalid input")
	}
	if rec.Success {
		t.Errorf("rec.Success = true, want false")
	}
}

func TestApplyRollsBackOnExhaustedRecovery(t *testing.T) {
	tp := transport.NewFake("sw1")
	tp.Script["vlan 100 name Servers by port"] = transport.CommandResult{Output: "unrecognized command", Hint: transport.ExitError}
	h := brocade.New("sw1", tp)
	plan := &model.CommandPlan{
		MainCommands:     []model.Command{{Text: "vlan 100 name Servers by port"}},
		RollbackCommands: []model.Command{{Text: "no vlan 100"}},
	}

	rec, err := New().Apply(context.Background(), h, plan, Options{RollbackOnError: true})
	if err == nil {
		t.Fatal("Apply: want error")
	}
	if rec.Success {
		t.Errorf("rec.Success = true, want false")
	}
	if !containsAll(tp.Calls, "no vlan 100") {
		t.Errorf("Calls = %v, want rollback command issued", tp.Calls)
	}
}

func containsAll(calls []string, want ...string) bool {
	for _, w := range want {
		found := false
		for _, c := range calls {
			if strings.Contains(c, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
