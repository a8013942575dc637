package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/emesix/switchcraft/internal/audit"
	"github.com/emesix/switchcraft/internal/handler/brocade"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/safety"
	"github.com/emesix/switchcraft/internal/transport"
	"github.com/emesix/switchcraft/internal/xerr"
)

func newRegisteredEngine(t *testing.T, gate *safety.Gate, tp *transport.Fake) *ConfigEngine {
	t.Helper()
	audit.SetDefaultLogger(nil)
	e := New(gate)
	e.Register(model.Device{ID: "sw1", Transport: model.TransportBrocadeTelnet}, brocade.New("sw1", tp))
	return e
}

func TestApplyConfigNoopWhenAlreadyConverged(t *testing.T) {
	tp := transport.NewFake("sw1")
	tp.Script["show vlan"] = transport.CommandResult{Output: "VLAN 1, Name DEFAULT-VLAN\nUntagged Ports: None\n", Hint: transport.ExitOK}
	e := newRegisteredEngine(t, nil, tp)

	desired := &model.DesiredState{DeviceID: "sw1", Mode: model.ModePatch}
	rec, err := e.ApplyConfig(context.Background(), "sw1", desired, ApplyOptions{Actor: "alice"})
	if err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	if !rec.Success {
		t.Errorf("rec.Success = false, want true for a no-op apply")
	}
	for _, call := range tp.Calls {
		if strings.Contains(call, "vlan 1") {
			t.Errorf("no-op apply should never touch the wire, got call %q", call)
		}
	}
}

func TestApplyConfigUnregisteredDeviceFails(t *testing.T) {
	e := New(nil)
	_, err := e.ApplyConfig(context.Background(), "ghost", &model.DesiredState{DeviceID: "ghost"}, ApplyOptions{})
	if err == nil {
		t.Fatal("ApplyConfig: want error for unregistered device")
	}
}

func TestApplyConfigEndToEndConvergesAndVerifies(t *testing.T) {
	tp := transport.NewFake("sw1")
	before := "VLAN 1, Name DEFAULT-VLAN\nUntagged Ports: None\n"
	after := "VLAN 1, Name DEFAULT-VLAN\nUntagged Ports: None\n" +
		"VLAN 100, Name Servers\nUntagged Ports: (U1/M1) 5\n"
	tp.Sequence["show vlan"] = []transport.CommandResult{
		{Output: before, Hint: transport.ExitOK},
		{Output: before, Hint: transport.ExitOK},
		{Output: after, Hint: transport.ExitOK},
		{Output: after, Hint: transport.ExitOK},
	}
	e := newRegisteredEngine(t, nil, tp)

	desired := &model.DesiredState{
		DeviceID: "sw1",
		Mode:     model.ModePatch,
		VLANs: map[int]model.VLAN{
			100: {ID: 100, Name: "Servers", UntaggedPorts: model.NewPortSet("1/1/5"), TaggedPorts: model.NewPortSet()},
		},
	}

	rec, err := e.ApplyConfig(context.Background(), "sw1", desired, ApplyOptions{Actor: "alice"})
	if err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	if !rec.Success {
		t.Errorf("rec.Success = false, want true: %s", rec.Error)
	}
	if !containsCall(tp.Calls, "vlan 100 name Servers by port") {
		t.Errorf("Calls = %v, want VLAN 100 creation", tp.Calls)
	}
}

func TestApplyConfigFailsVerificationOnResidualDiff(t *testing.T) {
	tp := transport.NewFake("sw1")
	// "show vlan" never reflects the VLAN 100 creation: every fetch comes
	// back identical, so post-apply verification must see a residual diff
	// even though the executor itself reported success.
	tp.Script["show vlan"] = transport.CommandResult{Output: "VLAN 1, Name DEFAULT-VLAN\nUntagged Ports: None\n", Hint: transport.ExitOK}
	e := newRegisteredEngine(t, nil, tp)

	desired := &model.DesiredState{
		DeviceID: "sw1",
		Mode:     model.ModePatch,
		VLANs: map[int]model.VLAN{
			100: {ID: 100, Name: "Servers", UntaggedPorts: model.NewPortSet("1/1/5"), TaggedPorts: model.NewPortSet()},
		},
	}

	rec, err := e.ApplyConfig(context.Background(), "sw1", desired, ApplyOptions{Actor: "alice"})
	if err == nil {
		t.Fatal("ApplyConfig: want residual-diff verification error")
	}
	var ee *xerr.EngineError
	if !errors.As(err, &ee) || ee.Kind != xerr.KindConflict {
		t.Errorf("err = %v, want a conflict EngineError", err)
	}
	if rec == nil || !rec.Success {
		t.Errorf("the executor's own record should still report success; verification is a separate step")
	}
}

func TestApplyConfigSafetyGateBlocksDisallowedVLAN(t *testing.T) {
	tp := transport.NewFake("sw1")
	tp.Script["show vlan"] = transport.CommandResult{Output: "VLAN 1, Name DEFAULT-VLAN\nUntagged Ports: None\n", Hint: transport.ExitOK}
	profile := safety.DefaultProfile()
	profile.Enabled = true
	gate := safety.NewGate(profile)
	e := newRegisteredEngine(t, gate, tp)

	desired := &model.DesiredState{
		DeviceID: "sw1",
		Mode:     model.ModePatch,
		VLANs: map[int]model.VLAN{
			100: {ID: 100, Name: "Servers", UntaggedPorts: model.NewPortSet("1/1/5"), TaggedPorts: model.NewPortSet()},
		},
	}

	_, err := e.ApplyConfig(context.Background(), "sw1", desired, ApplyOptions{Actor: "alice"})
	if err == nil {
		t.Fatal("ApplyConfig: want safety violation for VLAN 100 outside the default allowed_vlans={999}")
	}
	var ee *xerr.EngineError
	if !errors.As(err, &ee) || ee.Kind != xerr.KindSafetyViolation {
		t.Errorf("err = %v, want a safety-violation EngineError", err)
	}
	for _, call := range tp.Calls {
		if strings.Contains(call, "vlan 100") {
			t.Errorf("safety gate should block before any planner/executor work, got call %q", call)
		}
	}
}

func TestApplyConfigSafetyGateOpensNoConnection(t *testing.T) {
	tp := transport.NewFake("sw1")
	tp.Script["show vlan"] = transport.CommandResult{Output: "VLAN 1, Name DEFAULT-VLAN\nUntagged Ports: None\n", Hint: transport.ExitOK}
	profile := safety.DefaultProfile()
	profile.Enabled = true
	gate := safety.NewGate(profile)
	e := newRegisteredEngine(t, gate, tp)

	desired := &model.DesiredState{
		DeviceID: "sw1",
		Mode:     model.ModePatch,
		VLANs: map[int]model.VLAN{
			100: {ID: 100, Name: "Servers"},
		},
	}

	rec, err := e.ApplyConfig(context.Background(), "sw1", desired, ApplyOptions{Actor: "alice"})
	if err == nil {
		t.Fatal("ApplyConfig: want safety violation")
	}
	if len(tp.Calls) != 0 {
		t.Errorf("Calls = %v, want no connection opened on a HIL violation (spec §8 scenario 5)", tp.Calls)
	}
	if rec == nil || rec.Success {
		t.Fatalf("rec = %+v, want a failed audit record", rec)
	}
}

func TestApplyConfigDeleteVLAN1IsRejectedWithAuditRecord(t *testing.T) {
	tp := transport.NewFake("sw1")
	tp.Script["show vlan"] = transport.CommandResult{Output: "VLAN 1, Name DEFAULT-VLAN\nUntagged Ports: None\n", Hint: transport.ExitOK}
	e := newRegisteredEngine(t, nil, tp)

	desired := &model.DesiredState{
		DeviceID: "sw1",
		Mode:     model.ModePatch,
		VLANs: map[int]model.VLAN{
			1: {ID: 1, Action: model.ActionAbsent},
		},
	}

	rec, err := e.ApplyConfig(context.Background(), "sw1", desired, ApplyOptions{Actor: "alice"})
	if err == nil {
		t.Fatal("ApplyConfig: want a validation error rejecting VLAN 1 deletion")
	}
	var ee *xerr.EngineError
	if !errors.As(err, &ee) || ee.Kind != xerr.KindValidation {
		t.Errorf("err = %v, want a validation EngineError", err)
	}
	if rec == nil || rec.Success {
		t.Fatalf("rec = %+v, want a failed audit record (spec §8 scenario 4)", rec)
	}
	for _, call := range tp.Calls {
		if strings.Contains(call, "no vlan 1") {
			t.Errorf("deleting VLAN 1 must never reach the wire, got call %q", call)
		}
	}
}

func TestApplyConfigDeleteVLANIsNoLongerANoop(t *testing.T) {
	tp := transport.NewFake("sw1")
	before := "VLAN 1, Name DEFAULT-VLAN\nUntagged Ports: None\nVLAN 100, Name Servers\nUntagged Ports: None\n"
	after := "VLAN 1, Name DEFAULT-VLAN\nUntagged Ports: None\n"
	tp.Sequence["show vlan"] = []transport.CommandResult{
		{Output: before, Hint: transport.ExitOK},
		{Output: before, Hint: transport.ExitOK},
		{Output: after, Hint: transport.ExitOK},
		{Output: after, Hint: transport.ExitOK},
	}
	e := newRegisteredEngine(t, nil, tp)

	desired := &model.DesiredState{
		DeviceID: "sw1",
		Mode:     model.ModePatch,
		VLANs: map[int]model.VLAN{
			100: {ID: 100, Action: model.ActionAbsent},
		},
	}

	rec, err := e.ApplyConfig(context.Background(), "sw1", desired, ApplyOptions{Actor: "alice"})
	if err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	if !rec.Success {
		t.Errorf("rec.Success = false, want true: %s", rec.Error)
	}
	if !containsCall(tp.Calls, "no vlan 100") {
		t.Errorf("Calls = %v, want VLAN 100 to have actually been deleted", tp.Calls)
	}
}

func TestApplyConfigCancelledBeforeWriteAborts(t *testing.T) {
	tp := transport.NewFake("sw1")
	e := newRegisteredEngine(t, nil, tp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ApplyConfig(ctx, "sw1", &model.DesiredState{DeviceID: "sw1"}, ApplyOptions{})
	if err == nil {
		t.Fatal("ApplyConfig: want cancellation error")
	}
	var ee *xerr.EngineError
	if !errors.As(err, &ee) || ee.Kind != xerr.KindCancelled {
		t.Errorf("err = %v, want a cancelled EngineError", err)
	}
}

func TestCheckDriftReportsMissingVLAN(t *testing.T) {
	tp := transport.NewFake("sw1")
	tp.Script["show vlan"] = transport.CommandResult{Output: "VLAN 1, Name DEFAULT-VLAN\nUntagged Ports: None\n", Hint: transport.ExitOK}
	e := newRegisteredEngine(t, nil, tp)

	desired := &model.DesiredState{
		DeviceID: "sw1",
		Mode:     model.ModePatch,
		VLANs:    map[int]model.VLAN{100: {ID: 100, Name: "Servers"}},
	}

	report, err := e.CheckDrift(context.Background(), "sw1", desired)
	if err != nil {
		t.Fatalf("CheckDrift: %v", err)
	}
	if report.InSync() {
		t.Error("report.InSync() = true, want drift for missing VLAN 100")
	}
}

func containsCall(calls []string, want string) bool {
	for _, c := range calls {
		if strings.Contains(c, want) {
			return true
		}
	}
	return false
}
