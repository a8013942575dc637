package brocade

import (
	"context"
	"fmt"
	"strings"

	"github.com/emesix/switchcraft/internal/handler"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/transport"
	"github.com/emesix/switchcraft/internal/util"
	"github.com/emesix/switchcraft/internal/xerr"
)

// Handler drives a Brocade FastIron device over BrocadeTelnet. It owns
// vendor parsing/emission; callers never see raw CLI text (spec §4.2).
type Handler struct {
	deviceID  string
	transport transport.ConfigCapableTransport
	saver     transport.SaveCapableTransport
}

// capableTransport is satisfied by *transport.BrocadeTelnet: config-mode
// batching plus an explicit save step.
type capableTransport interface {
	transport.ConfigCapableTransport
	transport.SaveCapableTransport
}

// New builds a Brocade handler bound to a connected transport.
func New(deviceID string, t capableTransport) *Handler {
	return &Handler{deviceID: deviceID, transport: t, saver: t}
}

func (h *Handler) DeviceID() string { return h.deviceID }

// GetVLANs fetches and parses "show vlan".
func (h *Handler) GetVLANs(ctx context.Context) (map[int]model.VLAN, error) {
	res, err := h.transport.Execute(ctx, "show vlan")
	if err != nil {
		return nil, err
	}
	vlans, err := ParseShowVLAN(res.Output)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindProtocol, h.deviceID, err, "parsing show vlan")
	}
	return vlans, nil
}

// GetPorts fetches observed link state via "show interfaces brief"; managed
// attributes (enabled/description/speed) are left at their zero values,
// since Brocade doesn't echo them compactly there.
func (h *Handler) GetPorts(ctx context.Context) (map[string]model.Port, error) {
	res, err := h.transport.Execute(ctx, "show interfaces brief")
	if err != nil {
		return nil, err
	}
	states := ParseShowInterfacesBrief(res.Output)
	ports := make(map[string]model.Port, len(states))
	for id, state := range states {
		ports[id] = model.Port{ID: id, LinkState: state}
	}
	return ports, nil
}

// GetConfig assembles a full DeviceConfig from VLANs and ports.
func (h *Handler) GetConfig(ctx context.Context) (*model.DeviceConfig, error) {
	vlans, err := h.GetVLANs(ctx)
	if err != nil {
		return nil, err
	}
	ports, err := h.GetPorts(ctx)
	if err != nil {
		return nil, err
	}
	cfg := model.NewDeviceConfig(h.deviceID)
	cfg.VLANs = vlans
	cfg.Ports = ports
	return cfg, nil
}

// CreateVLAN emits "vlan <id> name <name> by port" plus untagged/tagged
// member commands, grouped via port-range collapsing (spec §4.4).
func (h *Handler) CreateVLAN(ctx context.Context, vlan model.VLAN) ([]model.Command, error) {
	if !model.ValidVLANID(vlan.ID) {
		return nil, xerr.New(xerr.KindValidation, h.deviceID, fmt.Sprintf("VLAN id %d out of range", vlan.ID))
	}
	if model.IsReserved(vlan.ID) {
		return nil, xerr.New(xerr.KindValidation, h.deviceID, fmt.Sprintf("VLAN %d is reserved", vlan.ID))
	}

	var cmds []model.Command
	header := fmt.Sprintf("vlan %d", vlan.ID)
	if vlan.Name != "" {
		header += fmt.Sprintf(" name %s", vlan.Name)
	}
	header += " by port"
	cmds = append(cmds, model.Command{Text: header, Tag: model.TagVLANCreate, EntityID: fmt.Sprint(vlan.ID)})

	cmds = append(cmds, memberCommands(vlan.ID, vlan.UntaggedPorts.Sorted(), "untagged", model.TagVLANCreate)...)
	cmds = append(cmds, memberCommands(vlan.ID, vlan.TaggedPorts.Sorted(), "tagged", model.TagVLANCreate)...)
	cmds = append(cmds, model.Command{Text: "exit", Tag: model.TagHousekeeping, EntityID: fmt.Sprint(vlan.ID)})
	return cmds, nil
}

// DeleteVLAN emits a single "no vlan <id>"; it does not unbind member ports
// first. VLAN 1 is rejected with a validation error.
func (h *Handler) DeleteVLAN(ctx context.Context, id int) ([]model.Command, error) {
	if model.IsProtected(id) {
		return nil, xerr.New(xerr.KindValidation, h.deviceID, "cannot delete VLAN 1")
	}
	return []model.Command{
		{Text: fmt.Sprintf("no vlan %d", id), Tag: model.TagVLANDelete, EntityID: fmt.Sprint(id)},
	}, nil
}

// ConfigurePort emits interface-level attribute changes for one port. It
// emits no "no dual-mode" command: the planner adds that pre-command itself
// when a port moves from tagged to untagged in another VLAN (spec §4.4).
func (h *Handler) ConfigurePort(ctx context.Context, before, after model.Port) ([]model.Command, error) {
	if err := model.ValidatePortID(model.TransportBrocadeTelnet, after.ID); err != nil {
		return nil, xerr.New(xerr.KindValidation, h.deviceID, err.Error())
	}
	var cmds []model.Command
	cmds = append(cmds, model.Command{Text: fmt.Sprintf("interface ethe %s", after.ID), Tag: model.TagPortConfig, EntityID: after.ID})
	if after.Description != before.Description {
		cmds = append(cmds, model.Command{Text: fmt.Sprintf("port-name %s", after.Description), Tag: model.TagPortConfig, EntityID: after.ID})
	}
	if after.Speed != before.Speed && after.Speed != "" {
		cmds = append(cmds, model.Command{Text: speedCommand(after.Speed), Tag: model.TagPortConfig, EntityID: after.ID})
	}
	if after.Enabled != before.Enabled {
		if after.Enabled {
			cmds = append(cmds, model.Command{Text: "enable", Tag: model.TagPortConfig, EntityID: after.ID})
		} else {
			cmds = append(cmds, model.Command{Text: "disable", Tag: model.TagPortConfig, EntityID: after.ID})
		}
	}
	cmds = append(cmds, model.Command{Text: "exit", Tag: model.TagHousekeeping, EntityID: after.ID})
	return cmds, nil
}

func speedCommand(speed model.Speed) string {
	switch speed {
	case model.SpeedAuto:
		return "speed-duplex auto"
	case model.Speed10Half:
		return "speed-duplex 10-half"
	case model.Speed10Full:
		return "speed-duplex 10-full"
	case model.Speed100Half:
		return "speed-duplex 100-half"
	case model.Speed100Full:
		return "speed-duplex 100-full"
	case model.Speed1000Full:
		return "speed-duplex 1000-full"
	case model.Speed10G:
		return "speed-duplex 10g-full"
	default:
		return "speed-duplex auto"
	}
}

// memberCommands collapses a sorted port-id list into grouped "ethe A to B"
// clauses per module (spec §4.4).
func memberCommands(vlanID int, ports []string, mode string, tag model.DiffElementKind) []model.Command {
	groups := groupByModule(ports)
	var cmds []model.Command
	for _, g := range groups {
		clause := formatEtheClause(g)
		cmds = append(cmds, model.Command{
			Text:     fmt.Sprintf("%s ethe %s", mode, clause),
			Tag:      tag,
			EntityID: fmt.Sprint(vlanID),
		})
	}
	return cmds
}

type portGroup struct {
	unit, module int
	numbers      []int
}

func groupByModule(ports []string) []portGroup {
	index := map[[2]int]*portGroup{}
	var order [][2]int
	for _, p := range ports {
		unit, module, num, err := model.ParseBrocadePortID(p)
		if err != nil {
			continue
		}
		key := [2]int{unit, module}
		g, ok := index[key]
		if !ok {
			g = &portGroup{unit: unit, module: module}
			index[key] = g
			order = append(order, key)
		}
		g.numbers = append(g.numbers, num)
	}
	groups := make([]portGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, *index[key])
	}
	return groups
}

// formatEtheClause renders a module's port numbers using CompactRange,
// translating "A-B" into Brocade's "A to B" and leaving singles/commas as
// repeated "ethe" clauses joined by spaces (the planner emits one Command
// per module group; multi-range modules collapse into one clause per
// contiguous run per spec's "repeated ethe clauses" rule).
func formatEtheClause(g portGroup) string {
	compact := util.CompactRange(g.numbers)
	parts := strings.Split(compact, ",")
	rendered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			rendered = append(rendered, fmt.Sprintf("%d/%d/%s to %d/%d/%s", g.unit, g.module, bounds[0], g.unit, g.module, bounds[1]))
		} else {
			rendered = append(rendered, fmt.Sprintf("%d/%d/%s", g.unit, g.module, part))
		}
	}
	return strings.Join(rendered, " ethe ")
}

// SaveConfig issues "write memory" (spec §4.1, §4.4).
func (h *Handler) SaveConfig(ctx context.Context) error {
	return h.saver.SaveConfig(ctx)
}

// Execute runs one already-planned command.
func (h *Handler) Execute(ctx context.Context, command model.Command) (string, error) {
	res, err := h.transport.Execute(ctx, command.Text)
	return res.Output, err
}

// ExecuteBatch runs planned commands without entering config mode (used
// for pre/post commands that must take effect at the privileged prompt).
func (h *Handler) ExecuteBatch(ctx context.Context, commands []model.Command, stopOnError bool) ([]handler.CommandOutcome, error) {
	texts := commandTexts(commands)
	results, err := h.transport.ExecuteBatch(ctx, texts, stopOnError)
	return toOutcomes(commands, results), err
}

// ExecuteConfigBatch wraps commands in configure-terminal/end (spec §4.1).
func (h *Handler) ExecuteConfigBatch(ctx context.Context, commands []model.Command, stopOnError bool) ([]handler.CommandOutcome, error) {
	texts := commandTexts(commands)
	results, err := h.transport.ExecuteConfigBatch(ctx, texts, stopOnError)
	return toOutcomes(commands, results), err
}

// Reconnect drops and re-establishes the underlying Telnet session, used by
// the executor's "connection closed" recovery action (spec §4.5).
func (h *Handler) Reconnect(ctx context.Context) error {
	_ = h.transport.Close()
	return h.transport.Connect(ctx)
}

func commandTexts(commands []model.Command) []string {
	texts := make([]string, len(commands))
	for i, c := range commands {
		texts[i] = c.Text
	}
	return texts
}

func toOutcomes(commands []model.Command, results []transport.CommandResult) []handler.CommandOutcome {
	outcomes := make([]handler.CommandOutcome, len(results))
	for i, r := range results {
		var cmd model.Command
		if i < len(commands) {
			cmd = commands[i]
		} else {
			cmd = model.Command{Text: r.Command}
		}
		outcomes[i] = handler.CommandOutcome{
			Command: cmd,
			Output:  r.Output,
			Failed:  r.Hint == transport.ExitError,
		}
	}
	return outcomes
}
