package openwrt

import (
	"context"
	"fmt"
	"strings"

	"github.com/emesix/switchcraft/internal/handler"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/transport"
	"github.com/emesix/switchcraft/internal/xerr"
)

// networkConfigPath is the UCI file governing switch VLANs and interfaces.
const networkConfigPath = "/etc/config/network"

// capableTransport is satisfied by *transport.OpenWrtSSH: exec plus SCP
// whole-file access.
type capableTransport interface {
	transport.Transport
	transport.FileTransport
}

// Handler drives an OpenWrt device via UCI commands for single-field
// changes and whole-file SCP rewrites for VLAN membership (spec §4.1,
// §4.2). CPUPort is preserved across every rewrite: OpenWrt switches fault
// badly if the CPU port drops out of a VLAN's port list.
type Handler struct {
	deviceID  string
	transport capableTransport
	cpuPort   string
}

// New builds an OpenWrt handler. cpuPort is the switch's upstream port id
// (commonly "0"); a switch_vlan ports list written by this handler lists it
// first when the VLAN's port sets include it, and does not add it otherwise.
func New(deviceID string, t capableTransport, cpuPort string) *Handler {
	return &Handler{deviceID: deviceID, transport: t, cpuPort: cpuPort}
}

func (h *Handler) DeviceID() string { return h.deviceID }

func (h *Handler) GetVLANs(ctx context.Context) (map[int]model.VLAN, error) {
	res, err := h.transport.Execute(ctx, "uci show network")
	if err != nil {
		return nil, err
	}
	vlans, err := ParseUCIShowNetwork(res.Output)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindProtocol, h.deviceID, err, "parsing uci show network")
	}
	return vlans, nil
}

func (h *Handler) GetPorts(ctx context.Context) (map[string]model.Port, error) {
	res, err := h.transport.Execute(ctx, "uci show network")
	if err != nil {
		return nil, err
	}
	ids := portIDsFromUCI(res.Output)
	ports := make(map[string]model.Port, len(ids))
	for _, id := range ids {
		state, err := h.readPortState(ctx, id)
		if err != nil {
			return nil, err
		}
		ports[id] = state
	}
	return ports, nil
}

// readPortState reads /sys/class/net/<port>/{operstate,speed,duplex} in one
// round trip (spec §4.2).
func (h *Handler) readPortState(ctx context.Context, id string) (model.Port, error) {
	cmd := fmt.Sprintf(
		"cat /sys/class/net/%s/operstate /sys/class/net/%s/speed /sys/class/net/%s/duplex 2>/dev/null",
		id, id, id,
	)
	res, err := h.transport.Execute(ctx, cmd)
	if err != nil {
		return model.Port{}, err
	}
	lines := strings.Split(strings.TrimSpace(res.Output), "\n")
	port := model.Port{ID: id, LinkState: model.LinkUnknown}
	if len(lines) > 0 {
		port.LinkState = ParsePortOperState(lines[0])
	}
	if len(lines) > 2 {
		port.Speed = speedFromSysfs(strings.TrimSpace(lines[1]), strings.TrimSpace(lines[2]))
	}
	return port, nil
}

func speedFromSysfs(speedMbps, duplex string) model.Speed {
	half := strings.EqualFold(duplex, "half")
	switch speedMbps {
	case "10":
		if half {
			return model.Speed10Half
		}
		return model.Speed10Full
	case "100":
		if half {
			return model.Speed100Half
		}
		return model.Speed100Full
	case "1000":
		return model.Speed1000Full
	case "10000":
		return model.Speed10G
	default:
		return model.SpeedAuto
	}
}

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

// CreateVLAN rewrites the whole network file: appends a switch_vlan section
// for the new VLAN (with the CPU port preserved) and, if this is the
// device's first VLAN, enables bridge VLAN filtering (spec §4.2).
func (h *Handler) CreateVLAN(ctx context.Context, vlan model.VLAN) ([]model.Command, error) {
	if !model.ValidVLANID(vlan.ID) {
		return nil, xerr.New(xerr.KindValidation, h.deviceID, fmt.Sprintf("VLAN id %d out of range", vlan.ID))
	}

	raw, err := h.transport.ReadFile(ctx, networkConfigPath)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindTransport, h.deviceID, err, "reading network config")
	}

	existing, err := ParseUCIShowNetwork(uciShowFromFile(string(raw)))
	if err != nil {
		return nil, xerr.Wrap(xerr.KindProtocol, h.deviceID, err, "parsing existing network config")
	}
	firstVLAN := len(existing) == 0

	section := buildSwitchVLANSection(vlan, h.cpuPort, firstVLAN)
	updated := appendUCISection(string(raw), section)
	if err := rejectEmptyUpload(updated); err != nil {
		return nil, xerr.New(xerr.KindValidation, h.deviceID, err.Error())
	}

	return []model.Command{{
		Text:     writeFileCommand(networkConfigPath, updated),
		Tag:      model.TagVLANCreate,
		EntityID: fmt.Sprint(vlan.ID),
	}}, nil
}

func (h *Handler) DeleteVLAN(ctx context.Context, id int) ([]model.Command, error) {
	if model.IsProtected(id) {
		return nil, xerr.New(xerr.KindValidation, h.deviceID, "cannot delete VLAN 1")
	}
	raw, err := h.transport.ReadFile(ctx, networkConfigPath)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindTransport, h.deviceID, err, "reading network config")
	}
	updated := removeSwitchVLANSection(string(raw), id)
	if err := rejectEmptyUpload(updated); err != nil {
		return nil, xerr.New(xerr.KindValidation, h.deviceID, err.Error())
	}
	return []model.Command{{
		Text:     writeFileCommand(networkConfigPath, updated),
		Tag:      model.TagVLANDelete,
		EntityID: fmt.Sprint(id),
	}}, nil
}

// ConfigurePort emits single-field "uci set"/"uci commit" commands: these
// don't need a whole-file rewrite since they touch an interface section,
// not switch_vlan membership (spec §4.2).
func (h *Handler) ConfigurePort(ctx context.Context, before, after model.Port) ([]model.Command, error) {
	if err := model.ValidatePortID(model.TransportOpenWrtSSH, after.ID); err != nil {
		return nil, xerr.New(xerr.KindValidation, h.deviceID, err.Error())
	}
	section := fmt.Sprintf("network.%s", after.ID)
	var cmds []model.Command
	if after.Description != before.Description {
		cmds = append(cmds, model.Command{
			Text:     fmt.Sprintf("uci set %s.description='%s'", section, after.Description),
			Tag:      model.TagPortConfig,
			EntityID: after.ID,
		})
	}
	if after.Enabled != before.Enabled {
		cmds = append(cmds, model.Command{
			Text:     fmt.Sprintf("uci set %s.disabled='%d'", section, boolToUCIDisabled(after.Enabled)),
			Tag:      model.TagPortConfig,
			EntityID: after.ID,
		})
	}
	if len(cmds) > 0 {
		cmds = append(cmds, model.Command{Text: "uci commit network", Tag: model.TagHousekeeping, EntityID: after.ID})
	}
	return cmds, nil
}

func boolToUCIDisabled(enabled bool) int {
	if enabled {
		return 0
	}
	return 1
}

// SaveConfig restarts networking so a rewritten /etc/config/network takes
// effect (spec §4.1: OpenWrt has no separate "write memory" step, changes
// apply on reload).
func (h *Handler) SaveConfig(ctx context.Context) error {
	_, err := h.transport.Execute(ctx, "/etc/init.d/network reload")
	return err
}

func (h *Handler) Execute(ctx context.Context, command model.Command) (string, error) {
	if path, content, ok := parseWriteFileCommand(command.Text); ok {
		if err := h.transport.WriteFile(ctx, path, []byte(content)); err != nil {
			return "", err
		}
		return "", nil
	}
	res, err := h.transport.Execute(ctx, command.Text)
	return res.Output, err
}

func (h *Handler) ExecuteBatch(ctx context.Context, commands []model.Command, stopOnError bool) ([]handler.CommandOutcome, error) {
	outcomes := make([]handler.CommandOutcome, 0, len(commands))
	for _, c := range commands {
		out, err := h.Execute(ctx, c)
		failed := err != nil
		outcomes = append(outcomes, handler.CommandOutcome{Command: c, Output: out, Failed: failed})
		if failed && stopOnError {
			return outcomes, err
		}
	}
	return outcomes, nil
}

// Reconnect drops and re-establishes the underlying SSH session, used by
// the executor's "connection closed" recovery action (spec §4.5).
func (h *Handler) Reconnect(ctx context.Context) error {
	_ = h.transport.Close()
	return h.transport.Connect(ctx)
}

// rejectEmptyUpload guards against writing a blank or whitespace-only file
// back to the device (spec §4.2: a truncated rewrite would wipe network
// config entirely).
func rejectEmptyUpload(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("refusing to upload empty network config")
	}
	return nil
}
