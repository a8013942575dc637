package zyxel

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/emesix/switchcraft/internal/handler"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/transport"
	"github.com/emesix/switchcraft/internal/xerr"
)

// Handler drives a Zyxel GS1900: reads via the SSH CLI (*transport.ZyxelSSH),
// writes via the obfuscated HTTPS CGI endpoint (*transport.ZyxelHTTPS) —
// spec §4.1.
type Handler struct {
	deviceID string
	reader   transport.Transport
	writer   transport.Transport
}

// New builds a Zyxel handler from its two transports.
func New(deviceID string, reader, writer transport.Transport) *Handler {
	return &Handler{deviceID: deviceID, reader: reader, writer: writer}
}

func (h *Handler) DeviceID() string { return h.deviceID }

func (h *Handler) GetVLANs(ctx context.Context) (map[int]model.VLAN, error) {
	res, err := h.reader.Execute(ctx, "show vlan")
	if err != nil {
		return nil, err
	}
	vlans, err := ParseShowVLAN(res.Output)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindProtocol, h.deviceID, err, "parsing show vlan")
	}
	return vlans, nil
}

func (h *Handler) GetPorts(ctx context.Context) (map[string]model.Port, error) {
	res, err := h.reader.Execute(ctx, "show interface status")
	if err != nil {
		return nil, err
	}
	return parsePortStatus(res.Output), nil
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

// CreateVLAN emits a single HTTPS form-POST command targeting the VLAN
// config CGI page; the planner never needs to know the HTTPS form shape.
func (h *Handler) CreateVLAN(ctx context.Context, vlan model.VLAN) ([]model.Command, error) {
	if !model.ValidVLANID(vlan.ID) {
		return nil, xerr.New(xerr.KindValidation, h.deviceID, fmt.Sprintf("VLAN id %d out of range", vlan.ID))
	}
	fields := fmt.Sprintf("vlan=%d,name=%s,untagged=%s,tagged=%s",
		vlan.ID, vlan.Name,
		strings.Join(vlan.UntaggedPorts.Sorted(), "-"),
		strings.Join(vlan.TaggedPorts.Sorted(), "-"))
	cmd := model.Command{
		Text:     "/cgi-bin/dispatcher.cgi?vlan_config|" + fields,
		Tag:      model.TagVLANCreate,
		EntityID: strconv.Itoa(vlan.ID),
	}
	return []model.Command{cmd}, nil
}

func (h *Handler) DeleteVLAN(ctx context.Context, id int) ([]model.Command, error) {
	if model.IsProtected(id) {
		return nil, xerr.New(xerr.KindValidation, h.deviceID, "cannot delete VLAN 1")
	}
	cmd := model.Command{
		Text:     fmt.Sprintf("/cgi-bin/dispatcher.cgi?vlan_delete|vlan=%d", id),
		Tag:      model.TagVLANDelete,
		EntityID: strconv.Itoa(id),
	}
	return []model.Command{cmd}, nil
}

func (h *Handler) ConfigurePort(ctx context.Context, before, after model.Port) ([]model.Command, error) {
	if err := model.ValidatePortID(model.TransportZyxelCLI, after.ID); err != nil {
		return nil, xerr.New(xerr.KindValidation, h.deviceID, err.Error())
	}
	fields := fmt.Sprintf("port=%s,description=%s,speed=%s,enabled=%v", after.ID, after.Description, after.Speed, after.Enabled)
	cmd := model.Command{
		Text:     "/cgi-bin/dispatcher.cgi?port_config|" + fields,
		Tag:      model.TagPortConfig,
		EntityID: after.ID,
	}
	return []model.Command{cmd}, nil
}

// SaveConfig is a no-op on Zyxel: the HTTPS CGI endpoints persist on
// submit, there is no separate "write memory" step.
func (h *Handler) SaveConfig(ctx context.Context) error { return nil }

func (h *Handler) Execute(ctx context.Context, command model.Command) (string, error) {
	res, err := h.writer.Execute(ctx, command.Text)
	return res.Output, err
}

func (h *Handler) ExecuteBatch(ctx context.Context, commands []model.Command, stopOnError bool) ([]handler.CommandOutcome, error) {
	texts := make([]string, len(commands))
	for i, c := range commands {
		texts[i] = c.Text
	}
	results, err := h.writer.ExecuteBatch(ctx, texts, stopOnError)
	outcomes := make([]handler.CommandOutcome, len(results))
	for i, r := range results {
		var cmd model.Command
		if i < len(commands) {
			cmd = commands[i]
		}
		outcomes[i] = handler.CommandOutcome{Command: cmd, Output: r.Output, Failed: r.Hint == transport.ExitError}
	}
	return outcomes, err
}

// Reconnect drops and re-establishes both the read (SSH) and write (HTTPS)
// sessions, used by the executor's "connection closed" recovery action
// (spec §4.5).
func (h *Handler) Reconnect(ctx context.Context) error {
	_ = h.reader.Close()
	_ = h.writer.Close()
	if err := h.reader.Connect(ctx); err != nil {
		return err
	}
	return h.writer.Connect(ctx)
}

// parsePortStatus parses "show interface status" rows into observed link
// state, skipping any leading column that isn't a valid Zyxel port id.
func parsePortStatus(output string) map[string]model.Port {
	ports := make(map[string]model.Port)
	for _, line := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		id := fields[0]
		if _, _, err := model.ParseZyxelPortID(id); err != nil {
			continue
		}
		state := model.LinkDown
		if strings.EqualFold(fields[1], "up") {
			state = model.LinkUp
		}
		ports[id] = model.Port{ID: id, LinkState: state}
	}
	return ports
}
