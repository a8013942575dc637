package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/emesix/switchcraft/internal/cliutil"
	"github.com/emesix/switchcraft/internal/model"
)

var portCmd = &cobra.Command{
	Use:   "port",
	Short: "Manage switch ports",
	Long: `Manage switch ports.

Requires -d (device).

Examples:
  switchcraftctl sw1 port list
  switchcraftctl sw1 port show 1/1/5
  switchcraftctl sw1 port set 1/1/5 --enabled=false --description uplink -x`,
}

var portListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := requireDevice()
		if err != nil {
			return err
		}
		cfg, err := app.engine.GetConfig(context.Background(), entry.DeviceID)
		if err != nil {
			return err
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(cfg.Ports)
		}

		t := cliutil.NewTable("PORT", "ENABLED", "DESCRIPTION", "SPEED", "LINK", "PVID")
		for _, id := range cfg.SortedPortIDs() {
			p := cfg.Ports[id]
			pvid := "-"
			if p.PVID > 0 {
				pvid = fmt.Sprintf("%d", p.PVID)
			}
			t.Row(p.ID, fmt.Sprintf("%v", p.Enabled), dash(p.Description), string(p.Speed), string(p.LinkState), pvid)
		}
		t.Flush()
		return nil
	},
}

var portShowCmd = &cobra.Command{
	Use:   "show <port-id>",
	Short: "Show a single port",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := requireDevice()
		if err != nil {
			return err
		}
		cfg, err := app.engine.GetConfig(context.Background(), entry.DeviceID)
		if err != nil {
			return err
		}
		port, ok := cfg.Ports[args[0]]
		if !ok {
			return fmt.Errorf("port %q not found on %s", args[0], entry.DeviceID)
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(port)
		}

		fmt.Printf("Port: %s\n", bold(port.ID))
		fmt.Printf("Enabled: %v\n", port.Enabled)
		fmt.Printf("Description: %s\n", dash(port.Description))
		fmt.Printf("Speed: %s\n", port.Speed)
		fmt.Printf("Link: %s\n", port.LinkState)
		return nil
	},
}

var (
	portEnabled     bool
	portDescription string
	portSpeed       string
)

var portSetCmd = &cobra.Command{
	Use:   "set <port-id>",
	Short: "Configure a port's enabled state, description, or speed",
	Long: `Configure a port, leaving every other VLAN/port/setting untouched
(patch mode). Unset flags leave that attribute unchanged on the device.

Requires -d (device).

Examples:
  switchcraftctl sw1 port set 1/1/5 --enabled=false -x
  switchcraftctl sw1 port set 1/1/5 --description uplink --speed 1000-full -x`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := requireDevice()
		if err != nil {
			return err
		}

		cfg, err := app.engine.GetConfig(context.Background(), entry.DeviceID)
		if err != nil {
			return err
		}
		port, ok := cfg.Ports[args[0]]
		if !ok {
			return fmt.Errorf("port %q not found on %s", args[0], entry.DeviceID)
		}

		if cmd.Flags().Changed("enabled") {
			port.Enabled = portEnabled
		}
		if cmd.Flags().Changed("description") {
			port.Description = portDescription
		}
		if cmd.Flags().Changed("speed") {
			speed := model.Speed(portSpeed)
			if !model.ValidSpeed(speed) {
				return fmt.Errorf("invalid speed %q", portSpeed)
			}
			port.Speed = speed
		}

		desired := &model.DesiredState{
			DeviceID: entry.DeviceID,
			Mode:     model.ModePatch,
			Ports:    map[string]model.Port{port.ID: port},
		}
		return applyAndReport(entry.DeviceID, "port-set", desired)
	},
}

func init() {
	portSetCmd.Flags().BoolVar(&portEnabled, "enabled", false, "Administrative state")
	portSetCmd.Flags().StringVar(&portDescription, "description", "", "Port description")
	portSetCmd.Flags().StringVar(&portSpeed, "speed", "", "Port speed/duplex (e.g. auto, 1000-full)")

	portCmd.AddCommand(portListCmd)
	portCmd.AddCommand(portShowCmd)
	portCmd.AddCommand(portSetCmd)
}
