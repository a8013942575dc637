package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emesix/switchcraft/internal/cliutil"
	"github.com/emesix/switchcraft/internal/model"
)

var vlanCmd = &cobra.Command{
	Use:   "vlan",
	Short: "Manage VLANs",
	Long: `Manage VLANs on a switch.

Requires -d (device).

Examples:
  switchcraftctl sw1 vlan list
  switchcraftctl sw1 vlan show 100
  switchcraftctl sw1 vlan create 100 --name Servers -x
  switchcraftctl sw1 vlan delete 100 -x`,
}

var vlanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all VLANs",
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := requireDevice()
		if err != nil {
			return err
		}
		vlans, err := app.engine.GetConfig(context.Background(), entry.DeviceID)
		if err != nil {
			return err
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(vlans.VLANs)
		}

		t := cliutil.NewTable("VLAN ID", "NAME", "UNTAGGED", "TAGGED")
		for _, id := range vlans.SortedVLANIDs() {
			v := vlans.VLANs[id]
			t.Row(strconv.Itoa(id), dash(v.Name), dash(joinPorts(v.UntaggedPorts.Sorted())), dash(joinPorts(v.TaggedPorts.Sorted())))
		}
		t.Flush()
		return nil
	},
}

var vlanShowCmd = &cobra.Command{
	Use:   "show <vlan-id>",
	Short: "Show a single VLAN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vlanID, err := parseVLANID(args[0])
		if err != nil {
			return err
		}
		entry, err := requireDevice()
		if err != nil {
			return err
		}
		cfg, err := app.engine.GetConfig(context.Background(), entry.DeviceID)
		if err != nil {
			return err
		}
		vlan, ok := cfg.VLANs[vlanID]
		if !ok {
			return fmt.Errorf("VLAN %d not found on %s", vlanID, entry.DeviceID)
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(vlan)
		}

		fmt.Printf("VLAN: %s\n", bold(fmt.Sprintf("%d", vlan.ID)))
		if vlan.Name != "" {
			fmt.Printf("Name: %s\n", vlan.Name)
		}
		fmt.Printf("Untagged: %s\n", dash(joinPorts(vlan.UntaggedPorts.Sorted())))
		fmt.Printf("Tagged: %s\n", dash(joinPorts(vlan.TaggedPorts.Sorted())))
		if vlan.L3 != nil {
			fmt.Printf("L3: %s/%s\n", vlan.L3.Address, vlan.L3.Mask)
		}
		return nil
	},
}

var vlanName string

var vlanCreateCmd = &cobra.Command{
	Use:   "create <vlan-id>",
	Short: "Create (or ensure) a VLAN",
	Long: `Create a VLAN, leaving every other VLAN/port/setting untouched
(patch mode).

Requires -d (device).

Examples:
  switchcraftctl sw1 vlan create 100 --name Servers -x`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vlanID, err := parseVLANID(args[0])
		if err != nil {
			return err
		}
		entry, err := requireDevice()
		if err != nil {
			return err
		}

		desired := &model.DesiredState{
			DeviceID: entry.DeviceID,
			Mode:     model.ModePatch,
			VLANs: map[int]model.VLAN{
				vlanID: {ID: vlanID, Name: vlanName, Action: model.ActionEnsure},
			},
		}
		return applyAndReport(entry.DeviceID, "vlan-create", desired)
	},
}

var vlanDeleteCmd = &cobra.Command{
	Use:   "delete <vlan-id>",
	Short: "Delete a VLAN",
	Long: `Delete a VLAN, leaving every other VLAN/port/setting untouched
(patch mode).

Requires -d (device).

Examples:
  switchcraftctl sw1 vlan delete 100 -x`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vlanID, err := parseVLANID(args[0])
		if err != nil {
			return err
		}
		entry, err := requireDevice()
		if err != nil {
			return err
		}

		desired := &model.DesiredState{
			DeviceID: entry.DeviceID,
			Mode:     model.ModePatch,
			VLANs: map[int]model.VLAN{
				vlanID: {ID: vlanID, Action: model.ActionAbsent},
			},
		}
		return applyAndReport(entry.DeviceID, "vlan-delete", desired)
	},
}

// parseVLANID parses a VLAN ID from a string argument.
func parseVLANID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid VLAN ID: %s", s)
	}
	return id, nil
}

func init() {
	vlanCreateCmd.Flags().StringVar(&vlanName, "name", "", "VLAN name")

	vlanCmd.AddCommand(vlanListCmd)
	vlanCmd.AddCommand(vlanShowCmd)
	vlanCmd.AddCommand(vlanCreateCmd)
	vlanCmd.AddCommand(vlanDeleteCmd)
}
