package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emesix/switchcraft/internal/cliutil"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a device's current VLANs, ports, and settings",
	Long: `Show a device's full observed configuration.

Requires -d (device).

Examples:
  switchcraftctl sw1 show`,
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
			return json.NewEncoder(os.Stdout).Encode(cfg)
		}

		fmt.Printf("Device: %s\n", bold(entry.DeviceID))
		fmt.Printf("Host: %s:%d (%s)\n\n", entry.Host, entry.Port, entry.Transport)

		t := cliutil.NewTable("VLAN ID", "NAME", "UNTAGGED", "TAGGED", "L3")
		for _, id := range cfg.SortedVLANIDs() {
			v := cfg.VLANs[id]
			l3 := "-"
			if v.L3 != nil {
				l3 = v.L3.Address + "/" + v.L3.Mask
			}
			t.Row(strconv.Itoa(id), dash(v.Name), dash(joinPorts(v.UntaggedPorts.Sorted())), dash(joinPorts(v.TaggedPorts.Sorted())), l3)
		}
		t.Flush()

		fmt.Println()
		pt := cliutil.NewTable("PORT", "ENABLED", "DESCRIPTION", "SPEED", "LINK")
		for _, id := range cfg.SortedPortIDs() {
			p := cfg.Ports[id]
			pt.Row(p.ID, strconv.FormatBool(p.Enabled), dash(p.Description), string(p.Speed), string(p.LinkState))
		}
		pt.Flush()

		return nil
	},
}

// joinPorts renders a sorted port-id slice for table display.
func joinPorts(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += id
	}
	return out
}
