package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/emesix/switchcraft/internal/cliutil"
	"github.com/emesix/switchcraft/internal/inventory"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Inspect the device inventory",
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every device in the inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := inventory.Load(app.settings.GetInventoryPath())
		if err != nil {
			return err
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(entries)
		}

		ids := make([]string, 0, len(entries))
		for id := range entries {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		t := cliutil.NewTable("DEVICE", "TYPE", "HOST", "PORT", "PROTOCOL")
		for _, id := range ids {
			e := entries[id]
			t.Row(id, string(e.Type), e.Host, fmt.Sprintf("%d", e.Port), string(e.Protocol))
		}
		t.Flush()
		return nil
	},
}

func init() {
	inventoryCmd.AddCommand(inventoryListCmd)
}
