package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/emesix/switchcraft/internal/audit"
	"github.com/emesix/switchcraft/internal/cliutil"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
	Long: `Inspect the append-only audit log of configuration changes.

Every apply is logged with its timestamp, actor, device, operation, and
success/failure status.

Examples:
  switchcraftctl audit query --device sw1
  switchcraftctl audit query --last 24h
  switchcraftctl audit query --actor alice --failures`,
}

var (
	auditDevice   string
	auditActor    string
	auditLast     string
	auditLimit    int
	auditFailures bool
)

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			DeviceID:    auditDevice,
			Actor:       auditActor,
			Limit:       auditLimit,
			FailureOnly: auditFailures,
		}
		if auditLast != "" {
			d, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditLast)
			}
			filter.StartTime = time.Now().Add(-d)
		}

		events, err := audit.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(events)
		}

		if len(events) == 0 {
			fmt.Println("no audit events found")
			return nil
		}

		t := cliutil.NewTable("TIMESTAMP", "ACTOR", "DEVICE", "OPERATION", "STATUS")
		for _, e := range events {
			status := green("ok")
			if !e.Success {
				status = red("failed")
			}
			if e.DryRun {
				status = yellow("dry-run")
			}
			t.Row(e.Timestamp.Format("2006-01-02 15:04:05"), e.Actor, e.DeviceID, e.Operation, status)
		}
		t.Flush()
		return nil
	},
}

func init() {
	auditQueryCmd.Flags().StringVar(&auditDevice, "device", "", "Filter by device")
	auditQueryCmd.Flags().StringVar(&auditActor, "actor", "", "Filter by actor")
	auditQueryCmd.Flags().StringVar(&auditLast, "last", "", "Show events from last duration (e.g. 24h)")
	auditQueryCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditQueryCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failed operations")

	auditCmd.AddCommand(auditQueryCmd)
}
