package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/emesix/switchcraft/internal/desiredstate"
	"github.com/emesix/switchcraft/internal/drift"
	"github.com/emesix/switchcraft/internal/engine"
	"github.com/emesix/switchcraft/internal/model"
)

var applyCmd = &cobra.Command{
	Use:   "apply <desired-state-file>",
	Short: "Converge a device toward a desired-state document",
	Long: `Apply a desired-state document to a device: diff against the
observed configuration, plan, execute, and verify.

Requires -d (device). Previews the plan by default — use -x to execute.

Examples:
  switchcraftctl sw1 apply desired.yaml
  switchcraftctl sw1 apply desired.yaml -x`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := requireDevice()
		if err != nil {
			return err
		}
		desired, err := desiredstate.Load(args[0])
		if err != nil {
			return fmt.Errorf("loading desired state: %w", err)
		}
		if desired.DeviceID != "" && desired.DeviceID != entry.DeviceID {
			return fmt.Errorf("desired state document is for device %q, not %q", desired.DeviceID, entry.DeviceID)
		}
		desired.DeviceID = entry.DeviceID

		return applyAndReport(entry.DeviceID, "apply", desired)
	},
}

var driftCmd = &cobra.Command{
	Use:   "drift <desired-state-file>",
	Short: "Report drift between a desired-state document and the device",
	Long: `Compare a desired-state document against the device's observed
configuration without changing anything.

Requires -d (device).

Examples:
  switchcraftctl sw1 drift desired.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := requireDevice()
		if err != nil {
			return err
		}
		desired, err := desiredstate.Load(args[0])
		if err != nil {
			return fmt.Errorf("loading desired state: %w", err)
		}
		if desired.DeviceID != "" && desired.DeviceID != entry.DeviceID {
			return fmt.Errorf("desired state document is for device %q, not %q", desired.DeviceID, entry.DeviceID)
		}
		desired.DeviceID = entry.DeviceID

		report, err := app.engine.CheckDrift(context.Background(), entry.DeviceID, desired)
		if err != nil {
			return err
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(report)
		}

		if report.InSync() {
			fmt.Println(green("in sync: no drift detected"))
			return nil
		}
		for _, e := range report.Entries {
			if e.Verdict == drift.InSync {
				continue
			}
			fmt.Printf("%s %s %s: %s\n", yellow(string(e.Verdict)), e.Kind, e.ID, verdictDetail(e))
		}
		return nil
	},
}

func verdictDetail(e drift.Entry) string {
	return fmt.Sprintf("expected=%v observed=%v", e.Expected, e.Observed)
}

// applyAndReport runs one ApplyConfig call and prints its outcome,
// mirroring the dry-run-by-default / -x-to-execute convention shared by
// every write subcommand (vlan, port, apply).
func applyAndReport(deviceID, operation string, desired *model.DesiredState) error {
	rec, err := app.engine.ApplyConfig(context.Background(), deviceID, desired, engine.ApplyOptions{
		Actor:           actor(),
		DryRun:          !app.executeMode,
		RollbackOnError: true,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	if app.jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(rec)
	}

	if rec.Success {
		if app.executeMode {
			fmt.Println(green("changes applied successfully."))
		} else {
			fmt.Println("plan would succeed.")
		}
	} else {
		fmt.Println(red("failed: " + rec.Error))
	}
	printDryRunNotice()
	return nil
}
