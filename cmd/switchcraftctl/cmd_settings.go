package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emesix/switchcraft/internal/cliutil"
	"github.com/emesix/switchcraft/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent CLI settings",
	Long: `Manage persistent settings stored in ~/.switchcraft/settings.json.

Examples:
  switchcraftctl settings show
  switchcraftctl settings set inventory_path /etc/switchcraft/inventory.yaml
  switchcraftctl settings set max_ports_per_call 32
  switchcraftctl settings clear`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())

		t := cliutil.NewTable("SETTING", "VALUE")
		t.Row("config_dir", dash(s.GetConfigDir()))
		t.Row("inventory_path", dash(s.GetInventoryPath()))
		t.Row("audit_log_path", dash(s.GetAuditLogPath()))
		t.Row("audit_max_size_mb", strconv.Itoa(s.GetAuditMaxSizeMB()))
		t.Row("audit_max_backups", strconv.Itoa(s.GetAuditMaxBackups()))
		t.Row("max_ports_per_call", strconv.Itoa(s.GetMaxPortsPerCall()))
		t.Row("session_idle_timeout_sec", strconv.Itoa(s.GetSessionIdleTimeoutSec()))
		t.Row("max_concurrent_reads", strconv.Itoa(s.GetMaxConcurrentReads()))
		t.Flush()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Long: `Set a persistent setting value.

Available settings:
  config_dir          - Base configuration directory
  inventory_path       - Device inventory document path
  audit_log_path       - Audit log path
  audit_max_size_mb    - Audit log rotation size in MB
  audit_max_backups    - Audit log rotation backup count
  max_ports_per_call   - HIL gate's per-call port ceiling
  session_idle_timeout_sec - Pooled session idle timeout

Examples:
  switchcraftctl settings set inventory_path /etc/switchcraft/inventory.yaml
  switchcraftctl settings set max_ports_per_call 32`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		setting, value := args[0], args[1]

		s, err := settings.Load()
		if err != nil {
			s = &settings.Settings{}
		}

		switch setting {
		case "config_dir":
			s.ConfigDir = value
		case "inventory_path":
			s.InventoryPath = value
		case "audit_log_path":
			s.AuditLogPath = value
		case "audit_max_size_mb":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid integer: %s", value)
			}
			s.AuditMaxSizeMB = n
		case "audit_max_backups":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid integer: %s", value)
			}
			s.AuditMaxBackups = n
		case "max_ports_per_call":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid integer: %s", value)
			}
			s.MaxPortsPerCall = n
		case "session_idle_timeout_sec":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid integer: %s", value)
			}
			s.SessionIdleTimeoutSec = n
		default:
			return fmt.Errorf("unknown setting: %s", setting)
		}

		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("%s set to: %s\n", setting, value)
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset settings to defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &settings.Settings{}
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("settings cleared")
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsClearCmd)
}
