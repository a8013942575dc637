// switchcraftctl - Multi-vendor Network Switch Control Plane CLI
//
// A CLI tool for managing Brocade FastIron, Zyxel GS1900, and OpenWrt
// switches through one normalized surface, with:
//   - Dry-run by default (preview changes, require -x to execute)
//   - Audit logging of every apply
//   - A HIL (human-in-the-loop) safety gate on writes
//
// Noun-group CLI pattern:
//
//	switchcraftctl <device> <resource> <action> [args] [-x]
//
// The first argument is the device name unless it matches a known command.
// Commands that don't need a device (inventory, settings, audit) work
// without one.
//
// Examples:
//
//	switchcraftctl sw1 vlan list
//	switchcraftctl sw1 vlan create 100 --name Servers -x
//	switchcraftctl sw1 port set 1/1/5 --enabled=false -x
//	switchcraftctl sw1 apply desired.yaml -x
//	switchcraftctl sw1 drift desired.yaml
//	switchcraftctl inventory list
//	switchcraftctl audit query --device sw1
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emesix/switchcraft/internal/audit"
	"github.com/emesix/switchcraft/internal/cliutil"
	"github.com/emesix/switchcraft/internal/engine"
	"github.com/emesix/switchcraft/internal/inventory"
	"github.com/emesix/switchcraft/internal/logx"
	"github.com/emesix/switchcraft/internal/safety"
	"github.com/emesix/switchcraft/internal/settings"
)

// App holds CLI state shared across all commands.
type App struct {
	// Context flags
	deviceName string

	// Option flags
	configDir   string
	executeMode bool
	verbose     bool
	jsonOutput  bool

	// Initialized state (set in PersistentPreRunE)
	settings  *settings.Settings
	inventory map[string]*inventory.Entry
	engine    *engine.ConfigEngine
}

var app = &App{}

func main() {
	// Implicit device name: if the first arg is not a known command or
	// flag, treat it as a device name. This lets users write:
	//   switchcraftctl sw1 vlan list
	// instead of:
	//   switchcraftctl -d sw1 vlan list
	if len(os.Args) > 1 && !strings.HasPrefix(os.Args[1], "-") && !isKnownCommand(os.Args[1]) {
		os.Args = append([]string{os.Args[0], "-d", os.Args[1]}, os.Args[2:]...)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// isKnownCommand checks if a string matches a registered top-level command name.
func isKnownCommand(name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name {
			return true
		}
		for _, alias := range cmd.Aliases {
			if alias == name {
				return true
			}
		}
	}
	return name == "help" || name == "completion"
}

var rootCmd = &cobra.Command{
	Use:               "switchcraftctl",
	Short:             "Multi-vendor network switch control plane",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `switchcraftctl is a noun-group CLI for managing Brocade, Zyxel, and
OpenWrt switches through one normalized control plane.

Write commands preview changes by default — use -x to execute.

  switchcraftctl <device> <resource> <action> [args] [-x]

The first argument is the device name unless it matches a known command.

  switchcraftctl sw1 vlan create 100 --name Servers -x
  switchcraftctl sw1 apply desired.yaml -x
  switchcraftctl inventory list                  # no device needed
  switchcraftctl settings show                   # no device needed`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		app.settings, err = settings.Load()
		if err != nil {
			logx.Logger.Warnf("could not load settings: %v", err)
			app.settings = &settings.Settings{}
		}
		if app.configDir != "" {
			app.settings.ConfigDir = app.configDir
		}

		if app.verbose {
			logx.SetLevel("debug")
		} else {
			logx.SetLevel("warn")
		}

		if isSettingsOrHelp(cmd) {
			return nil
		}

		app.inventory, err = inventory.Load(app.settings.GetInventoryPath())
		if err != nil {
			return fmt.Errorf("loading inventory: %w", err)
		}

		gate := safety.NewGate(hilProfile(app.settings))
		app.engine = engine.New(gate)
		for _, entry := range app.inventory {
			h, err := buildHandler(entry)
			if err != nil {
				logx.Logger.Warnf("skipping device %q: %v", entry.DeviceID, err)
				continue
			}
			app.engine.Register(entry.ToDevice(), h)
		}

		auditLogger, err := audit.NewFileLogger(app.settings.GetAuditLogPath(), audit.RotationConfig{
			MaxSizeBytes: int64(app.settings.GetAuditMaxSizeMB()) * 1024 * 1024,
			MaxBackups:   app.settings.GetAuditMaxBackups(),
		})
		if err != nil {
			logx.Logger.Warnf("could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}

		return nil
	},
}

// hilProfile builds the HIL safety profile from settings. MaxPortsPerCall
// and the protected-VLANs override are settings-driven; the allowlists
// default to DefaultProfile's VLAN-999-only stance (spec §4.7, §11).
func hilProfile(s *settings.Settings) safety.Profile {
	profile := safety.DefaultProfile()
	profile.MaxPortsPerCall = s.GetMaxPortsPerCall()
	if len(s.ProtectedVLANs) > 0 {
		profile.ProtectedVLANs = make(map[int]bool, len(s.ProtectedVLANs))
		for _, id := range s.ProtectedVLANs {
			profile.ProtectedVLANs[id] = true
		}
	}
	return profile
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&app.deviceName, "device", "d", "", "Device id")
	rootCmd.PersistentFlags().StringVarP(&app.configDir, "config-dir", "C", "", "Configuration directory (default /etc/switchcraft)")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Verbose output")

	for _, cmd := range []*cobra.Command{vlanCmd, portCmd, applyCmd, driftCmd} {
		addWriteFlags(cmd)
		addOutputFlags(cmd)
	}
	for _, cmd := range []*cobra.Command{inventoryCmd, auditCmd, showCmd} {
		addOutputFlags(cmd)
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: "resource", Title: "Resource Commands:"},
		&cobra.Group{ID: "device", Title: "Device Operations:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{vlanCmd, portCmd} {
		cmd.GroupID = "resource"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{applyCmd, driftCmd, showCmd} {
		cmd.GroupID = "device"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{inventoryCmd, auditCmd, settingsCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

// isSettingsOrHelp checks whether cmd (or any ancestor) is a settings, help,
// or inventory command — none of these need a connected engine.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "settings", "inventory":
			return true
		}
	}
	return false
}

// addWriteFlags registers -x/--execute as a local (or persistent, for
// noun-group parents) flag.
func addWriteFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if cmd.HasSubCommands() {
		flags = cmd.PersistentFlags()
	}
	flags.BoolVarP(&app.executeMode, "execute", "x", false, "Execute changes (default is dry-run)")
}

// addOutputFlags registers --json as a local (or persistent) flag.
func addOutputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if cmd.HasSubCommands() {
		flags = cmd.PersistentFlags()
	}
	flags.BoolVar(&app.jsonOutput, "json", false, "JSON output")
}

// requireDevice resolves the -d flag against the loaded inventory.
func requireDevice() (*inventory.Entry, error) {
	if app.deviceName == "" {
		return nil, fmt.Errorf("device required: use -d <device> or lead with the device name")
	}
	entry, ok := app.inventory[app.deviceName]
	if !ok {
		return nil, fmt.Errorf("device %q not found in inventory", app.deviceName)
	}
	return entry, nil
}

// printDryRunNotice reminds the user that -x is required to execute.
func printDryRunNotice() {
	if !app.executeMode {
		fmt.Println("\n" + yellow("DRY-RUN: no changes applied. Use -x to execute."))
	}
}

// actor identifies who is running the command, for audit attribution.
func actor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

func green(s string) string  { return cliutil.Green(s) }
func yellow(s string) string { return cliutil.Yellow(s) }
func red(s string) string    { return cliutil.Red(s) }
func bold(s string) string   { return cliutil.Bold(s) }

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
