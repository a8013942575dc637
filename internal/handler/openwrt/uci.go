package openwrt

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/emesix/switchcraft/internal/model"
)

// writeFileCmdPrefix marks a pseudo-command carrying a whole-file rewrite,
// the same trick the Zyxel handler uses to carry HTTPS form fields through
// the uniform Command.Text contract.
const writeFileCmdPrefix = "writefile|"

// writeFileCommand encodes a whole-file rewrite as a pseudo-command text;
// content is base64'd so embedded newlines survive Command.Text unchanged.
func writeFileCommand(path, content string) string {
	return writeFileCmdPrefix + path + "|" + base64.StdEncoding.EncodeToString([]byte(content))
}

// parseWriteFileCommand decodes a pseudo-command built by writeFileCommand.
func parseWriteFileCommand(text string) (path, content string, ok bool) {
	if !strings.HasPrefix(text, writeFileCmdPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(text, writeFileCmdPrefix)
	parts := strings.SplitN(rest, "|", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", "", false
	}
	return parts[0], string(decoded), true
}

// sectionHeaderRE matches a UCI config file's "config switch_vlan" (or any
// other) section header line.
var sectionHeaderRE = regexp.MustCompile(`^config\s+(\S+)(?:\s+'?([^'\n]*)'?)?\s*$`)

// sectionOptionRE matches one "option key 'value'" line inside a section.
var sectionOptionRE = regexp.MustCompile(`^\s*option\s+(\S+)\s+'?([^'\n]*)'?\s*$`)

// uciShowFromFile re-derives "uci show network" style lines from a raw
// /etc/config/network file, just enough for ParseUCIShowNetwork to consume
// without shelling out to "uci show" a second time.
func uciShowFromFile(raw string) string {
	var sb strings.Builder
	vlanIndex := -1
	inSwitchVLAN := false
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if m := sectionHeaderRE.FindStringSubmatch(line); m != nil {
			inSwitchVLAN = m[1] == "switch_vlan"
			if inSwitchVLAN {
				vlanIndex++
				fmt.Fprintf(&sb, "network.@switch_vlan[%d]=switch_vlan\n", vlanIndex)
			}
			continue
		}
		if !inSwitchVLAN {
			continue
		}
		if m := sectionOptionRE.FindStringSubmatch(line); m != nil {
			fmt.Fprintf(&sb, "network.@switch_vlan[%d].%s='%s'\n", vlanIndex, m[1], m[2])
		}
	}
	return sb.String()
}

// buildSwitchVLANSection renders a new "config switch_vlan" stanza for
// appending to /etc/config/network. When first is true, vlan_filtering is
// also enabled on the bridge device (spec §4.2: VLAN filtering must be on
// before any switch_vlan section has effect).
func buildSwitchVLANSection(vlan model.VLAN, cpuPort string, first bool) string {
	var sb strings.Builder
	if first {
		sb.WriteString("\nconfig bridge-vlan 'br_lan_filtering'\n")
		sb.WriteString("\toption device 'br-lan'\n")
		sb.WriteString("\toption vlan_filtering '1'\n")
	}
	fmt.Fprintf(&sb, "\nconfig switch_vlan\n")
	fmt.Fprintf(&sb, "\toption device 'switch0'\n")
	fmt.Fprintf(&sb, "\toption vlan '%d'\n", vlan.ID)
	ports := FormatSwitchVLANPorts(vlan.UntaggedPorts, vlan.TaggedPorts, cpuPort)
	fmt.Fprintf(&sb, "\toption ports '%s'\n", ports)
	return sb.String()
}

// appendUCISection appends a rendered section to the end of raw.
func appendUCISection(raw, section string) string {
	return strings.TrimRight(raw, "\n") + "\n" + section
}

// vlanSectionBlockRE finds a full "config switch_vlan ... (blank line or
// EOF)" block so it can be removed wholesale.
var vlanSectionBlockRE = regexp.MustCompile(`(?m)^config switch_vlan\n(?:\t[^\n]*\n?)*`)

// removeSwitchVLANSection deletes the switch_vlan section matching id.
func removeSwitchVLANSection(raw string, id int) string {
	blocks := vlanSectionBlockRE.FindAllString(raw, -1)
	out := raw
	for _, block := range blocks {
		if sectionMatchesVLAN(block, id) {
			out = strings.Replace(out, block, "", 1)
		}
	}
	return out
}

func sectionMatchesVLAN(block string, id int) bool {
	for _, line := range strings.Split(block, "\n") {
		m := sectionOptionRE.FindStringSubmatch(strings.TrimSpace(line))
		if m != nil && m[1] == "vlan" {
			n, err := strconv.Atoi(m[2])
			return err == nil && n == id
		}
	}
	return false
}

// portIDsFromUCI collects every distinct port id referenced by any
// switch_vlan ports option (both tagged and untagged), for use by
// GetPorts.
func portIDsFromUCI(output string) []string {
	seen := map[string]bool{}
	var ids []string
	for _, line := range strings.Split(output, "\n") {
		m := switchVLANLineRE.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || m[2] != "ports" {
			continue
		}
		for _, p := range strings.Fields(m[3]) {
			id := strings.TrimSuffix(p, "t")
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
