// Package brocade implements the Brocade FastIron device handler: parsing
// "show vlan"/"show interfaces" output and emitting the vendor's line CLI
// (spec §4.2).
package brocade

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/emesix/switchcraft/internal/model"
)

var vlanHeaderRE = regexp.MustCompile(`(?i)^VLAN\s+(\d+)(?:,\s*Name\s+([^\s,]+))?`)
var portsLineRE = regexp.MustCompile(`(?i)^\s*(Untagged|Tagged)\s+Ports:\s*(?:\(U(\d+)/M(\d+)\))?\s*(.*)$`)

// ParseShowVLAN parses the block-per-VLAN output of "show vlan" (spec
// §4.2): a header line naming the VLAN id/name, followed by "Untagged
// Ports:"/"Tagged Ports:" lines that encode unit/module via "(Ux/My)" and a
// port list in "N" / "N to M" notation. "None" or "---" means empty.
func ParseShowVLAN(output string) (map[int]model.VLAN, error) {
	vlans := make(map[int]model.VLAN)
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")

	var current *model.VLAN
	for _, line := range lines {
		if m := vlanHeaderRE.FindStringSubmatch(line); m != nil {
			if current != nil {
				vlans[current.ID] = *current
			}
			id, _ := strconv.Atoi(m[1])
			current = &model.VLAN{
				ID:            id,
				Name:          m[2],
				UntaggedPorts: model.NewPortSet(),
				TaggedPorts:   model.NewPortSet(),
			}
			continue
		}
		if current == nil {
			continue
		}
		if m := portsLineRE.FindStringSubmatch(line); m != nil {
			kind := strings.ToLower(m[1])
			unit, module := 1, 1
			if m[2] != "" {
				unit, _ = strconv.Atoi(m[2])
			}
			if m[3] != "" {
				module, _ = strconv.Atoi(m[3])
			}
			ports, err := expandPortList(unit, module, m[4])
			if err != nil {
				return nil, fmt.Errorf("vlan %d: %w", current.ID, err)
			}
			if kind == "untagged" {
				current.UntaggedPorts = model.NewPortSet(ports...)
			} else {
				current.TaggedPorts = model.NewPortSet(ports...)
			}
		}
	}
	if current != nil {
		vlans[current.ID] = *current
	}
	return vlans, nil
}

// expandPortList expands a Brocade port-number list within one unit/module,
// e.g. "1 to 8 12 15" -> ["U/M/1", ..., "U/M/8", "U/M/12", "U/M/15"].
// "None" and "---" denote an empty list.
func expandPortList(unit, module int, raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "None") || raw == "---" {
		return nil, nil
	}

	tokens := strings.Fields(raw)
	var ports []string
	i := 0
	for i < len(tokens) {
		start, err := strconv.Atoi(tokens[i])
		if err != nil {
			return nil, fmt.Errorf("invalid-port: unexpected token %q in port list", tokens[i])
		}
		if i+2 < len(tokens) && strings.EqualFold(tokens[i+1], "to") {
			end, err := strconv.Atoi(tokens[i+2])
			if err != nil {
				return nil, fmt.Errorf("invalid-port: bad range end %q", tokens[i+2])
			}
			for p := start; p <= end; p++ {
				ports = append(ports, model.FormatBrocadePortID(unit, module, p))
			}
			i += 3
			continue
		}
		ports = append(ports, model.FormatBrocadePortID(unit, module, start))
		i++
	}
	return ports, nil
}

var portStatusLineRE = regexp.MustCompile(`(?i)^\s*(\d+/\d+/\d+)\s+(Up|Down)\s+\S*\s*(\S+)?`)

// ParseShowInterfacesBrief parses "show interfaces brief" rows into
// observed link state; speed/description are not carried by this command
// and are left zero-value for the caller to merge from stored config.
func ParseShowInterfacesBrief(output string) map[string]model.LinkState {
	result := make(map[string]model.LinkState)
	for _, line := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n") {
		m := portStatusLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		state := model.LinkDown
		if strings.EqualFold(m[2], "Up") {
			state = model.LinkUp
		}
		result[m[1]] = state
	}
	return result
}
