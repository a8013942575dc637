// Package zyxel implements the Zyxel GS1900 device handler: reads come
// from the legacy SSH CLI, writes are routed to the obfuscated HTTPS CGI
// endpoint (spec §4.1, §4.2).
package zyxel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/util"
)

// vlanRowRE matches one "show vlan" table row: vlan id, name, untagged port
// list, tagged port list — columns are whitespace-separated, lists use
// Zyxel's "1-4,7,10-12,lag1-2" notation (spec §4.2).
var vlanRowRE = regexp.MustCompile(`^\s*(\d+)\s+(\S+)\s+(\S+)\s+(\S+)\s*$`)

// ParseShowVLAN parses a Zyxel "show vlan" table into normalized VLANs.
// LAG member tokens ("lagN") are surfaced in the same port sets as regular
// ports; the differ/planner treat them as ordinary port ids.
func ParseShowVLAN(output string) (map[int]model.VLAN, error) {
	vlans := make(map[int]model.VLAN)
	for _, line := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n") {
		m := vlanRowRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		untagged, err := expandPortNotation(m[3])
		if err != nil {
			return nil, fmt.Errorf("vlan %d untagged column: %w", id, err)
		}
		tagged, err := expandPortNotation(m[4])
		if err != nil {
			return nil, fmt.Errorf("vlan %d tagged column: %w", id, err)
		}
		name := m[2]
		if name == "---" {
			name = ""
		}
		vlans[id] = model.VLAN{
			ID:            id,
			Name:          name,
			UntaggedPorts: model.NewPortSet(untagged...),
			TaggedPorts:   model.NewPortSet(tagged...),
		}
	}
	return vlans, nil
}

// expandPortNotation expands "1-4,7,10-12,lag1-2" into individual port ids
// ("1".."4", "7", "10".."12", "lag1", "lag2"). "---" means empty (spec
// §4.2).
func expandPortNotation(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "---" {
		return nil, nil
	}

	var ports []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "lag") {
			nums, err := util.ExpandRange(strings.TrimPrefix(part, "lag"))
			if err != nil {
				return nil, fmt.Errorf("invalid-port: bad lag range %q: %w", part, err)
			}
			for _, n := range nums {
				ports = append(ports, fmt.Sprintf("lag%d", n))
			}
			continue
		}
		nums, err := util.ExpandRange(part)
		if err != nil {
			return nil, fmt.Errorf("invalid-port: bad port range %q: %w", part, err)
		}
		for _, n := range nums {
			ports = append(ports, strconv.Itoa(n))
		}
	}
	return ports, nil
}
