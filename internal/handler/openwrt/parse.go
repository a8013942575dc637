// Package openwrt implements the OpenWrt/UCI device handler: VLAN state
// lives in /etc/config/network, edited via the "uci" CLI for single-field
// changes and via whole-file SCP for larger rewrites (spec §4.2).
package openwrt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/emesix/switchcraft/internal/model"
)

// switchVLANLineRE matches one "uci show network" switch_vlan entry, e.g.
// network.@switch_vlan[0].ports='0t 1 2 3'.
var switchVLANLineRE = regexp.MustCompile(`^network\.@switch_vlan\[(\d+)\]\.(\w+)='?([^'\n]*)'?$`)

// ParseUCIShowNetwork parses "uci show network" output into normalized
// VLANs keyed by VLAN id (the "vlan" option's value, not the array index).
// Ports carrying the "t" suffix are tagged; CPU port preservation and
// vlan_filtering enablement are handled by the handler, not the parser.
func ParseUCIShowNetwork(output string) (map[int]model.VLAN, error) {
	type entry struct {
		vlan  int
		ports []string
	}
	entries := make(map[string]*entry)

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		m := switchVLANLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, key, val := m[1], m[2], m[3]
		e, ok := entries[idx]
		if !ok {
			e = &entry{}
			entries[idx] = e
		}
		switch key {
		case "vlan":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("invalid vlan option %q at index %s: %w", val, idx, err)
			}
			e.vlan = n
		case "ports":
			e.ports = strings.Fields(val)
		}
	}

	vlans := make(map[int]model.VLAN)
	for _, e := range entries {
		if e.vlan == 0 {
			continue
		}
		untagged := model.NewPortSet()
		tagged := model.NewPortSet()
		for _, p := range e.ports {
			if strings.HasSuffix(p, "t") {
				tagged[strings.TrimSuffix(p, "t")] = true
			} else {
				untagged[p] = true
			}
		}
		vlans[e.vlan] = model.VLAN{ID: e.vlan, UntaggedPorts: untagged, TaggedPorts: tagged}
	}
	return vlans, nil
}

// FormatSwitchVLANPorts renders a port list back into UCI's "0t 1 2 3t"
// notation: CPU port first if present in either set, then the remaining
// untagged ports, then the remaining tagged ports, each group in port-id
// order.
func FormatSwitchVLANPorts(untagged, tagged model.PortSet, cpuPort string) string {
	var parts []string
	if cpuPort != "" {
		if tagged[cpuPort] {
			parts = append(parts, cpuPort+"t")
		} else if untagged[cpuPort] {
			parts = append(parts, cpuPort)
		}
	}
	add := func(set model.PortSet, suffix string) {
		for _, p := range set.Sorted() {
			if p == cpuPort {
				continue
			}
			parts = append(parts, p+suffix)
		}
	}
	add(untagged, "")
	add(tagged, "t")
	return strings.Join(parts, " ")
}

// ParsePortOperState interprets the contents of
// /sys/class/net/<port>/operstate.
func ParsePortOperState(content string) model.LinkState {
	switch strings.TrimSpace(content) {
	case "up":
		return model.LinkUp
	case "down":
		return model.LinkDown
	default:
		return model.LinkUnknown
	}
}
