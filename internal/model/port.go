package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Speed enumerates the managed port speed/duplex settings (spec §3).
type Speed string

const (
	SpeedAuto     Speed = "auto"
	Speed10Half   Speed = "10-half"
	Speed10Full   Speed = "10-full"
	Speed100Half  Speed = "100-half"
	Speed100Full  Speed = "100-full"
	Speed1000Full Speed = "1000-full"
	Speed10G      Speed = "10G"
)

var validSpeeds = map[Speed]bool{
	SpeedAuto: true, Speed10Half: true, Speed10Full: true,
	Speed100Half: true, Speed100Full: true, Speed1000Full: true, Speed10G: true,
}

// ValidSpeed reports whether s is one of the recognized speed/duplex values.
func ValidSpeed(s Speed) bool { return validSpeeds[s] }

// LinkState is an observed, read-only port property.
type LinkState string

const (
	LinkUp      LinkState = "up"
	LinkDown    LinkState = "down"
	LinkUnknown LinkState = "unknown"
)

// Port is the normalized representation of a switch port. Enabled,
// Description, and Speed are managed (may be written); LinkState and PVID
// are observed only (spec §3).
type Port struct {
	ID          string
	Enabled     bool
	Description string
	Speed       Speed

	LinkState LinkState
	PVID      int
}

// portKind distinguishes the three vendor port-id grammars for comparison
// purposes.
type portKind int

const (
	portKindBrocade portKind = iota // U/M/P
	portKindOpenWrt                 // lanN
	portKindZyxelNumeric             // N
	portKindZyxelLAG                 // lagN
	portKindUnknown
)

// ParseBrocadePortID validates and decomposes a Brocade "U/M/P" port id.
func ParseBrocadePortID(id string) (unit, module, port int, err error) {
	parts := strings.Split(id, "/")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid-port: %q is not in U/M/P form", id)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, e := strconv.Atoi(p)
		if e != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("invalid-port: %q has non-numeric component %q", id, p)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}

// ParseOpenWrtPortID validates an OpenWrt letters-then-digits port id such
// as "lan1" or "wan0"; an id with no numeric suffix (e.g. "cpu") is rejected.
func ParseOpenWrtPortID(id string) (prefix string, n int, err error) {
	i := 0
	for i < len(id) && (id[i] < '0' || id[i] > '9') {
		i++
	}
	if i == 0 || i == len(id) {
		return "", 0, fmt.Errorf("invalid-port: %q has no numeric suffix", id)
	}
	prefix = id[:i]
	num, e := strconv.Atoi(id[i:])
	if e != nil {
		return "", 0, fmt.Errorf("invalid-port: %q has malformed suffix", id)
	}
	return prefix, num, nil
}

// ParseZyxelPortID validates a Zyxel numeric port ("7") or LAG id ("lag1").
func ParseZyxelPortID(id string) (isLAG bool, n int, err error) {
	if strings.HasPrefix(id, "lag") {
		num, e := strconv.Atoi(strings.TrimPrefix(id, "lag"))
		if e != nil {
			return false, 0, fmt.Errorf("invalid-port: %q is not a valid LAG id", id)
		}
		return true, num, nil
	}
	num, e := strconv.Atoi(id)
	if e != nil {
		return false, 0, fmt.Errorf("invalid-port: %q is not numeric", id)
	}
	return false, num, nil
}

// ValidatePortID validates id against the port-id grammar of the given
// transport kind: Brocade U/M/P, Zyxel numeric or "lagN", OpenWrt
// letters-then-digits; an unknown transport kind is an error. Per spec
// §4.2, unknown formats return invalid-port before any wire operation.
func ValidatePortID(transport TransportKind, id string) error {
	switch transport {
	case TransportBrocadeTelnet:
		_, _, _, err := ParseBrocadePortID(id)
		return err
	case TransportOpenWrtSSH:
		_, _, err := ParseOpenWrtPortID(id)
		return err
	case TransportZyxelCLI, TransportZyxelHTTPS:
		_, _, err := ParseZyxelPortID(id)
		return err
	default:
		return fmt.Errorf("invalid-port: unknown transport %q", transport)
	}
}

func classify(id string) (portKind, [3]int) {
	if u, m, p, err := ParseBrocadePortID(id); err == nil {
		return portKindBrocade, [3]int{u, m, p}
	}
	if strings.HasPrefix(id, "lag") {
		if _, n, err := ParseZyxelPortID(id); err == nil {
			return portKindZyxelLAG, [3]int{n, 0, 0}
		}
	}
	if n, err := strconv.Atoi(id); err == nil {
		return portKindZyxelNumeric, [3]int{n, 0, 0}
	}
	if prefix, n, err := ParseOpenWrtPortID(id); err == nil {
		// Fold the prefix into the tuple's high-order slot only for stable
		// grouping; numeric comparison still dominates within a prefix.
		return portKindOpenWrt, [3]int{len(prefix), n, 0}
	}
	return portKindUnknown, [3]int{}
}

// ComparePortIDs orders two port ids by their canonical numeric tuple (spec
// §3): Brocade by (unit, module, port), Zyxel numeric and LAG by their
// number, OpenWrt by trailing integer. Ports of different kinds sort by
// kind first so the ordering stays total and deterministic; unknown-form
// ids sort lexically, after all recognized forms.
func ComparePortIDs(a, b string) int {
	ka, ta := classify(a)
	kb, tb := classify(b)
	if ka != kb {
		return int(ka) - int(kb)
	}
	if ka == portKindUnknown {
		return strings.Compare(a, b)
	}
	for i := 0; i < 3; i++ {
		if ta[i] != tb[i] {
			return ta[i] - tb[i]
		}
	}
	return strings.Compare(a, b)
}

// FormatBrocadePortID renders the canonical "U/M/P" string.
func FormatBrocadePortID(unit, module, port int) string {
	return fmt.Sprintf("%d/%d/%d", unit, module, port)
}
