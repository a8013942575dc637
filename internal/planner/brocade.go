package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/emesix/switchcraft/internal/handler"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/util"
)

// brocadePlanner enforces Brocade's single-untagged-VLAN-per-port rule and
// dual-mode pre-clearing before handing the rest off to the generic
// create/modify/delete emission, then appends "write memory" when
// requested (spec §4.4).
type brocadePlanner struct{}

func (brocadePlanner) Plan(ctx context.Context, h handler.Handler, before *model.DeviceConfig, d *model.Diff, opts Options) (*model.CommandPlan, error) {
	// VLANsToModify gets its own surgical remove-old/add-new handling
	// below rather than planGeneric's reuse of CreateVLAN (CreateVLAN only
	// ever adds members; Brocade never drops stale ones on its own, unlike
	// Zyxel's full-replace POST or OpenWrt's whole-file rewrite).
	rest := *d
	rest.VLANsToModify = nil

	plan, err := planGeneric(ctx, h, &rest, opts)
	if err != nil {
		return nil, err
	}

	for _, mod := range d.VLANsToModify {
		cmds, rb, err := planModify(mod)
		if err != nil {
			return nil, err
		}
		plan.MainCommands = append(plan.MainCommands, cmds...)
		plan.RollbackCommands = prependCommands(rb, plan.RollbackCommands)
	}

	var pre []model.Command
	for _, vlan := range d.VLANsToCreate {
		pre = append(pre, preCommandsForNewUntagged(before, vlan.ID, vlan.UntaggedPorts)...)
	}
	for _, mod := range d.VLANsToModify {
		newlyUntagged := mod.After.UntaggedPorts.Diff(mod.Before.UntaggedPorts)
		pre = append(pre, preCommandsForNewUntagged(before, mod.After.ID, newlyUntagged)...)
	}
	plan.PreCommands = append(pre, plan.PreCommands...)

	if opts.SaveOnSuccess && !plan.IsEmpty() {
		plan.PostCommands = append(plan.PostCommands, model.Command{Text: "write memory", Tag: model.TagHousekeeping})
	}
	return plan, nil
}

// planModify emits "vlan <id>" / remove stale untagged+tagged members /
// add new ones / exit, removing before adding (spec §4.4 ordering), plus
// the symmetric inverse as its rollback.
func planModify(mod model.VLANModification) (cmds, rollback []model.Command, err error) {
	cmds = append(cmds, vlanHeader(mod.After))
	cmds = append(cmds, memberCommands(mod.After.ID, mod.Before.UntaggedPorts.Diff(mod.After.UntaggedPorts).Sorted(), "no untagged", model.TagVLANModify)...)
	cmds = append(cmds, memberCommands(mod.After.ID, mod.Before.TaggedPorts.Diff(mod.After.TaggedPorts).Sorted(), "no tagged", model.TagVLANModify)...)
	cmds = append(cmds, memberCommands(mod.After.ID, mod.After.UntaggedPorts.Diff(mod.Before.UntaggedPorts).Sorted(), "untagged", model.TagVLANModify)...)
	cmds = append(cmds, memberCommands(mod.After.ID, mod.After.TaggedPorts.Diff(mod.Before.TaggedPorts).Sorted(), "tagged", model.TagVLANModify)...)
	cmds = append(cmds, model.Command{Text: "exit", Tag: model.TagHousekeeping, EntityID: fmt.Sprint(mod.After.ID)})

	rollback = append(rollback, vlanHeader(mod.Before))
	rollback = append(rollback, memberCommands(mod.Before.ID, mod.After.UntaggedPorts.Diff(mod.Before.UntaggedPorts).Sorted(), "no untagged", model.TagVLANModify)...)
	rollback = append(rollback, memberCommands(mod.Before.ID, mod.After.TaggedPorts.Diff(mod.Before.TaggedPorts).Sorted(), "no tagged", model.TagVLANModify)...)
	rollback = append(rollback, memberCommands(mod.Before.ID, mod.Before.UntaggedPorts.Diff(mod.After.UntaggedPorts).Sorted(), "untagged", model.TagVLANModify)...)
	rollback = append(rollback, memberCommands(mod.Before.ID, mod.Before.TaggedPorts.Diff(mod.After.TaggedPorts).Sorted(), "tagged", model.TagVLANModify)...)
	rollback = append(rollback, model.Command{Text: "exit", Tag: model.TagHousekeeping, EntityID: fmt.Sprint(mod.Before.ID)})
	return cmds, rollback, nil
}

func vlanHeader(vlan model.VLAN) model.Command {
	text := fmt.Sprintf("vlan %d", vlan.ID)
	if vlan.Name != "" {
		text += fmt.Sprintf(" name %s", vlan.Name)
	}
	text += " by port"
	return model.Command{Text: text, Tag: model.TagVLANModify, EntityID: fmt.Sprint(vlan.ID)}
}

// memberCommands mirrors the handler's range-collapsing emission (the
// handler's own memberCommands is unexported; this is the same duplication
// tradeoff as groupByModule/formatEtheClause below). Callers here pass
// "untagged", "tagged", "no untagged" or "no tagged" as the verb; the
// handler only ever passes "untagged"/"tagged" to its copy.
func memberCommands(vlanID int, ports []string, verb string, tag model.DiffElementKind) []model.Command {
	var cmds []model.Command
	for _, g := range groupByModule(ports) {
		cmds = append(cmds, model.Command{
			Text:     fmt.Sprintf("%s ethe %s", verb, formatEtheClause(g)),
			Tag:      tag,
			EntityID: fmt.Sprint(vlanID),
		})
	}
	return cmds
}

// preCommandsForNewUntagged finds every VLAN in before (other than
// targetVLANID) that currently holds any of newUntagged as an untagged
// member, and any VLAN where those ports are tagged members, and emits the
// membership-clearing and dual-mode-clearing commands the device requires
// before the new untagged assignment can succeed (spec §4.4).
func preCommandsForNewUntagged(beforeCfg *model.DeviceConfig, targetVLANID int, newUntagged model.PortSet) []model.Command {
	if beforeCfg == nil || len(newUntagged) == 0 {
		return nil
	}

	var cmds []model.Command

	// Dual-mode: any port newly going untagged that's currently tagged
	// somewhere must have dual-mode cleared on its interface first.
	for _, port := range newUntagged.Sorted() {
		for _, vid := range beforeCfg.SortedVLANIDs() {
			if vid == targetVLANID {
				continue
			}
			if beforeCfg.VLANs[vid].TaggedPorts[port] {
				cmds = append(cmds,
					model.Command{Text: fmt.Sprintf("interface ethe %s", port), Tag: model.TagVLANModify, EntityID: port},
					model.Command{Text: "no dual-mode", Tag: model.TagVLANModify, EntityID: port},
					model.Command{Text: "exit", Tag: model.TagHousekeeping, EntityID: port},
				)
				break
			}
		}
	}

	// Untagged-membership conflicts: a port may be untagged in only one
	// VLAN, so clear it from whichever VLAN currently holds it.
	for _, vid := range beforeCfg.SortedVLANIDs() {
		if vid == targetVLANID {
			continue
		}
		conflicting := intersect(beforeCfg.VLANs[vid].UntaggedPorts, newUntagged)
		if len(conflicting) == 0 {
			continue
		}
		cmds = append(cmds, model.Command{Text: fmt.Sprintf("vlan %d", vid), Tag: model.TagVLANModify, EntityID: fmt.Sprint(vid)})
		for _, group := range groupByModule(conflicting.Sorted()) {
			cmds = append(cmds, model.Command{
				Text:     fmt.Sprintf("no untagged ethe %s", formatEtheClause(group)),
				Tag:      model.TagVLANModify,
				EntityID: fmt.Sprint(vid),
			})
		}
		cmds = append(cmds, model.Command{Text: "exit", Tag: model.TagHousekeeping, EntityID: fmt.Sprint(vid)})
	}

	return cmds
}

// intersect is a small PortSet helper local to the conflict search above;
// model.PortSet only exposes Diff/Union/Equal.
func intersect(a, b model.PortSet) model.PortSet {
	out := make(model.PortSet)
	for p := range a {
		if b[p] {
			out[p] = true
		}
	}
	return out
}

// portGroup and the grouping/formatting below are a planner-local copy of
// the Brocade handler's module-keyed range collapsing
// (internal/handler/brocade): the handler groups ports being added by
// CreateVLAN, the planner groups ports it adds to or removes from VLANs
// during modifications and untagged-conflict clearing: same algorithm,
// different caller, not worth a shared exported helper across package
// boundaries.
type portGroup struct {
	unit, module int
	numbers      []int
}

func groupByModule(ports []string) []portGroup {
	index := map[[2]int]*portGroup{}
	var order [][2]int
	for _, p := range ports {
		unit, module, num, err := model.ParseBrocadePortID(p)
		if err != nil {
			continue
		}
		key := [2]int{unit, module}
		g, ok := index[key]
		if !ok {
			g = &portGroup{unit: unit, module: module}
			index[key] = g
			order = append(order, key)
		}
		g.numbers = append(g.numbers, num)
	}
	groups := make([]portGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, *index[key])
	}
	return groups
}

func formatEtheClause(g portGroup) string {
	compact := util.CompactRange(g.numbers)
	parts := strings.Split(compact, ",")
	rendered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			rendered = append(rendered, fmt.Sprintf("%d/%d/%s to %d/%d/%s", g.unit, g.module, bounds[0], g.unit, g.module, bounds[1]))
		} else {
			rendered = append(rendered, fmt.Sprintf("%d/%d/%s", g.unit, g.module, part))
		}
	}
	return strings.Join(rendered, " ethe ")
}
