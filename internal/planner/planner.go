// Package planner turns a model.Diff into a per-vendor model.CommandPlan:
// ordered pre/main/post commands plus their inverse rollback commands
// (spec §4.4). Each vendor gets its own Plan function because the
// cross-VLAN membership conflicts, dual-mode handling, and persistence
// step are all vendor-specific; the Diff and resulting CommandPlan stay
// vendor-neutral.
package planner

import (
	"context"

	"github.com/emesix/switchcraft/internal/handler"
	"github.com/emesix/switchcraft/internal/model"
)

// Options controls plan-wide behavior that isn't derivable from the Diff
// itself.
type Options struct {
	// SaveOnSuccess appends a persistence step (Brocade "write memory")
	// to PostCommands.
	SaveOnSuccess bool
}

// Planner builds a CommandPlan for one vendor.
type Planner interface {
	Plan(ctx context.Context, h handler.Handler, before *model.DeviceConfig, d *model.Diff, opts Options) (*model.CommandPlan, error)
}

// For builds the Planner appropriate for vendor.
func For(vendor model.TransportKind) Planner {
	switch vendor {
	case model.TransportBrocadeTelnet:
		return brocadePlanner{}
	case model.TransportZyxelCLI, model.TransportZyxelHTTPS:
		return zyxelPlanner{}
	case model.TransportOpenWrtSSH:
		return openwrtPlanner{}
	default:
		return genericPlanner{}
	}
}

// genericPlanner implements the vendor-agnostic fallback: call the
// handler's emitters directly, in diff order, with no cross-entity
// conflict resolution. Used only for an unrecognized TransportKind; every
// real vendor has its own Planner above.
type genericPlanner struct{}

func (genericPlanner) Plan(ctx context.Context, h handler.Handler, before *model.DeviceConfig, d *model.Diff, opts Options) (*model.CommandPlan, error) {
	return planGeneric(ctx, h, d, opts)
}

// planGeneric is the shared core used by the zyxel and openwrt planners,
// the fallback, and the brocade planner for everything except VLAN
// modifications. It handles no cross-VLAN membership exclusivity (the
// brocade planner adds that itself), so main commands are just the concatenation of each diff
// element's handler-emitted commands, and rollback is the reverse of the
// natural inverse operation per element.
func planGeneric(ctx context.Context, h handler.Handler, d *model.Diff, opts Options) (*model.CommandPlan, error) {
	plan := &model.CommandPlan{DeviceID: h.DeviceID()}

	for _, vlan := range d.VLANsToCreate {
		cmds, err := h.CreateVLAN(ctx, vlan)
		if err != nil {
			return nil, err
		}
		plan.MainCommands = append(plan.MainCommands, cmds...)
		rb, err := h.DeleteVLAN(ctx, vlan.ID)
		if err == nil {
			plan.RollbackCommands = prependCommands(rb, plan.RollbackCommands)
		}
	}

	for _, mod := range d.VLANsToModify {
		cmds, err := h.CreateVLAN(ctx, mod.After)
		if err != nil {
			return nil, err
		}
		plan.MainCommands = append(plan.MainCommands, cmds...)
		rb, err := h.CreateVLAN(ctx, mod.Before)
		if err == nil {
			plan.RollbackCommands = prependCommands(rb, plan.RollbackCommands)
		}
	}

	for _, vlan := range d.VLANsToDelete {
		cmds, err := h.DeleteVLAN(ctx, vlan.ID)
		if err != nil {
			return nil, err
		}
		plan.MainCommands = append(plan.MainCommands, cmds...)
		rb, err := h.CreateVLAN(ctx, vlan)
		if err == nil {
			plan.RollbackCommands = prependCommands(rb, plan.RollbackCommands)
		}
	}

	for _, pc := range d.PortsToConfigure {
		cmds, err := h.ConfigurePort(ctx, pc.Before, pc.After)
		if err != nil {
			return nil, err
		}
		plan.MainCommands = append(plan.MainCommands, cmds...)
		rb, err := h.ConfigurePort(ctx, pc.After, pc.Before)
		if err == nil {
			plan.RollbackCommands = prependCommands(rb, plan.RollbackCommands)
		}
	}

	return plan, nil
}

// prependCommands puts newCmds ahead of existing, so rollback accumulates
// in strict reverse-of-forward order as the forward plan is built left to
// right (spec §4.4: "for every forward command, the planner emits an
// inverse command into rollback_commands in reverse order").
func prependCommands(newCmds, existing []model.Command) []model.Command {
	out := make([]model.Command, 0, len(newCmds)+len(existing))
	out = append(out, newCmds...)
	out = append(out, existing...)
	return out
}
