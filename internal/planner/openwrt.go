package planner

import (
	"context"

	"github.com/emesix/switchcraft/internal/handler"
	"github.com/emesix/switchcraft/internal/model"
)

// openwrtPlanner appends a network reload after any VLAN membership
// change: CreateVLAN/DeleteVLAN already rewrite /etc/config/network
// wholesale via SCP, but the kernel doesn't see the change until
// "/etc/init.d/network reload" runs (spec §4.1). Port-attribute-only
// changes already end in their own "uci commit network" from the handler,
// so no extra post-command is needed for those.
type openwrtPlanner struct{}

func (openwrtPlanner) Plan(ctx context.Context, h handler.Handler, before *model.DeviceConfig, d *model.Diff, opts Options) (*model.CommandPlan, error) {
	plan, err := planGeneric(ctx, h, d, opts)
	if err != nil {
		return nil, err
	}
	if len(d.VLANsToCreate) > 0 || len(d.VLANsToModify) > 0 || len(d.VLANsToDelete) > 0 {
		plan.PostCommands = append(plan.PostCommands, model.Command{
			Text: "/etc/init.d/network reload",
			Tag:  model.TagHousekeeping,
		})
	}
	return plan, nil
}
