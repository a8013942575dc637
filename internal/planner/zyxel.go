package planner

import (
	"context"

	"github.com/emesix/switchcraft/internal/handler"
	"github.com/emesix/switchcraft/internal/model"
)

// zyxelPlanner has no cross-VLAN membership exclusivity rule to enforce
// (the GS1900 CGI form replaces a VLAN's whole membership in one POST) and
// no separate persistence step — HTTPS writes apply immediately (spec
// §4.1). It's the plain generic plan with no additional pre/post
// commands.
type zyxelPlanner struct{}

func (zyxelPlanner) Plan(ctx context.Context, h handler.Handler, before *model.DeviceConfig, d *model.Diff, opts Options) (*model.CommandPlan, error) {
	return planGeneric(ctx, h, d, opts)
}
