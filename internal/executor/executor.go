// Package executor runs a model.CommandPlan against a handler.Handler with
// pattern-matched automatic recovery and rollback-on-exhaustion (spec
// §4.5). It is the only package that actually touches the wire during a
// write: pre_commands, then main_commands, then post_commands (with any
// spanning-tree re-enables prepended) each run one command at a time, every
// command eligible for inline recovery; a stage halts on the first
// unrecoverable rejection. main_commands are not sent as a single batch. Every call — success, failure, or dry-run — produces one
// model.AuditRecord.
package executor

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/emesix/switchcraft/internal/handler"
	"github.com/emesix/switchcraft/internal/logx"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/transport"
	"github.com/emesix/switchcraft/internal/xerr"
)

// Options controls one Apply call.
type Options struct {
	// Actor identifies who/what requested the change, recorded on the
	// AuditRecord.
	Actor string
	// DryRun bypasses all wire writes; GetConfig is still called so the
	// audit record's before_state is real (spec §4.5).
	DryRun bool
	// RollbackOnError runs plan.RollbackCommands (recovery loop disabled)
	// when recovery is exhausted during pre/main/post.
	RollbackOnError bool
	// MaxRecoveryAttempts bounds total recovery actions across the whole
	// Apply call. Zero means the spec default of 3.
	MaxRecoveryAttempts int
}

func (o Options) maxAttempts() int {
	if o.MaxRecoveryAttempts > 0 {
		return o.MaxRecoveryAttempts
	}
	return 3
}

// reconnector is satisfied by handlers that can drop and re-establish
// their underlying transport session(s); used for the "connection closed"
// recovery action. Optional: a handler without it makes a disconnect
// fatal instead of recoverable.
type reconnector interface {
	Reconnect(ctx context.Context) error
}

// Executor is stateless; its methods take everything they need as
// arguments so one value can safely serve concurrent Apply calls against
// different devices.
type Executor struct{}

// New builds an Executor.
func New() *Executor { return &Executor{} }

// Apply runs plan against h, recording one AuditRecord regardless of
// outcome (spec §4.6: "every operation... writes one AuditRecord... before
// returning").
func (e *Executor) Apply(ctx context.Context, h handler.Handler, plan *model.CommandPlan, opts Options) (*model.AuditRecord, error) {
	start := time.Now()
	rec := model.NewAuditRecord(h.DeviceID(), "apply_config", opts.Actor).WithDryRun(opts.DryRun)

	before, err := h.GetConfig(ctx)
	if err != nil {
		return rec.WithError(err).WithDuration(time.Since(start)), err
	}
	rec.WithBeforeAfter(before, nil)

	if opts.DryRun {
		logx.WithDevice(h.DeviceID()).Info("dry-run: skipping wire writes")
		return rec.WithSuccess().WithDuration(time.Since(start)), nil
	}

	var trail []string
	var stpPorts []string

	attempts := 0
	run := func(cmds []model.Command) error {
		t, ports, runErr := e.runStage(ctx, h, cmds, opts, &attempts)
		trail = append(trail, t...)
		stpPorts = append(stpPorts, ports...)
		return runErr
	}

	if err := run(plan.PreCommands); err != nil {
		return e.failAndMaybeRollback(ctx, h, rec, plan, trail, opts, err, start)
	}
	if err := run(plan.MainCommands); err != nil {
		return e.failAndMaybeRollback(ctx, h, rec, plan, trail, opts, err, start)
	}

	post := plan.PostCommands
	if len(stpPorts) > 0 {
		post = append(reenableSTP(stpPorts), post...)
	}
	if err := run(post); err != nil {
		return e.failAndMaybeRollback(ctx, h, rec, plan, trail, opts, err, start)
	}

	after, err := h.GetConfig(ctx)
	if err != nil {
		rec.WithRecoveryTrail(trail).WithError(err)
		return rec.WithDuration(time.Since(start)), err
	}

	rec.WithBeforeAfter(before, after).WithRecoveryTrail(trail).WithSuccess()
	return rec.WithDuration(time.Since(start)), nil
}

// failAndMaybeRollback finishes an AuditRecord after a stage failed,
// attempting rollback first if requested. Rollback runs with its own
// recovery loop disabled (spec §4.5) — a plain ExecuteBatch, not
// runStage.
func (e *Executor) failAndMaybeRollback(ctx context.Context, h handler.Handler, rec *model.AuditRecord, plan *model.CommandPlan, trail []string, opts Options, cause error, start time.Time) (*model.AuditRecord, error) {
	if opts.RollbackOnError && len(plan.RollbackCommands) > 0 {
		if _, rbErr := h.ExecuteBatch(ctx, plan.RollbackCommands, false); rbErr != nil {
			rollbackErr := xerr.Wrap(xerr.KindRollbackFailed, h.DeviceID(), rbErr, "rollback failed after recovery exhausted").WithTrail(trail)
			rec.WithRecoveryTrail(trail).WithError(rollbackErr)
			return rec.WithDuration(time.Since(start)), rollbackErr
		}
		trail = append(trail, "rollback completed")
	}
	rec.WithRecoveryTrail(trail).WithError(cause)
	return rec.WithDuration(time.Since(start)), cause
}

// runStage executes cmds in order, applying the spec §4.5 recovery table
// to any rejected command, up to opts.maxAttempts() total recovery
// actions counted in *attempts, which the caller shares across every stage
// of one Apply call. It returns the recovery trail, any ports that had
// spanning-tree disabled (so the caller can re-enable them in
// post-commands), and the first unrecoverable error.
func (e *Executor) runStage(ctx context.Context, h handler.Handler, cmds []model.Command, opts Options, attempts *int) (trail []string, stpPorts []string, err error) {
	max := opts.maxAttempts()

	for i := 0; i < len(cmds); {
		cmd := cmds[i]
		output, execErr := h.Execute(ctx, cmd)
		if execErr == nil && transport.ClassifyOutput(output) == transport.ExitOK {
			i++
			continue
		}

		pattern := transport.MatchedPattern(output)
		if pattern == "" && execErr != nil {
			pattern = transport.MatchedPattern(execErr.Error())
		}

		*attempts++
		if *attempts > max {
			return trail, stpPorts, xerr.New(xerr.KindVendorReject, h.DeviceID(), "recovery attempts exhausted").WithCommand(cmd.Text).WithTrail(trail)
		}

		switch pattern {
		case "already a member":
			trail = append(trail, fmt.Sprintf("%q: already a member, treated as success", cmd.Text))
			i++

		case "please disable dual mode":
			port := portForRecovery(cmd, output)
			if _, clearErr := h.ExecuteBatch(ctx, dualModeClear(port), true); clearErr != nil {
				return trail, stpPorts, xerr.Wrap(xerr.KindVendorReject, h.DeviceID(), clearErr, "dual-mode clear failed").WithCommand(cmd.Text).WithTrail(trail)
			}
			trail = append(trail, fmt.Sprintf("cleared dual-mode on %s, retrying %q", port, cmd.Text))
			// retry cmd itself; i unchanged

		case "port is in spanning-tree":
			port := portForRecovery(cmd, output)
			if _, stpErr := h.ExecuteBatch(ctx, stpDisable(port), true); stpErr != nil {
				return trail, stpPorts, xerr.Wrap(xerr.KindVendorReject, h.DeviceID(), stpErr, "spanning-tree disable failed").WithCommand(cmd.Text).WithTrail(trail)
			}
			stpPorts = append(stpPorts, port)
			trail = append(trail, fmt.Sprintf("disabled spanning-tree on %s, retrying %q", port, cmd.Text))
			// retry cmd itself; i unchanged

		case "invalid input", "unrecognized command":
			return trail, stpPorts, xerr.New(xerr.KindVendorReject, h.DeviceID(), "device rejected command").WithCommand(cmd.Text).WithTrail(trail)

		case "connection closed":
			rc, ok := h.(reconnector)
			if !ok {
				return trail, stpPorts, xerr.New(xerr.KindTransport, h.DeviceID(), "connection closed; handler has no reconnect support").WithCommand(cmd.Text).WithTrail(trail)
			}
			if rcErr := rc.Reconnect(ctx); rcErr != nil {
				return trail, stpPorts, xerr.Wrap(xerr.KindTransport, h.DeviceID(), rcErr, "reconnect failed").WithCommand(cmd.Text).WithTrail(trail)
			}
			trail = append(trail, fmt.Sprintf("reconnected after disconnect, retrying remaining plan from %q", cmd.Text))
			// retry from the same command; i unchanged

		default:
			if execErr != nil {
				return trail, stpPorts, xerr.Wrap(xerr.KindTransport, h.DeviceID(), execErr, "command execution failed").WithCommand(cmd.Text).WithTrail(trail)
			}
			return trail, stpPorts, xerr.New(xerr.KindVendorReject, h.DeviceID(), "unrecognized device rejection: "+output).WithCommand(cmd.Text).WithTrail(trail)
		}
	}

	return trail, stpPorts, nil
}

// entityPortRE is the fallback for extracting a port id from free-text
// vendor output when the triggering command itself carries no EntityID
// (spec §4.5: "extract offending port from context").
var entityPortRE = regexp.MustCompile(`ethe\s+(\S+)`)

func portForRecovery(cmd model.Command, output string) string {
	if cmd.EntityID != "" {
		return cmd.EntityID
	}
	if m := entityPortRE.FindStringSubmatch(output); m != nil {
		return m[1]
	}
	return ""
}

func dualModeClear(port string) []model.Command {
	return []model.Command{
		{Text: fmt.Sprintf("interface ethe %s", port), Tag: model.TagHousekeeping, EntityID: port},
		{Text: "no dual-mode", Tag: model.TagHousekeeping, EntityID: port},
		{Text: "exit", Tag: model.TagHousekeeping, EntityID: port},
	}
}

func stpDisable(port string) []model.Command {
	return []model.Command{
		{Text: fmt.Sprintf("interface ethe %s", port), Tag: model.TagHousekeeping, EntityID: port},
		{Text: "no spanning-tree", Tag: model.TagHousekeeping, EntityID: port},
		{Text: "exit", Tag: model.TagHousekeeping, EntityID: port},
	}
}

func reenableSTP(ports []string) []model.Command {
	var cmds []model.Command
	for _, port := range ports {
		cmds = append(cmds,
			model.Command{Text: fmt.Sprintf("interface ethe %s", port), Tag: model.TagHousekeeping, EntityID: port},
			model.Command{Text: "spanning-tree", Tag: model.TagHousekeeping, EntityID: port},
			model.Command{Text: "exit", Tag: model.TagHousekeeping, EntityID: port},
		)
	}
	return cmds
}
