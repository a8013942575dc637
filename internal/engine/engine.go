// Package engine orchestrates the full apply/drift lifecycle: per-device
// locking and bounded read concurrency (spec §5), the HIL safety gate
// (spec §4.7), diffing, planning, execution, and post-apply verification.
// It is the only package that sequences all the others against a live
// device registry; handlers and transports are supplied by the caller
// (normally built from inventory), not constructed here.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/emesix/switchcraft/internal/audit"
	"github.com/emesix/switchcraft/internal/diff"
	"github.com/emesix/switchcraft/internal/drift"
	"github.com/emesix/switchcraft/internal/executor"
	"github.com/emesix/switchcraft/internal/handler"
	"github.com/emesix/switchcraft/internal/logx"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/planner"
	"github.com/emesix/switchcraft/internal/safety"
	"github.com/emesix/switchcraft/internal/xerr"
)

// Default per-call deadlines (spec §5).
const (
	DefaultSingleCommandTimeout = 60 * time.Second
	DefaultBatchTimeout         = 300 * time.Second
)

// telnetReadConcurrency is the bounded read concurrency for transports
// that cannot multiplex a session (spec §5: "default 1 for Telnet...
// higher for SSH exec").
const (
	telnetReadConcurrency = 1
	sshReadConcurrency    = 4
)

// registration is everything the engine needs to serialize access to one
// device: its handler, its identity/capabilities, the exclusive writer
// lock, and the bounded read semaphore.
type registration struct {
	device  model.Device
	handler handler.Handler

	// writerLock serializes all mutating operations for this device,
	// held for the full duration of planning, execution, recovery, and
	// verification (spec §5). It is a plain mutex, not a recursive one:
	// the executor's recovery loop runs inside the same Apply call that
	// already holds the lock, so there is never a second acquisition to
	// reenter.
	writerLock sync.Mutex

	// readSem bounds concurrent read-only operations (GetConfig for
	// drift checks, previews) against this device.
	readSem *semaphore.Weighted
}

// ApplyOptions controls one ApplyConfig call.
type ApplyOptions struct {
	Actor               string
	DryRun              bool
	RollbackOnError     bool
	MaxRecoveryAttempts int
	// Timeout overrides the default batch timeout for this call.
	Timeout time.Duration
}

// ConfigEngine is the top-level orchestrator. One instance serves many
// devices concurrently; all per-device state is reached through its
// registry, guarded by regMu.
type ConfigEngine struct {
	regMu sync.RWMutex
	reg   map[string]*registration

	safetyGate *safety.Gate
	executor   *executor.Executor
}

// New builds a ConfigEngine. gate may be nil, meaning no HIL restriction
// is enforced (equivalent to a disabled safety.Gate).
func New(gate *safety.Gate) *ConfigEngine {
	return &ConfigEngine{
		reg:      make(map[string]*registration),
		safetyGate: gate,
		executor: executor.New(),
	}
}

// Register binds a handler to a device id, sizing its read semaphore from
// the device's transport kind. Call once per device at startup, normally
// driven by inventory.
func (e *ConfigEngine) Register(dev model.Device, h handler.Handler) {
	e.regMu.Lock()
	defer e.regMu.Unlock()
	e.reg[dev.ID] = &registration{
		device:  dev,
		handler: h,
		readSem: semaphore.NewWeighted(readConcurrencyFor(dev.Transport)),
	}
}

func readConcurrencyFor(vendor model.TransportKind) int64 {
	if vendor == model.TransportBrocadeTelnet {
		return telnetReadConcurrency
	}
	return sshReadConcurrency
}

func (e *ConfigEngine) lookup(deviceID string) (*registration, error) {
	e.regMu.RLock()
	defer e.regMu.RUnlock()
	reg, ok := e.reg[deviceID]
	if !ok {
		return nil, xerr.New(xerr.KindValidation, deviceID, "device is not registered with the engine")
	}
	return reg, nil
}

// GetConfig fetches a device's current configuration under the bounded
// read semaphore, without taking the writer lock.
func (e *ConfigEngine) GetConfig(ctx context.Context, deviceID string) (*model.DeviceConfig, error) {
	reg, err := e.lookup(deviceID)
	if err != nil {
		return nil, err
	}
	if err := reg.readSem.Acquire(ctx, 1); err != nil {
		return nil, xerr.Wrap(xerr.KindCancelled, deviceID, err, "acquiring read slot")
	}
	defer reg.readSem.Release(1)

	ctx, cancel := withDefaultTimeout(ctx, DefaultSingleCommandTimeout)
	defer cancel()

	return reg.handler.GetConfig(ctx)
}

// CheckDrift fetches the device's current configuration and compares it
// against desired, reporting per-entity verdicts (spec §4.6). Read-only:
// acquires the read semaphore, never the writer lock.
func (e *ConfigEngine) CheckDrift(ctx context.Context, deviceID string, desired *model.DesiredState) (*drift.Report, error) {
	observed, err := e.GetConfig(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return drift.Compute(desired, observed), nil
}

// ApplyConfig reconciles one device toward desired (spec §4.5, §5):
// acquires the device's writer lock for the full call, runs desired's
// declared scope past the HIL safety gate, fetches the current config,
// diffs, plans, executes (with recovery and rollback per opts), and
// verifies the result is drift-free. Every call for a registered device
// produces exactly one AuditRecord, logged through internal/audit
// regardless of outcome — including rejections from the safety gate, a
// failed current-config fetch, and planner rejections, none of which reach
// the executor. A call cancelled before any wire write returns without a
// record.
func (e *ConfigEngine) ApplyConfig(ctx context.Context, deviceID string, desired *model.DesiredState, opts ApplyOptions) (*model.AuditRecord, error) {
	reg, err := e.lookup(deviceID)
	if err != nil {
		return nil, err
	}

	// Cancellation before any wire write aborts cleanly with no audit
	// record (spec §5).
	if err := ctx.Err(); err != nil {
		return nil, xerr.Wrap(xerr.KindCancelled, deviceID, err, "apply_config cancelled before acquiring writer lock")
	}

	ctx, cancel := withDefaultTimeout(ctx, pickTimeout(opts.Timeout, DefaultBatchTimeout))
	defer cancel()

	reg.writerLock.Lock()
	defer reg.writerLock.Unlock()

	// Checked against the desired state's declared scope, before the
	// current-state fetch opens any connection: a HIL violation must
	// reject with no wire activity at all (spec §4.7, §8 scenario 5).
	if e.safetyGate != nil {
		if err := e.safetyGate.Check(operationFromDesired(deviceID, desired)); err != nil {
			rec := model.NewAuditRecord(deviceID, "apply_config", opts.Actor).
				WithDryRun(opts.DryRun).
				WithError(err)
			e.logAudit(rec)
			return rec, err
		}
	}

	before, err := reg.handler.GetConfig(ctx)
	if err != nil {
		fetchErr := xerr.Wrap(xerr.KindTransport, deviceID, err, "fetching current config before planning")
		rec := model.NewAuditRecord(deviceID, "apply_config", opts.Actor).
			WithDryRun(opts.DryRun).
			WithError(fetchErr)
		e.logAudit(rec)
		return rec, fetchErr
	}

	d := diff.Compute(before, desired.ToDeviceConfig(), desired.Mode)

	if d.IsEmpty() {
		rec := model.NewAuditRecord(deviceID, "apply_config", opts.Actor).
			WithDryRun(opts.DryRun).
			WithBeforeAfter(before, before).
			WithSuccess()
		e.logAudit(rec)
		return rec, nil
	}

	plan, err := planner.For(reg.device.Transport).Plan(ctx, reg.handler, before, d, planner.Options{
		SaveOnSuccess: reg.device.Capabilities.WriteMemoryRequired,
	})
	if err != nil {
		// Preserve the handler's own Kind (e.g. validation, never touching
		// the wire) rather than flattening every planning failure to
		// conflict (spec §7, §8 scenarios 3-4).
		kind := xerr.KindConflict
		var ee *xerr.EngineError
		if errors.As(err, &ee) {
			kind = ee.Kind
		}
		planErr := xerr.Wrap(kind, deviceID, err, "planning failed")
		rec := model.NewAuditRecord(deviceID, "apply_config", opts.Actor).
			WithDryRun(opts.DryRun).
			WithBeforeAfter(before, before).
			WithError(planErr)
		e.logAudit(rec)
		return rec, planErr
	}

	if err := ctx.Err(); err != nil {
		return nil, xerr.Wrap(xerr.KindCancelled, deviceID, err, "apply_config cancelled before any wire write")
	}

	rec, applyErr := e.executor.Apply(ctx, reg.handler, plan, executor.Options{
		Actor:               opts.Actor,
		DryRun:              opts.DryRun,
		RollbackOnError:     opts.RollbackOnError,
		MaxRecoveryAttempts: opts.MaxRecoveryAttempts,
	})

	if applyErr != nil && ctx.Err() != nil {
		// Execution was interrupted by cancellation/deadline rather than
		// a vendor rejection: reclassify so the audit record and return
		// error both read error=cancelled (spec §5).
		applyErr = xerr.Wrap(xerr.KindCancelled, deviceID, applyErr, "apply_config cancelled during execution")
		if rec != nil {
			rec.WithError(applyErr)
		}
	}

	if rec != nil {
		e.logAudit(rec)
	}
	if applyErr != nil {
		return rec, applyErr
	}

	if opts.DryRun {
		return rec, nil
	}

	after, err := reg.handler.GetConfig(ctx)
	if err != nil {
		// The write already succeeded and was audited; a failed
		// verification fetch doesn't retroactively unwind it.
		logx.WithDevice(deviceID).Warnf("post-apply verification fetch failed: %v", err)
		return rec, nil
	}
	verify := diff.Compute(after, desired.ToDeviceConfig(), desired.Mode)
	if !verify.IsEmpty() {
		return rec, xerr.New(xerr.KindConflict, deviceID, "post-apply verification found residual diff against desired state")
	}

	return rec, nil
}

func (e *ConfigEngine) logAudit(rec *model.AuditRecord) {
	if err := audit.Log(rec); err != nil {
		logx.WithDevice(rec.DeviceID).Warnf("audit log write failed: %v", err)
	}
}

// operationFromDesired projects desired's declared VLAN/port scope into the
// safety.Operation the HIL gate checks. Built from the declared intent
// directly rather than from a computed Diff, so the gate can run before
// the current-state fetch opens any connection (spec §4.7).
func operationFromDesired(deviceID string, desired *model.DesiredState) safety.Operation {
	op := safety.Operation{DeviceID: deviceID}
	for id := range desired.VLANs {
		op.VLANIDs = append(op.VLANIDs, id)
	}
	for id := range desired.Ports {
		op.PortIDs = append(op.PortIDs, id)
	}
	return op
}

func pickTimeout(requested, fallback time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	return fallback
}

// withDefaultTimeout applies d as a deadline unless ctx already carries an
// earlier one; context.WithTimeout composes correctly with any existing
// parent deadline regardless (the earlier of the two always wins), so
// this only needs to avoid leaking a cancel func the caller can't reach.
func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}
