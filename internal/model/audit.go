package model

import "time"

// AuditRecord is the append-only, never-mutated record of one engine
// operation (spec §3, §4.6).
type AuditRecord struct {
	Timestamp        time.Time              `json:"timestamp"`
	DeviceID         string                 `json:"device_id"`
	Operation        string                 `json:"operation"`
	Actor            string                 `json:"actor"`
	DryRun           bool                   `json:"dry_run"`
	Parameters       map[string]interface{} `json:"parameters,omitempty"`
	BeforeState      *DeviceConfig          `json:"before_state,omitempty"`
	AfterState       *DeviceConfig          `json:"after_state,omitempty"`
	Success          bool                   `json:"success"`
	Error            string                 `json:"error,omitempty"`
	RecoveryAttempts []string               `json:"recovery_attempts,omitempty"`
	DurationMS       int64                  `json:"duration_ms"`
}

// NewAuditRecord begins building a record for deviceID/operation/actor.
// Timestamp is stamped at construction.
func NewAuditRecord(deviceID, operation, actor string) *AuditRecord {
	return &AuditRecord{
		Timestamp: time.Now(),
		DeviceID:  deviceID,
		Operation: operation,
		Actor:     actor,
	}
}

// WithParameters attaches the operation's input parameters.
func (r *AuditRecord) WithParameters(params map[string]interface{}) *AuditRecord {
	r.Parameters = params
	return r
}

// WithDryRun marks whether this was a dry-run invocation.
func (r *AuditRecord) WithDryRun(dryRun bool) *AuditRecord {
	r.DryRun = dryRun
	return r
}

// WithBeforeAfter attaches the pre/post snapshots. after is nil on dry-run
// (spec §4.6: "after is skipped on dry-run").
func (r *AuditRecord) WithBeforeAfter(before, after *DeviceConfig) *AuditRecord {
	r.BeforeState = before
	r.AfterState = after
	return r
}

// WithSuccess marks the record successful.
func (r *AuditRecord) WithSuccess() *AuditRecord {
	r.Success = true
	r.Error = ""
	return r
}

// WithError marks the record failed with err's message.
func (r *AuditRecord) WithError(err error) *AuditRecord {
	r.Success = false
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// WithRecoveryTrail attaches the recovery attempts made during execution.
func (r *AuditRecord) WithRecoveryTrail(trail []string) *AuditRecord {
	r.RecoveryAttempts = append([]string(nil), trail...)
	return r
}

// WithDuration sets the operation's wall-clock duration.
func (r *AuditRecord) WithDuration(d time.Duration) *AuditRecord {
	r.DurationMS = d.Milliseconds()
	return r
}
