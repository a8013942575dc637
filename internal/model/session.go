package model

import "time"

// SessionState is a per-device connection's lifecycle stage (spec §3).
type SessionState string

const (
	SessionDisconnected SessionState = "disconnected"
	SessionConnecting   SessionState = "connecting"
	SessionAuthenticated SessionState = "authenticated"
	SessionReady         SessionState = "ready"
	SessionClosing        SessionState = "closing"
)

// SessionInfo is the observable state of a device's pooled session, exposed
// for diagnostics; the transport owns the live connection itself.
type SessionInfo struct {
	DeviceID   string
	State      SessionState
	OpenedAt   time.Time
	LastUsedAt time.Time
}

// Idle reports whether the session has been unused for at least d.
func (s SessionInfo) Idle(d time.Duration) bool {
	if s.State != SessionReady {
		return false
	}
	return time.Since(s.LastUsedAt) >= d
}
