// Package transport implements the session layer: per-vendor connections
// that expose one uniform contract (spec §4.1) over four incompatible wire
// protocols — Brocade raw Telnet, Zyxel interactive SSH CLI, Zyxel HTTPS
// CGI forms, and OpenWrt SSH exec + SCP.
package transport

import (
	"context"
	"time"
)

// ExitHint classifies how a command's output should be interpreted by the
// executor, independent of the raw text.
type ExitHint string

const (
	ExitOK        ExitHint = "ok"
	ExitError     ExitHint = "error" // a recognized vendor-reject pattern appeared
	ExitDisconnect ExitHint = "disconnect"
)

// CommandResult is one command's outcome within a batch.
type CommandResult struct {
	Command string
	Output  string
	Hint    ExitHint
}

// Transport is the uniform contract every vendor session implements (spec
// §4.1). Connect/Close manage the underlying session; Execute/ExecuteBatch
// run commands against it.
type Transport interface {
	// Connect establishes and authenticates the session, retrying per the
	// backoff policy on failure. Idempotent if already connected.
	Connect(ctx context.Context) error

	// Close tears down the session. Safe to call on an unconnected
	// transport.
	Close() error

	// Connected reports whether a live session is currently held.
	Connected() bool

	// Execute runs a single command and returns its raw output plus an
	// exit hint derived from vendor-reject pattern matching.
	Execute(ctx context.Context, command string) (CommandResult, error)

	// ExecuteBatch runs commands in submission order. If stopOnError is
	// true, a command whose hint is ExitError halts the batch; results for
	// commands not attempted are omitted.
	ExecuteBatch(ctx context.Context, commands []string, stopOnError bool) ([]CommandResult, error)

	// DeviceID identifies which device this transport is bound to.
	DeviceID() string
}

// ConfigCapableTransport is implemented by transports that support a
// dedicated config-mode batch (Brocade); others just use ExecuteBatch.
type ConfigCapableTransport interface {
	Transport
	ExecuteConfigBatch(ctx context.Context, commands []string, stopOnError bool) ([]CommandResult, error)
}

// SaveCapableTransport is implemented by transports whose devices require
// an explicit persistence step after config changes (Brocade "write
// memory").
type SaveCapableTransport interface {
	Transport
	SaveConfig(ctx context.Context) error
}

// FileTransport is implemented by transports that support whole-file
// config edits via SCP (OpenWrt).
type FileTransport interface {
	Transport
	ReadFile(ctx context.Context, remotePath string) ([]byte, error)
	WriteFile(ctx context.Context, remotePath string, content []byte) error
}

// DefaultCommandTimeout and DefaultBatchTimeout are the per-call deadlines
// of spec §5. Nothing in this package applies them; the engine applies its
// own equivalent constants when a caller supplies no context deadline.
const (
	DefaultCommandTimeout = 60 * time.Second
	DefaultBatchTimeout   = 300 * time.Second
)
