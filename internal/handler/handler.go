// Package handler defines the device-handler contract (spec §4.2): each
// vendor handler owns parsing of its raw CLI/file output and emission of
// its wire commands, and speaks only the normalized model to callers.
package handler

import (
	"context"

	"github.com/emesix/switchcraft/internal/model"
)

// Handler is the capability set every vendor handler implements. It is
// defined independently of the engine to break the cyclic reference
// between handlers (which need to retry through the engine's recovery
// loop) and the engine (which calls handlers) — spec §9.
type Handler interface {
	DeviceID() string

	GetVLANs(ctx context.Context) (map[int]model.VLAN, error)
	GetPorts(ctx context.Context) (map[string]model.Port, error)
	GetConfig(ctx context.Context) (*model.DeviceConfig, error)

	CreateVLAN(ctx context.Context, vlan model.VLAN) ([]model.Command, error)
	DeleteVLAN(ctx context.Context, id int) ([]model.Command, error)
	ConfigurePort(ctx context.Context, before, after model.Port) ([]model.Command, error)

	SaveConfig(ctx context.Context) error

	// Execute and ExecuteBatch give the executor a uniform way to run
	// already-planned commands without re-deriving them.
	Execute(ctx context.Context, command model.Command) (string, error)
	ExecuteBatch(ctx context.Context, commands []model.Command, stopOnError bool) ([]CommandOutcome, error)
}

// ConfigBatchHandler is implemented by handlers whose vendor requires a
// dedicated config-mode wrapper around a batch (Brocade).
type ConfigBatchHandler interface {
	Handler
	ExecuteConfigBatch(ctx context.Context, commands []model.Command, stopOnError bool) ([]CommandOutcome, error)
}

// CommandOutcome pairs a planned Command with its wire result.
type CommandOutcome struct {
	Command model.Command
	Output  string
	Failed  bool
}
