package transport

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/emesix/switchcraft/internal/logx"
	"github.com/emesix/switchcraft/internal/model"
)

// pooledSession tracks one device's transport alongside its last-used time
// for idle reaping (spec §5: "at most one open session per device; idle
// sessions time out after 5 minutes").
type pooledSession struct {
	mu         sync.Mutex
	transport  Transport
	lastUsedAt time.Time
}

// Pool holds at most one open session per device and bounds concurrent
// read-only operations across the whole pool with a weighted semaphore
// (spec §9: "a bounded pool per device guarded by a semaphore; writer lock
// is distinct from the pool and always exclusive").
type Pool struct {
	idleTimeout time.Duration
	readSem     *semaphore.Weighted

	mu       sync.Mutex
	sessions map[string]*pooledSession
}

// NewPool builds a pool with the given idle timeout and maximum concurrent
// reads.
func NewPool(idleTimeout time.Duration, maxConcurrentReads int64) *Pool {
	if maxConcurrentReads < 1 {
		maxConcurrentReads = 1
	}
	return &Pool{
		idleTimeout: idleTimeout,
		readSem:     semaphore.NewWeighted(maxConcurrentReads),
		sessions:    make(map[string]*pooledSession),
	}
}

// Get returns the pooled session for device, building it via factory if
// absent, and transparently reconnecting if the existing session has gone
// idle past the timeout or dropped.
func (p *Pool) Get(ctx context.Context, device model.Device, factory func() Transport) (Transport, error) {
	p.mu.Lock()
	ps, ok := p.sessions[device.ID]
	if !ok {
		ps = &pooledSession{transport: factory()}
		p.sessions[device.ID] = ps
	}
	p.mu.Unlock()

	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.transport.Connected() && ps.lastUsedAt.Add(p.idleTimeout).Before(time.Now()) {
		logx.WithDevice(device.ID).Info("idle session timed out, reconnecting")
		ps.transport.Close()
	}

	if !ps.transport.Connected() {
		if err := ps.transport.Connect(ctx); err != nil {
			return nil, err
		}
	}
	ps.lastUsedAt = time.Now()
	return ps.transport, nil
}

// AcquireRead bounds concurrent read-only sessions per spec §5 (default 1
// for Telnet which cannot multiplex, higher for SSH exec — callers size
// the pool's semaphore accordingly at construction). Release must be called
// exactly once per successful AcquireRead.
func (p *Pool) AcquireRead(ctx context.Context) error {
	return p.readSem.Acquire(ctx, 1)
}

// ReleaseRead releases a slot acquired by AcquireRead.
func (p *Pool) ReleaseRead() {
	p.readSem.Release(1)
}

// CloseAll tears down every pooled session.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, ps := range p.sessions {
		ps.mu.Lock()
		if ps.transport.Connected() {
			if err := ps.transport.Close(); err != nil {
				logx.WithDevice(id).WithField("error", err).Warn("error closing session")
			}
		}
		ps.mu.Unlock()
	}
}

// Evict forces the next Get for device to reconnect, used after a fatal
// transport error that the caller doesn't want silently retried within the
// same pooled instance.
func (p *Pool) Evict(deviceID string) {
	p.mu.Lock()
	ps, ok := p.sessions[deviceID]
	p.mu.Unlock()
	if !ok {
		return
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.transport.Connected() {
		ps.transport.Close()
	}
}
