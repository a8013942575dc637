package transport

import (
	"context"
	"testing"
	"time"

	"github.com/emesix/switchcraft/internal/model"
)

func TestPoolGetReusesConnectedSession(t *testing.T) {
	pool := NewPool(time.Minute, 4)
	device := model.Device{ID: "sw1"}
	built := 0
	factory := func() Transport {
		built++
		return NewFake("sw1")
	}

	ctx := context.Background()
	first, err := pool.Get(ctx, device, factory)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := pool.Get(ctx, device, factory)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != second {
		t.Error("expected the same pooled transport instance on second Get")
	}
	if built != 1 {
		t.Errorf("factory called %d times, want 1", built)
	}
}

func TestPoolGetReconnectsAfterIdleTimeout(t *testing.T) {
	pool := NewPool(1*time.Millisecond, 4)
	device := model.Device{ID: "sw1"}
	factory := func() Transport { return NewFake("sw1") }

	ctx := context.Background()
	tr, err := pool.Get(ctx, device, factory)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	tr2, err := pool.Get(ctx, device, factory)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !tr2.Connected() {
		t.Error("expected reconnected transport to be connected")
	}
	_ = tr
}

func TestPoolAcquireReadBoundsConcurrency(t *testing.T) {
	pool := NewPool(time.Minute, 1)
	ctx := context.Background()

	if err := pool.AcquireRead(ctx); err != nil {
		t.Fatalf("AcquireRead: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		ctx2, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := pool.AcquireRead(ctx2); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Error("second AcquireRead should have blocked while the first slot is held")
	case <-time.After(30 * time.Millisecond):
	}

	pool.ReleaseRead()
}
