package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubDeactivator struct {
	calls atomic.Int32
	n     int
	err   error
}

func (s *stubDeactivator) DeactivateExpired(context.Context) (int, error) {
	s.calls.Add(1)
	return s.n, s.err
}

func TestExpirySweeper_RunOnce(t *testing.T) {
	stub := &stubDeactivator{n: 3}
	sweeper := NewExpirySweeper(stub, time.Minute, zap.NewNop())
	assert.Equal(t, 3, sweeper.RunOnce(context.Background()))

	stub.err = errors.New("db down")
	assert.Equal(t, 0, sweeper.RunOnce(context.Background()))
}

func TestExpirySweeper_StartRunsImmediatelyAndStops(t *testing.T) {
	stub := &stubDeactivator{}
	sweeper := NewExpirySweeper(stub, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return stub.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestExpirySweeper_EndToEnd(t *testing.T) {
	inv := newInventory(t, overnight, 1, "101")
	inv.block("101", "2026-02-01", "2026-02-03", "2026-01-20", true)
	windows, cache := newBlockedWindows(inv, "2026-01-25")

	sweeper := NewExpirySweeper(windows, time.Hour, zap.NewNop())
	assert.Equal(t, 1, sweeper.RunOnce(context.Background()))
	assert.Equal(t, 0, sweeper.RunOnce(context.Background()))
	assert.Equal(t, 1, cache.rangeCalls())
}
