package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingEngine struct {
	triggers int32
}

func (c *countingEngine) Trigger() {
	atomic.AddInt32(&c.triggers, 1)
}

func TestSchedulerTriggersImmediatelyAndOnTick(t *testing.T) {
	engine := &countingEngine{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewReconcileScheduler(engine, 10*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&engine.triggers) < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 triggers, got %d", atomic.LoadInt32(&engine.triggers))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSchedulerStops(t *testing.T) {
	engine := &countingEngine{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewReconcileScheduler(engine, time.Hour, logger)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerDefaultsInterval(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewReconcileScheduler(&countingEngine{}, 0, logger)
	if s.interval != 5*time.Minute {
		t.Errorf("expected default interval 5m, got %v", s.interval)
	}
}
