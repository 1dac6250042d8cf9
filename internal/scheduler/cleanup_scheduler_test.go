package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingCleaner struct {
	calls atomic.Int32
}

func (c *countingCleaner) CleanupCache(_ context.Context, _ int) (int, error) {
	c.calls.Add(1)
	return 1, nil
}

func TestCleanupSchedulerRunsOnInterval(t *testing.T) {
	cleaner := &countingCleaner{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewCleanupScheduler(cleaner, 10*time.Millisecond, 30, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for cleaner.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("scheduler ran %d times, want at least 2", cleaner.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestCleanupSchedulerStopsOnContextCancel(t *testing.T) {
	cleaner := &countingCleaner{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewCleanupScheduler(cleaner, time.Hour, 30, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}
