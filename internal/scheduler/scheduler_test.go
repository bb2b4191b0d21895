package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSchedulerImmediateFirstTick(t *testing.T) {
	s := New(Options{Interval: time.Hour, Immediate: true}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	ticked := make(chan time.Time, 1)

	go func() {
		_ = s.Run(ctx, func(ctx context.Context, now time.Time) error {
			ticked <- now
			cancel()
			return nil
		})
	}()

	select {
	case <-ticked:
	case <-time.After(time.Second):
		t.Fatal("immediate scheduler did not tick right away")
	}
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	s := New(Options{Interval: 5 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx, func(ctx context.Context, now time.Time) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSchedulerContinuesAfterTickError(t *testing.T) {
	s := New(Options{Interval: time.Millisecond, Immediate: true}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	done := make(chan struct{})

	go func() {
		_ = s.Run(ctx, func(ctx context.Context, now time.Time) error {
			calls++
			if calls == 1 {
				return errors.New("boom")
			}
			if calls == 3 {
				close(done)
				cancel()
			}
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler stopped after a tick error")
	}
}

func TestSchedulerRejectsNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero interval")
		}
	}()
	New(Options{}, zerolog.Nop())
}
