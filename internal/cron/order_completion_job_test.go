package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/showlinehq/showline-backend/pkg/logger"
)

type fakeSweeper struct {
	swept int
	err   error
	calls int
	last  time.Time
}

func (f *fakeSweeper) SweepStale(_ context.Context, now time.Time) (int, error) {
	f.calls++
	f.last = now
	return f.swept, f.err
}

func TestOrderCompletionJobSweeps(t *testing.T) {
	sweeper := &fakeSweeper{swept: 3}
	job, err := NewOrderCompletionJob(OrderCompletionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Orders: sweeper,
	})
	if err != nil {
		t.Fatalf("NewOrderCompletionJob: %v", err)
	}
	if job.Name() != "order-completion" {
		t.Fatalf("unexpected job name: %s", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.calls)
	}
	if sweeper.last.IsZero() {
		t.Fatal("expected sweep timestamp to be set")
	}
}

func TestOrderCompletionJobPropagatesError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db down")}
	job, err := NewOrderCompletionJob(OrderCompletionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Orders: sweeper,
	})
	if err != nil {
		t.Fatalf("NewOrderCompletionJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep error to propagate")
	}
}
