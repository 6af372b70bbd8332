package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestPoolContinuesOnErrorAndReportsExitCount(t *testing.T) {
	const total = 10
	const failing = 3

	var processed atomic.Int64
	pool := New(4, func(ctx context.Context, job Job) (bool, error) {
		processed.Add(1)
		if job.Index < failing {
			return false, errors.New("conversion failed")
		}
		return false, nil
	})

	jobs := make(chan Job)
	go func() {
		for i := 0; i < total; i++ {
			jobs <- Job{Index: i}
		}
		close(jobs)
	}()

	summary := pool.Run(context.Background(), jobs)

	if processed.Load() != total {
		t.Fatalf("processed %d jobs, want %d", processed.Load(), total)
	}
	if summary.Succeeded != total-failing {
		t.Fatalf("succeeded=%d, want %d", summary.Succeeded, total-failing)
	}
	if summary.Failed != failing {
		t.Fatalf("failed=%d, want %d", summary.Failed, failing)
	}
	if summary.Canceled {
		t.Fatal("expected non-fatal errors to not cancel the run")
	}
}

func TestPoolFatalErrorCancelsRemainingWork(t *testing.T) {
	const total = 50

	var processed atomic.Int64
	pool := New(4, func(ctx context.Context, job Job) (bool, error) {
		processed.Add(1)
		if job.Index == 0 {
			return true, errors.New("auth failure")
		}
		<-ctx.Done()
		return false, ctx.Err()
	})

	jobs := make(chan Job, total)
	for i := 0; i < total; i++ {
		jobs <- Job{Index: i}
	}
	close(jobs)

	summary := pool.Run(context.Background(), jobs)

	if !summary.Canceled {
		t.Fatal("expected fatal error to mark the run canceled")
	}
	if processed.Load() > int64(total) {
		t.Fatalf("processed more jobs than were queued: %d", processed.Load())
	}
}

func TestPoolSingleWorkerIsDeterministic(t *testing.T) {
	pool := New(1, func(ctx context.Context, job Job) (bool, error) {
		return false, nil
	})

	jobs := make(chan Job, 5)
	for i := 0; i < 5; i++ {
		jobs <- Job{Index: i}
	}
	close(jobs)

	summary := pool.Run(context.Background(), jobs)
	if summary.Succeeded != 5 {
		t.Fatalf("succeeded=%d, want 5", summary.Succeeded)
	}
}
