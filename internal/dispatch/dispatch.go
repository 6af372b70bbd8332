// Package dispatch implements the bounded-parallelism worker pool that
// drives one row each through convert → upload.
//
// A channel-pipeline concurrency model generalized from "fixed
// reader/transformer/loader worker counts over a row channel" to "N
// uniform row workers over a job channel," using an errgroup.WithContext
// + job-channel worker pool for structured cancellation.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Job is the unit of work one worker processes end to end.
type Job struct {
	Index   int
	Payload any
}

// RowError is one per-row failure, carrying the row index for the run
// summary.
type RowError struct {
	Index int
	Err   error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Index, e.Err) }

// Handler processes one job; a non-nil error is a per-row failure unless
// fatal is true, in which case the dispatcher cancels remaining workers.
type Handler func(ctx context.Context, job Job) (fatal bool, err error)

// errAgg aggregates per-row errors, keeping the first N messages for the
// run summary while still counting every occurrence — grounded directly on
// a common errAgg/newErrAgg aggregation shape.
type errAgg struct {
	mu      sync.Mutex
	limit   int
	count   int
	first   []RowError
	buckets map[string]int
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit, buckets: make(map[string]int)}
}

func (a *errAgg) add(re RowError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buckets[re.Err.Error()]++
	if a.count < a.limit {
		a.first = append(a.first, re)
	}
	a.count++
}

// Summary is the run-end report.
type Summary struct {
	Succeeded int
	Failed    int
	FirstErrors []RowError
	Canceled  bool
}

// Pool runs a bounded-parallel worker pool of size N over jobs: N=1
// gives deterministic, order-preserving processing; N>1 does not
// preserve order across workers.
type Pool struct {
	Workers int
	handler Handler
}

// New constructs a Pool. workers<=0 defaults to 5.
func New(workers int, handler Handler) *Pool {
	if workers <= 0 {
		workers = 5
	}
	return &Pool{Workers: workers, handler: handler}
}

// Run dispatches every job in jobs to the worker pool and returns once all
// jobs have been processed or a fatal error triggered cancellation and
// drain.
func (p *Pool) Run(ctx context.Context, jobs <-chan Job) Summary {
	const firstNErrors = 10
	agg := newErrAgg(firstNErrors)

	var succeeded, failed atomic.Int64
	var fatalHit atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)

	for {
		job, ok := <-jobs
		if !ok {
			break
		}
		if gctx.Err() != nil {
			// Cancellation in effect: drain the remaining queue without
			// dispatching more work.
			continue
		}

		j := job
		g.Go(func() error {
			fatal, err := p.handler(gctx, j)
			if err != nil {
				if fatal {
					fatalHit.Store(true)
					agg.add(RowError{Index: j.Index, Err: err})
					failed.Add(1)
					return err
				}
				agg.add(RowError{Index: j.Index, Err: err})
				failed.Add(1)
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}

	_ = g.Wait()

	return Summary{
		Succeeded:   int(succeeded.Load()),
		Failed:      int(failed.Load()),
		FirstErrors: agg.first,
		Canceled:    fatalHit.Load(),
	}
}
