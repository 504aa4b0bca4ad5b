package jobs

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/cloo-solutions/docintel/internal/domain"
	"github.com/cloo-solutions/docintel/internal/telemetry"
)

// ErrDispatcherStopped is returned by Submit after Stop has been called.
var ErrDispatcherStopped = errors.New("dispatcher is shutting down")

// Runner processes one job to completion.
type Runner interface {
	Run(ctx context.Context, job domain.Job) Outcome
}

// Dispatcher runs every accepted job in its own goroutine, off the caller's
// request path. Jobs are never cancelled; Stop waits for them.
type Dispatcher struct {
	runner   Runner
	mu       sync.Mutex
	stopping bool
	wg       sync.WaitGroup
	inFlight atomic.Int64
	onDone   func(domain.Job, Outcome)
}

// NewDispatcher creates a new Dispatcher instance
func NewDispatcher(runner Runner) *Dispatcher {
	return &Dispatcher{runner: runner}
}

// OnDone registers a callback invoked after each job finishes. It must be set
// before the first Submit.
func (d *Dispatcher) OnDone(fn func(domain.Job, Outcome)) {
	d.onDone = fn
}

// Submit validates job and schedules it. It never waits for processing.
func (d *Dispatcher) Submit(job domain.Job) error {
	if err := domain.ValidateJob(job); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopping {
		return ErrDispatcherStopped
	}

	d.wg.Add(1)
	d.inFlight.Add(1)
	go d.run(job)

	log.Printf("job %s: accepted", job.DocumentID)
	return nil
}

func (d *Dispatcher) run(job domain.Job) {
	defer d.wg.Done()
	defer d.inFlight.Add(-1)

	// jobs outlive the request that submitted them
	ctx, span := telemetry.StartTransaction(context.Background(), "job "+job.DocumentID, "queue.process")
	defer span.End()

	outcome := d.runner.Run(ctx, job)
	if d.onDone != nil {
		d.onDone(job, outcome)
	}
}

// InFlight returns the number of jobs currently running.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// Stop rejects new jobs and waits for running ones to finish or ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.stopping = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Dispatcher shutdown complete")
		return nil
	case <-ctx.Done():
		log.Printf("Dispatcher shutdown interrupted with %d jobs running", d.InFlight())
		return ctx.Err()
	}
}
