/*
Package worker runs business logic on a single background goroutine.

PURPOSE:
  Every mutation the API performs goes through one Queue, so two requests can
  never race on the same assignment: jobs run strictly one after another, in
  the order they were handed over.

DESIGN:
  - One goroutine, started with Start and stopped with Stop
  - Do hands a job to that goroutine and waits for it to finish
  - The job receives the caller's context; a long job (bulk mark-as-paid)
    checks it between steps and stops early when the caller goes away
  - A panicking job is recovered and reported as an error

USAGE:
  q := worker.NewQueue(logger)
  q.Start()
  defer q.Stop()

  err := q.Do(ctx, func(ctx context.Context) error {
      _, err := debtService.MarkPaid(ctx, kind, id, nil)
      return err
  })

SEE ALSO:
  - api/handlers.go: mutations are wrapped in Queue.Do
  - debts/mutation.go: MarkAllPaid honors cancellation
*/
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ErrStopped is returned by Do when the queue is not running.
var ErrStopped = errors.New("worker queue stopped")

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Queue is a serial job runner.
type Queue struct {
	logger zerolog.Logger

	jobs    chan job
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewQueue creates a stopped queue.
func NewQueue(logger zerolog.Logger) *Queue {
	return &Queue{
		logger: logger.With().Str("component", "worker").Logger(),
		jobs:   make(chan job),
	}
}

// Start begins processing jobs. Calling Start on a running queue does nothing.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.stop = make(chan struct{})
	q.running = true
	q.wg.Add(1)

	go q.run(q.stop)

	q.logger.Info().Msg("worker queue started")
}

// Stop waits for the current job to finish and stops the queue. Jobs not yet
// handed over fail with ErrStopped.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}
	close(q.stop)
	q.wg.Wait()
	q.running = false

	q.logger.Info().Msg("worker queue stopped")
}

// Do runs fn on the queue goroutine and returns its error once it completes.
// If ctx ends before the queue picks the job up, fn never runs.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	q.mu.Lock()
	running, stop := q.running, q.stop
	q.mu.Unlock()
	if !running {
		return ErrStopped
	}

	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case q.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return ErrStopped
	}
	return <-j.done
}

func (q *Queue) run(stop <-chan struct{}) {
	defer q.wg.Done()

	for {
		select {
		case j := <-q.jobs:
			j.done <- q.execute(j)
		case <-stop:
			return
		}
	}
}

func (q *Queue) execute(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().Interface("panic", r).Msg("job panicked")
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	if err := j.ctx.Err(); err != nil {
		return err
	}
	return j.fn(j.ctx)
}
