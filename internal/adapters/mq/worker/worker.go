// Package worker drains the allocation queue and runs each job.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/teamalloc/internal/adapters/mq/queue"
	"github.com/okian/teamalloc/internal/domain/model"
	"github.com/okian/teamalloc/pkg/logger"
	"github.com/okian/teamalloc/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Runner executes one allocation job.
type Runner interface {
	RunJob(ctx context.Context, job model.AllocationJob) (model.RunSummary, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, job model.AllocationJob) (model.RunSummary, error)

// RunJob calls f.
func (f RunnerFunc) RunJob(ctx context.Context, job model.AllocationJob) (model.RunSummary, error) {
	return f(ctx, job)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until the queue closes or it is stopped.
type Worker struct {
	queue  Queue
	runner Runner
	name   string

	shutdown chan struct{}
	done     chan struct{}
	once     sync.Once

	logger logger.Logger
}

// NewWorker creates a worker.
func NewWorker(q Queue, r Runner, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		runner:   r,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes jobs until ctx is canceled, Stop is called or the queue
// channel closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			w.process(ctx, job)
		}
	}
}

// Stop asks the worker to return after its current job.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.shutdown) })
}

// Done is closed when Run has returned.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(ctx context.Context, job model.AllocationJob) {
	metrics.WorkerBusy(1)
	defer metrics.WorkerBusy(-1)

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerError()
			w.logger.Error(ctx, "allocation job panicked",
				logger.String("job_id", job.JobID),
				logger.Any("panic", r),
			)
		}
	}()

	sum, err := w.runner.RunJob(ctx, job)
	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "allocation job failed",
			logger.String("job_id", job.JobID),
			logger.String("contest_id", job.ContestID),
			logger.String("university_id", job.UniversityID),
			logger.Error(err),
		)
		return
	}
	w.logger.Debug(ctx, "allocation job finished",
		logger.String("job_id", job.JobID),
		logger.Int("teams", sum.Teams),
		logger.Duration("took", sum.Duration),
	)
}

// Pool manages a fixed set of workers sharing one queue.
type Pool struct {
	workers []*Worker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates count workers. A non-positive count uses one worker per CPU.
func NewPool(count int, q Queue, r Runner) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*Worker, count),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewWorker(q, r, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(count)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, lets workers drain what is already queued and
// waits for them until ctx or the pool timeout expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-waitCtx.Done():
			for _, rest := range p.workers[i:] {
				rest.Stop()
			}
			return fmt.Errorf("worker pool shutdown: %w", waitCtx.Err())
		}
	}
	return nil
}
