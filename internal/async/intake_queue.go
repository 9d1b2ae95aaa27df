package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
)

// RunFunc executes one submitted job to completion. The pipeline manager's
// Run method satisfies it.
type RunFunc func(ctx context.Context, id uuid.UUID) error

// IntakeQueue fans submitted jobs out to a bounded pool of workers. OCR is
// CPU and memory heavy, so the worker count stays small by default.
type IntakeQueue struct {
	run     RunFunc
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*IntakeQueue)

func WithWorkers(n int) Option {
	return func(q *IntakeQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *IntakeQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *IntakeQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewIntakeQueue(run RunFunc, logger *slog.Logger, opts ...Option) *IntakeQueue {
	q := &IntakeQueue{
		run:     run,
		logger:  logger,
		workers: 2,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *IntakeQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					err := q.run(ctx, job.JobID)
					cancel()

					if err != nil {
						q.logger.Error("intake run failed", "worker_id", workerID, "job_id", job.JobID, "source", job.SourceName, "error", err)
					} else {
						q.logger.Info("intake run finished", "worker_id", workerID, "job_id", job.JobID, "source", job.SourceName)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *IntakeQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", job.JobID)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued document for intake", "job_id", job.JobID, "source", job.SourceName)
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", job.JobID)
		q.ch <- job
	}
	return nil
}

func (q *IntakeQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
