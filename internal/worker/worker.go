package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eventease/backend/pkg/queue"
)

// Processor executes one job.
type Processor interface {
	Process(ctx context.Context, job *queue.Job) error
}

// JobSource is the queue the runner drains.
type JobSource interface {
	Dequeue(ctx context.Context, lists ...string) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Runner dequeues jobs and dispatches them by type, retrying failures.
type Runner struct {
	queue      JobSource
	processors map[queue.JobType]Processor
	backoff    time.Duration
	logger     *zap.Logger
}

// NewRunner creates a runner with no processors.
func NewRunner(q JobSource, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		queue:      q,
		processors: make(map[queue.JobType]Processor),
		backoff:    queue.RetryBackoff,
		logger:     logger,
	}
}

// Handle routes jobs of type t to p.
func (r *Runner) Handle(t queue.JobType, p Processor) *Runner {
	r.processors[t] = p
	return r
}

// Lists returns the queue lists the runner has processors for.
func (r *Runner) Lists() []string {
	var lists []string
	for _, t := range []queue.JobType{queue.JobTypeEmail, queue.JobTypeReport} {
		if _, ok := r.processors[t]; !ok {
			continue
		}
		if l, err := queue.ListFor(t); err == nil {
			lists = append(lists, l)
		}
	}
	return lists
}

// Process dispatches one job to its processor.
func (r *Runner) Process(ctx context.Context, job *queue.Job) error {
	p, ok := r.processors[job.Type]
	if !ok {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	return p.Process(ctx, job)
}

// Run starts the worker loop: dequeue, process, retry on error. It returns when ctx is done.
func (r *Runner) Run(ctx context.Context) {
	lists := r.Lists()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("worker stopping")
			return
		default:
		}

		job, _, err := r.queue.Dequeue(ctx, lists...)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.logger.Warn("dequeue error", zap.Error(err))
			r.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		r.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := r.Process(ctx, job); err != nil {
			r.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := r.queue.Retry(ctx, job); reErr != nil {
				r.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			r.sleep(ctx)
			continue
		}
		r.logger.Info("job completed", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	}
}

func (r *Runner) sleep(ctx context.Context) {
	t := time.NewTimer(r.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
