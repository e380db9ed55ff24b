package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Options size the orchestrator.
type Options struct {
	WorkerCount  int
	MaxQueueSize int
	JobTTL       time.Duration
}

// Orchestrator runs case jobs submitted over the API on a worker pool.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	log    *slog.Logger
	opts   Options

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch the workers.
func NewOrchestrator(opts Options, w *Worker, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 4
	}
	if opts.MaxQueueSize <= 0 {
		opts.MaxQueueSize = 100
	}
	if opts.JobTTL <= 0 {
		opts.JobTTL = time.Hour
	}
	return &Orchestrator{
		jobs:   NewJobStore(opts.JobTTL),
		queue:  make(chan *Job, opts.MaxQueueSize),
		worker: w,
		log:    log,
		opts:   opts,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.opts.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.worker.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		o.log.Warn("job rejected, queue full", "job_id", job.ID, "url", job.URL)
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.opts.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// JobCount returns how many jobs are tracked, finished ones included until
// cleanup evicts them.
func (o *Orchestrator) JobCount() int {
	return o.jobs.Len()
}
