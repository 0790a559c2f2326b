// Package worker runs extraction jobs in the background using goroutines.
//
// Go Pattern: Goroutines and channels are Go's concurrency primitives.
// A buffered channel is the job queue, N worker goroutines read from it,
// and HTTP handlers send job IDs into it after the upload is stored.
//
// The engine itself is synchronous and knows nothing about jobs. The pool
// wraps each run with the job lifecycle: claim, run with a deadline,
// record the outcome, clean up the upload.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Shimizu-Technology/neet-question-api/internal/models"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/extraction"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/jobstatus"
)

// ErrQueueFull is returned by Submit when no queue slot is free.
var ErrQueueFull = errors.New("job queue is full; try again later")

// Job is a queued extraction job.
type Job struct {
	ID        string // The extraction_jobs record ID
	CreatedAt time.Time
}

// Extractor runs the engine on a stored upload. *extraction.Engine implements it.
type Extractor interface {
	ExtractFile(path string, progress extraction.ProgressFunc) (*extraction.ProcessingResult, error)
}

// Store is the persistence the pool needs beyond the tracker.
type Store interface {
	GetJob(ctx context.Context, id string) (*models.ExtractionJob, error)
	UpdateBatchCounts(ctx context.Context, batchID string) error
}

// Config tunes the pool.
type Config struct {
	Workers   int
	QueueSize int
	UploadDir string
	Timeout   time.Duration // Per-job engine deadline; 0 means none
}

// Pool manages a pool of worker goroutines.
type Pool struct {
	// Go Pattern: This buffered channel acts as the job queue.
	// It can hold QueueSize jobs before Submit starts refusing work.
	jobs      chan Job
	workers   int
	uploadDir string
	timeout   time.Duration

	store     Store
	tracker   *jobstatus.Tracker
	extractor Extractor

	// Go Pattern: sync.WaitGroup tracks running goroutines so Stop can
	// block until every worker has returned.
	wg sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a new worker pool.
func NewPool(cfg Config, store Store, tracker *jobstatus.Tracker, ext Extractor) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:      make(chan Job, cfg.QueueSize),
		workers:   cfg.Workers,
		uploadDir: cfg.UploadDir,
		timeout:   cfg.Timeout,
		store:     store,
		tracker:   tracker,
		extractor: ext,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	log.Printf("🚀 Starting %d extraction workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully shuts down all workers. Jobs still in the queue stay
// queued in the database.
func (p *Pool) Stop() {
	log.Println("⏹️  Stopping workers...")
	p.cancel()
	close(p.jobs)
	p.wg.Wait()
	log.Println("✅ All workers stopped")
}

// Submit adds a job to the queue without blocking.
func (p *Pool) Submit(job Job) error {
	// Go Pattern: `select` with `default` makes the send non-blocking, so a
	// full queue is reported to the HTTP handler instead of stalling it.
	select {
	case p.jobs <- job:
		log.Printf("📥 Job queued: %s", job.ID)
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueSize returns the current number of jobs in the queue.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int {
	return p.workers
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log.Printf("👷 Worker %d started", id)

	for job := range p.jobs {
		select {
		case <-p.ctx.Done():
			log.Printf("👷 Worker %d shutting down", id)
			return
		default:
		}

		log.Printf("👷 Worker %d processing job: %s (waited %s)", id, job.ID, time.Since(job.CreatedAt).Round(time.Millisecond))

		if err := p.process(job); err != nil {
			log.Printf("❌ Worker %d: job %s failed: %v", id, job.ID, err)
		} else {
			log.Printf("✅ Worker %d: job %s finished", id, job.ID)
		}
	}

	log.Printf("👷 Worker %d stopped", id)
}

// process runs one job through its lifecycle. The returned error is for
// logging only; the job's stored status already reflects the outcome.
func (p *Pool) process(job Job) error {
	// A job that has started is allowed to finish during shutdown.
	ctx := context.WithoutCancel(p.ctx)

	record, err := p.store.GetJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	path := filepath.Join(p.uploadDir, record.Filename)
	defer p.cleanup(ctx, record, path)

	started, err := p.tracker.Begin(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to claim job: %w", err)
	}
	if !started {
		log.Printf("⏭️  Job %s is %s; skipping", job.ID, record.Status)
		return nil
	}

	result, runErr := p.run(ctx, job.ID, path)
	if runErr != nil {
		if err := p.tracker.Fail(ctx, job.ID, runErr); err != nil {
			return fmt.Errorf("failed to record failure (%v): %w", runErr, err)
		}
		return runErr
	}

	if _, err := p.tracker.Complete(ctx, job.ID, result); err != nil {
		if failErr := p.tracker.Fail(ctx, job.ID, err); failErr != nil {
			log.Printf("⚠️  Failed to mark job %s failed: %v", job.ID, failErr)
		}
		return err
	}
	return nil
}

// run invokes the engine under the pool's deadline.
//
// Go Pattern: The engine is not context-aware, so it runs in its own
// goroutine and we select on its result or the deadline. On timeout the
// goroutine keeps running to completion and its result is dropped; the
// buffered channel lets it exit without a receiver.
func (p *Pool) run(ctx context.Context, jobID, path string) (*extraction.ProcessingResult, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	type outcome struct {
		result *extraction.ProcessingResult
		err    error
	}
	done := make(chan outcome, 1)
	report := p.tracker.Reporter(ctx, jobID)

	go func() {
		var progress extraction.ProgressFunc = func(percent int, message string) {
			if ctx.Err() == nil {
				report(percent, message)
			}
		}
		result, err := p.extractor.ExtractFile(path, progress)
		done <- outcome{result, err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// cleanup refreshes the owning batch and removes the stored upload.
func (p *Pool) cleanup(ctx context.Context, record *models.ExtractionJob, path string) {
	if record.BatchID != nil {
		if err := p.store.UpdateBatchCounts(ctx, *record.BatchID); err != nil {
			log.Printf("⚠️  Failed to update batch counts for %s: %v", *record.BatchID, err)
		}
	}
	if record.Filename == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️  Failed to remove upload %s: %v", path, err)
	}
}
