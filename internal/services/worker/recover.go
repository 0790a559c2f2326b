package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/Shimizu-Technology/neet-question-api/internal/models"
)

// ErrInterrupted is the failure recorded for jobs a previous run left processing.
var ErrInterrupted = errors.New("extraction was interrupted by a server restart")

// RecoveryStore finds jobs a previous run left unfinished. *database.DB implements it.
type RecoveryStore interface {
	FailInterruptedJobs(ctx context.Context, reason string) ([]models.ExtractionJob, error)
	ListQueuedJobs(ctx context.Context) ([]models.ExtractionJob, error)
}

// Recover settles jobs left over from a previous run. Jobs that were
// processing are failed; their worker is gone. Jobs that were queued are
// submitted again, oldest first, and any that no longer fit in the queue
// are failed with ErrQueueFull. Call it after Start and before serving
// requests. It returns the number of jobs requeued.
func (p *Pool) Recover(ctx context.Context, store RecoveryStore) (int, error) {
	interrupted, err := store.FailInterruptedJobs(ctx, ErrInterrupted.Error())
	if err != nil {
		return 0, err
	}
	for i := range interrupted {
		log.Printf("⚠️  Job %s was interrupted; marked failed", interrupted[i].ID)
		p.cleanup(ctx, &interrupted[i], filepath.Join(p.uploadDir, interrupted[i].Filename))
	}

	queued, err := store.ListQueuedJobs(ctx)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for i := range queued {
		job := &queued[i]
		if err := p.Submit(Job{ID: job.ID, CreatedAt: job.CreatedAt}); err != nil {
			if failErr := p.tracker.Fail(ctx, job.ID, err); failErr != nil {
				return requeued, fmt.Errorf("failed to fail job %s: %w", job.ID, failErr)
			}
			p.cleanup(ctx, job, filepath.Join(p.uploadDir, job.Filename))
			continue
		}
		requeued++
	}

	if len(interrupted) > 0 || len(queued) > 0 {
		log.Printf("♻️  Recovered jobs: %d interrupted, %d requeued of %d queued", len(interrupted), requeued, len(queued))
	}
	return requeued, nil
}
