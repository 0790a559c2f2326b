// Package jobstatus owns the lifecycle of an extraction job:
//
//	queued -> processing -> completed | failed
//	queued -> cancelled
//
// Every transition goes through a Tracker, which persists the new status,
// appends a line to the job's log, and fires webhooks on terminal states.
package jobstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/Shimizu-Technology/neet-question-api/internal/models"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/extraction"
)

// Store is the persistence the tracker needs. *database.DB implements it.
type Store interface {
	GetJob(ctx context.Context, id string) (*models.ExtractionJob, error)
	ClaimJob(ctx context.Context, id string) (bool, error)
	UpdateJobProgress(ctx context.Context, id string, progress int) error
	AppendJobLog(ctx context.Context, jobID string, progress int, message string) error
	CompleteJob(ctx context.Context, j *models.ExtractionJob, questions []models.Question) error
	FailJob(ctx context.Context, id, reason string) error
	CancelJob(ctx context.Context, id string) error
}

// Notifier delivers job events to the webhooks of the owning API key.
// *webhook.Service implements it.
type Notifier interface {
	NotifyEvent(ctx context.Context, apiKeyID, event string, data interface{})
}

// Tracker applies job status transitions.
type Tracker struct {
	store    Store
	notifier Notifier
}

// New creates a tracker. notifier may be nil to disable webhooks.
func New(store Store, notifier Notifier) *Tracker {
	return &Tracker{store: store, notifier: notifier}
}

// Begin moves a queued job to processing. It returns false, without error,
// when the job is no longer queued, for example because it was cancelled
// while waiting in the queue.
func (t *Tracker) Begin(ctx context.Context, id string) (bool, error) {
	claimed, err := t.store.ClaimJob(ctx, id)
	if err != nil || !claimed {
		return false, err
	}
	t.appendLog(ctx, id, 0, "Processing started")
	return true, nil
}

// Progress records a progress milestone. percent is clamped to 0-100.
func (t *Tracker) Progress(ctx context.Context, id string, percent int, message string) error {
	percent = clamp(percent)
	if err := t.store.UpdateJobProgress(ctx, id, percent); err != nil {
		return err
	}
	t.appendLog(ctx, id, percent, message)
	return nil
}

// Reporter adapts Progress to the engine's callback. Persistence errors are
// logged, never returned to the engine.
func (t *Tracker) Reporter(ctx context.Context, id string) extraction.ProgressFunc {
	return func(percent int, message string) {
		if err := t.Progress(ctx, id, percent, message); err != nil {
			log.Printf("⚠️  Failed to record progress for job %s: %v", id, err)
		}
	}
}

// Complete stores the run's questions and marks the job completed.
func (t *Tracker) Complete(ctx context.Context, id string, result *extraction.ProcessingResult) (*models.ExtractionJob, error) {
	questions, err := ToQuestions(id, result.Questions)
	if err != nil {
		return nil, err
	}

	job := &models.ExtractionJob{
		ID:               id,
		TotalPages:       result.TotalPages,
		ProcessingTimeMs: result.ProcessingTime,
	}
	if err := t.store.CompleteJob(ctx, job, questions); err != nil {
		return nil, fmt.Errorf("failed to save results: %w", err)
	}

	summary := result.Summary()
	t.appendLog(ctx, id, 100, summary)
	t.notify(ctx, id, models.EventExtractionCompleted, summary)
	return job, nil
}

// Fail marks the job failed with a user-facing description of cause.
func (t *Tracker) Fail(ctx context.Context, id string, cause error) error {
	reason := Describe(cause)
	if err := t.store.FailJob(ctx, id, reason); err != nil {
		return err
	}
	t.appendLog(ctx, id, 100, "Failed: "+reason)
	t.notify(ctx, id, models.EventExtractionFailed, reason)
	return nil
}

// Cancel cancels a job that has not started. A job that is already
// processing or finished cannot be cancelled.
func (t *Tracker) Cancel(ctx context.Context, id string) error {
	if err := t.store.CancelJob(ctx, id); err != nil {
		return err
	}
	t.appendLog(ctx, id, 0, "Cancelled before processing started")
	return nil
}

// Describe turns an engine or worker error into the message stored on the job.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "Extraction timed out"
	case errors.Is(err, extraction.ErrMalformedDocument):
		return "The PDF could not be decoded: " + err.Error()
	case errors.Is(err, extraction.ErrFileNotFound):
		return "The uploaded file is no longer available"
	default:
		return err.Error()
	}
}

// ToQuestions converts engine output into rows for job id.
func ToQuestions(jobID string, extracted []extraction.ExtractedQuestion) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(extracted))
	for _, q := range extracted {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return nil, fmt.Errorf("failed to encode options of question %d: %w", q.QuestionNumber, err)
		}
		questions = append(questions, models.Question{
			JobID:          jobID,
			QuestionNumber: q.QuestionNumber,
			QuestionText:   q.QuestionText,
			Options:        options,
			Subject:        string(q.Subject),
			PageNumber:     q.PageNumber,
		})
	}
	return questions, nil
}

func (t *Tracker) appendLog(ctx context.Context, id string, percent int, message string) {
	if err := t.store.AppendJobLog(ctx, id, percent, message); err != nil {
		log.Printf("⚠️  Failed to append log for job %s: %v", id, err)
	}
}

// notify sends a terminal event for the job to its owner's webhooks.
// Jobs submitted with a portal login (no API key) have no webhooks.
func (t *Tracker) notify(ctx context.Context, id, event, message string) {
	if t.notifier == nil {
		return
	}
	job, err := t.store.GetJob(ctx, id)
	if err != nil {
		log.Printf("⚠️  Failed to load job %s for webhook: %v", id, err)
		return
	}
	if job.APIKeyID == nil {
		return
	}
	t.notifier.NotifyEvent(ctx, *job.APIKeyID, event, map[string]interface{}{
		"job":     job,
		"message": message,
	})
}

func clamp(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
