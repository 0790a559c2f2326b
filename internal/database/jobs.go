// jobs.go handles extraction job records and their progress logs.
//
// Status changes are guarded in SQL (`WHERE status = ...`) rather than in Go,
// so two workers or a worker and a cancel request can never both win.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Shimizu-Technology/neet-question-api/internal/models"
)

// CreateJob inserts a new extraction job in the queued state.
func (db *DB) CreateJob(ctx context.Context, j *models.ExtractionJob) error {
	query := `
		INSERT INTO extraction_jobs (filename, original_name, file_size, status, batch_id, api_key_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, progress, created_at, updated_at`

	if j.Status == "" {
		j.Status = models.StatusQueued
	}
	return db.QueryRowContext(ctx, query,
		j.Filename, j.OriginalName, j.FileSize, j.Status, j.BatchID, j.APIKeyID, j.UserID,
	).Scan(&j.ID, &j.Progress, &j.CreatedAt, &j.UpdatedAt)
}

// GetJob retrieves a single extraction job by ID.
func (db *DB) GetJob(ctx context.Context, id string) (*models.ExtractionJob, error) {
	var j models.ExtractionJob
	err := db.GetContext(ctx, &j, `SELECT * FROM extraction_jobs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &j, nil
}

// ListJobs returns a page of jobs visible to the caller, newest first.
func (db *DB) ListJobs(ctx context.Context, params models.JobListParams) ([]models.ExtractionJob, int, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}

	var conditions []string
	var args []interface{}
	argNum := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, params.Status)
		argNum++
	}
	if params.APIKeyID != nil {
		conditions = append(conditions, fmt.Sprintf("api_key_id = $%d", argNum))
		args = append(args, *params.APIKeyID)
		argNum++
	}
	if params.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argNum))
		args = append(args, *params.UserID)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM extraction_jobs %s", whereClause)
	if err := db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	offset := (params.Page - 1) * params.PerPage
	selectQuery := fmt.Sprintf(
		"SELECT * FROM extraction_jobs %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		whereClause, argNum, argNum+1,
	)
	args = append(args, params.PerPage, offset)

	var jobs []models.ExtractionJob
	if err := db.SelectContext(ctx, &jobs, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list query failed: %w", err)
	}
	return jobs, total, nil
}

// DeleteJob removes a job. Its questions and logs go with it (ON DELETE CASCADE).
func (db *DB) DeleteJob(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM extraction_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

// ClaimJob moves a queued job to processing. It reports false when the job
// is no longer queued (typically because it was cancelled).
func (db *DB) ClaimJob(ctx context.Context, id string) (bool, error) {
	result, err := db.ExecContext(ctx, `
		UPDATE extraction_jobs
		SET status = 'processing', progress = 0, updated_at = NOW()
		WHERE id = $1 AND status = 'queued'`, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

// UpdateJobProgress records the latest progress percentage of a running job.
func (db *DB) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	_, err := db.ExecContext(ctx, `
		UPDATE extraction_jobs SET progress = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'processing'`, id, progress)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

// CompleteJob stores the extracted questions and marks the job completed,
// all in one transaction. Either every question is visible or none is.
func (db *DB) CompleteJob(ctx context.Context, j *models.ExtractionJob, questions []models.Question) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO questions (job_id, question_number, question_text, options, subject, page_number)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("failed to prepare question insert: %w", err)
	}
	defer stmt.Close()

	for _, q := range questions {
		if _, err := stmt.ExecContext(ctx, j.ID, q.QuestionNumber, q.QuestionText, q.Options, q.Subject, q.PageNumber); err != nil {
			return fmt.Errorf("failed to insert question %d: %w", q.QuestionNumber, err)
		}
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE extraction_jobs
		SET status = 'completed', progress = 100, total_pages = $2, questions_extracted = $3,
			processing_time_ms = $4, error_message = '', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
		RETURNING status, progress, completed_at, updated_at`,
		j.ID, j.TotalPages, len(questions), j.ProcessingTimeMs,
	).Scan(&j.Status, &j.Progress, &j.CompletedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("complete job %s: %w", j.ID, ErrStateConflict)
		}
		return fmt.Errorf("failed to complete job: %w", err)
	}
	j.QuestionsExtracted = len(questions)

	return tx.Commit()
}

// FailJob marks a running job failed with the given reason.
func (db *DB) FailJob(ctx context.Context, id, reason string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE extraction_jobs
		SET status = 'failed', error_message = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('queued', 'processing')`, id, reason)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("fail job %s: %w", id, ErrStateConflict)
	}
	return nil
}

// CancelJob cancels a job that has not started yet.
func (db *DB) CancelJob(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE extraction_jobs
		SET status = 'cancelled', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'queued'`, id)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("cancel job %s: %w", id, ErrStateConflict)
	}
	return nil
}

// --- Job Log Operations ---

// AppendJobLog adds a timestamped progress message to a job's log.
func (db *DB) AppendJobLog(ctx context.Context, jobID string, progress int, message string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO extraction_job_logs (job_id, progress, message) VALUES ($1, $2, $3)`,
		jobID, progress, message)
	if err != nil {
		return fmt.Errorf("failed to append job log: %w", err)
	}
	return nil
}

// ListJobLogs returns a job's log in the order it was written.
func (db *DB) ListJobLogs(ctx context.Context, jobID string) ([]models.JobLog, error) {
	var logs []models.JobLog
	err := db.SelectContext(ctx, &logs,
		`SELECT * FROM extraction_job_logs WHERE job_id = $1 ORDER BY id ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list job logs: %w", err)
	}
	return logs, nil
}

// --- Startup Recovery ---

// FailInterruptedJobs fails jobs left in processing by a previous run.
// Their worker is gone, so they would otherwise stay processing forever.
func (db *DB) FailInterruptedJobs(ctx context.Context, reason string) ([]models.ExtractionJob, error) {
	var jobs []models.ExtractionJob
	err := db.SelectContext(ctx, &jobs, `
		UPDATE extraction_jobs
		SET status = 'failed', error_message = $1, completed_at = NOW(), updated_at = NOW()
		WHERE status = 'processing'
		RETURNING *`, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to fail interrupted jobs: %w", err)
	}
	return jobs, nil
}

// ListQueuedJobs returns jobs still waiting for a worker, oldest first.
func (db *DB) ListQueuedJobs(ctx context.Context) ([]models.ExtractionJob, error) {
	var jobs []models.ExtractionJob
	err := db.SelectContext(ctx, &jobs,
		`SELECT * FROM extraction_jobs WHERE status = 'queued' ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queued jobs: %w", err)
	}
	return jobs, nil
}
