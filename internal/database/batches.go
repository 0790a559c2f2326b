// batches.go handles batch-related database operations.
//
// Go Pattern: We split database operations into multiple files for
// organization. Each file handles one "domain" (jobs, questions, batches)
// and they all share the same *DB receiver.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Shimizu-Technology/neet-question-api/internal/models"
)

// CreateBatch inserts a new batch record with the given total count.
func (db *DB) CreateBatch(ctx context.Context, b *models.Batch) error {
	query := `
		INSERT INTO batches (status, total_count, completed_count, failed_count, api_key_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return db.QueryRowContext(ctx, query,
		b.Status, b.TotalCount, b.CompletedCount, b.FailedCount, b.APIKeyID, b.UserID,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// GetBatch retrieves a batch by ID.
func (db *DB) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	var b models.Batch
	err := db.GetContext(ctx, &b, `SELECT * FROM batches WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("batch %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return &b, nil
}

// GetJobsByBatch returns all jobs of a batch in submission order.
func (db *DB) GetJobsByBatch(ctx context.Context, batchID string) ([]models.ExtractionJob, error) {
	var jobs []models.ExtractionJob
	err := db.SelectContext(ctx, &jobs,
		`SELECT * FROM extraction_jobs WHERE batch_id = $1 ORDER BY created_at ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch jobs: %w", err)
	}
	return jobs, nil
}

// UpdateBatchCounts recalculates the batch's counters from the actual job
// statuses, so the counts self-heal if a worker update was missed.
// Cancelled jobs count as failed.
func (db *DB) UpdateBatchCounts(ctx context.Context, batchID string) error {
	query := `
		WITH s AS (
			SELECT
				COUNT(*) FILTER (WHERE status = 'completed') AS completed,
				COUNT(*) FILTER (WHERE status IN ('failed', 'cancelled')) AS failed,
				COUNT(*) FILTER (WHERE status IN ('queued', 'processing')) AS active
			FROM extraction_jobs WHERE batch_id = $1
		)
		UPDATE batches SET
			completed_count = s.completed,
			failed_count = s.failed,
			status = CASE
				WHEN s.active > 0 AND s.completed + s.failed = 0 THEN 'queued'
				WHEN s.active > 0 THEN 'processing'
				WHEN s.completed = 0 AND s.failed > 0 THEN 'failed'
				ELSE 'completed'
			END,
			updated_at = NOW()
		FROM s
		WHERE batches.id = $1`

	_, err := db.ExecContext(ctx, query, batchID)
	if err != nil {
		return fmt.Errorf("failed to update batch counts: %w", err)
	}
	return nil
}
