// questions.go handles reads of extracted questions. Questions are written
// only by CompleteJob, inside the job's completion transaction.
package database

import (
	"context"
	"fmt"

	"github.com/Shimizu-Technology/neet-question-api/internal/models"
)

// ListQuestions returns a job's questions ordered by question number,
// optionally restricted to one subject.
func (db *DB) ListQuestions(ctx context.Context, jobID, subject string) ([]models.Question, error) {
	var questions []models.Question
	err := db.SelectContext(ctx, &questions, `
		SELECT * FROM questions
		WHERE job_id = $1 AND ($2 = '' OR subject = $2)
		ORDER BY question_number ASC`, jobID, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// CountQuestionsBySubject returns how many of a job's questions fall in each subject.
func (db *DB) CountQuestionsBySubject(ctx context.Context, jobID string) (map[string]int, error) {
	rows, err := db.QueryxContext(ctx,
		`SELECT subject, COUNT(*) FROM questions WHERE job_id = $1 GROUP BY subject`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var subject string
		var n int
		if err := rows.Scan(&subject, &n); err != nil {
			return nil, fmt.Errorf("failed to scan subject count: %w", err)
		}
		counts[subject] = n
	}
	return counts, rows.Err()
}
