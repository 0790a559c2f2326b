package worker

import (
	"context"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/Shimizu-Technology/neet-question-api/internal/models"
)

func (s *fakeStore) FailInterruptedJobs(_ context.Context, reason string) ([]models.ExtractionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ExtractionJob
	for _, j := range s.jobs {
		if j.Status == models.StatusProcessing {
			j.Status = models.StatusFailed
			j.ErrorMessage = reason
			out = append(out, *j)
		}
	}
	return out, nil
}

func (s *fakeStore) ListQueuedJobs(context.Context) ([]models.ExtractionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ExtractionJob
	for _, j := range s.jobs {
		if j.Status == models.StatusQueued {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func TestRecover(t *testing.T) {
	base := time.Date(2024, 5, 5, 9, 0, 0, 0, time.UTC)
	store := newFakeStore(
		&models.ExtractionJob{ID: "running", Filename: "running.pdf", Status: models.StatusProcessing},
		&models.ExtractionJob{ID: "q1", Filename: "q1.pdf", Status: models.StatusQueued, CreatedAt: base},
		&models.ExtractionJob{ID: "q2", Filename: "q2.pdf", Status: models.StatusQueued, CreatedAt: base.Add(time.Minute)},
		&models.ExtractionJob{ID: "q3", Filename: "q3.pdf", Status: models.StatusQueued, CreatedAt: base.Add(2 * time.Minute)},
		&models.ExtractionJob{ID: "done", Filename: "", Status: models.StatusCompleted},
	)
	// Not started: submitted jobs stay in the queue (size 2).
	pool, dir := newTestPool(t, store, &fakeExtractor{}, time.Second)
	interruptedPath := stageUpload(t, dir, "running.pdf")
	overflowPath := stageUpload(t, dir, "q3.pdf")
	stageUpload(t, dir, "q1.pdf")

	requeued, err := pool.Recover(context.Background(), store)
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if requeued != 2 || pool.QueueSize() != 2 {
		t.Errorf("requeued = %d, queue size = %d, want 2 and 2", requeued, pool.QueueSize())
	}

	tests := []struct {
		id   string
		want models.JobStatus
	}{
		{"running", models.StatusFailed},
		{"q1", models.StatusQueued},
		{"q2", models.StatusQueued},
		{"q3", models.StatusFailed},
		{"done", models.StatusCompleted},
	}
	for _, tt := range tests {
		if got := store.status(tt.id); got != tt.want {
			t.Errorf("job %s status = %s, want %s", tt.id, got, tt.want)
		}
	}

	if msg := store.jobs["running"].ErrorMessage; msg != ErrInterrupted.Error() {
		t.Errorf("interrupted job message = %q", msg)
	}
	if msg := store.jobs["q3"].ErrorMessage; msg != ErrQueueFull.Error() {
		t.Errorf("overflow job message = %q", msg)
	}

	first := <-pool.jobs
	if first.ID != "q1" {
		t.Errorf("first requeued job = %s, want oldest q1", first.ID)
	}

	for _, path := range []string{interruptedPath, overflowPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s still on disk", path)
		}
	}
}
