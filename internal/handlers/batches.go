// batches.go handles batch uploads: several papers submitted at once.
//
// Each PDF becomes its own extraction job, all linked to a single batch.
// The batch provides aggregate status tracking.
package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/Shimizu-Technology/neet-question-api/internal/database"
	"github.com/Shimizu-Technology/neet-question-api/internal/models"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/upload"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/worker"
)

// maxBatchFiles is the most PDFs accepted in one batch request.
const maxBatchFiles = 10

// CreateBatch queues extraction for several uploaded PDFs.
// POST /api/v1/extractions/batch
//
// Accepts a multipart upload with 1-10 files under the field name "files".
// Every file is validated before any is stored, so one bad file rejects
// the whole request.
func (h *Handler) CreateBatch(c *gin.Context) {
	h.limitBody(c, maxBatchFiles)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondUploadError(c, err)
			return
		}
		abortJSON(c, http.StatusBadRequest, "invalid_request", "Upload 1-10 PDF files with the field name 'files'")
		return
	}

	files := form.File["files"]
	switch {
	case len(files) == 0:
		abortJSON(c, http.StatusBadRequest, "invalid_request", "Upload 1-10 PDF files with the field name 'files'")
		return
	case len(files) > maxBatchFiles:
		abortJSON(c, http.StatusBadRequest, "too_many_files", fmt.Sprintf("Maximum %d files per batch request", maxBatchFiles))
		return
	}

	// Step 1: Validate every file before storing any.
	for i, fh := range files {
		if err := h.checkUpload(fh); err != nil {
			var uerr *upload.Error
			if errors.As(err, &uerr) {
				respondUploadError(c, &upload.Error{
					Code:    uerr.Code,
					Message: fmt.Sprintf("File %d (%s): %s", i+1, fh.Filename, uerr.Message),
				})
				return
			}
			respondUploadError(c, err)
			return
		}
	}

	// Step 2: Copy the files into the upload directory concurrently.
	// Go Pattern: errgroup runs one goroutine per file and returns the
	// first error once all of them have finished.
	staged := make([]*stagedUpload, len(files))
	var g errgroup.Group
	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			s, err := h.stageUpload(fh)
			staged[i] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		for _, s := range staged {
			if s != nil {
				h.removeUpload(s.StoredName)
			}
		}
		respondUploadError(c, err)
		return
	}

	// Step 3: Create the batch and one job per file.
	ctx := c.Request.Context()
	apiKeyID, userID := callerIDs(c)
	batch := &models.Batch{
		Status:     models.StatusQueued,
		TotalCount: len(staged),
		APIKeyID:   apiKeyID,
		UserID:     userID,
	}
	if err := h.DB.CreateBatch(ctx, batch); err != nil {
		log.Printf("❌ Failed to create batch: %v", err)
		for _, s := range staged {
			h.removeUpload(s.StoredName)
		}
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to create batch record")
		return
	}

	jobs := make([]models.ExtractionJob, 0, len(staged))
	for _, s := range staged {
		job := &models.ExtractionJob{
			Filename:     s.StoredName,
			OriginalName: s.OriginalName,
			FileSize:     s.Size,
			Status:       models.StatusQueued,
			BatchID:      &batch.ID,
			APIKeyID:     apiKeyID,
			UserID:       userID,
		}
		if err := h.DB.CreateJob(ctx, job); err != nil {
			log.Printf("❌ Failed to create job for %s in batch %s: %v", s.OriginalName, batch.ID, err)
			h.removeUpload(s.StoredName)
			continue
		}

		// Step 4: Queue the job. A full queue fails this job, not the batch.
		if err := h.Worker.Submit(worker.Job{ID: job.ID, CreatedAt: job.CreatedAt}); err != nil {
			log.Printf("⚠️  Could not queue job %s: %v", job.ID, err)
			if failErr := h.Tracker.Fail(ctx, job.ID, err); failErr != nil {
				log.Printf("⚠️  Failed to mark job %s failed: %v", job.ID, failErr)
			}
			h.removeUpload(s.StoredName)
			if updated, err := h.DB.GetJob(ctx, job.ID); err == nil {
				job = updated
			}
		}
		jobs = append(jobs, *job)
	}

	if err := h.DB.UpdateBatchCounts(ctx, batch.ID); err != nil {
		log.Printf("⚠️  Failed to update batch counts for %s: %v", batch.ID, err)
	}
	if updated, err := h.DB.GetBatch(ctx, batch.ID); err == nil {
		batch = updated
	}

	log.Printf("📦 Batch %s created with %d jobs", batch.ID, len(jobs))
	c.Header("Location", "/api/v1/batches/"+batch.ID)
	c.JSON(http.StatusAccepted, models.BatchResponse{
		Batch: *batch,
		Jobs:  jobs,
	})
}

// GetBatch returns a batch with the current state of its jobs.
// GET /api/v1/batches/:id
func (h *Handler) GetBatch(c *gin.Context) {
	ctx := c.Request.Context()
	batch, err := h.DB.GetBatch(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			abortJSON(c, http.StatusNotFound, "not_found", "Batch not found")
			return
		}
		log.Printf("❌ Failed to get batch: %v", err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to load batch")
		return
	}

	// The batch row records its owner, so a batch whose job inserts all
	// failed is still private.
	if !ownsBatch(c, batch) {
		abortJSON(c, http.StatusNotFound, "not_found", "Batch not found")
		return
	}

	jobs, err := h.DB.GetJobsByBatch(ctx, batch.ID)
	if err != nil {
		log.Printf("❌ Failed to list jobs of batch %s: %v", batch.ID, err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to load batch jobs")
		return
	}
	if jobs == nil {
		jobs = []models.ExtractionJob{}
	}

	c.JSON(http.StatusOK, models.BatchResponse{
		Batch: *batch,
		Jobs:  jobs,
	})
}
