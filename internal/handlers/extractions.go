// extractions.go handles extraction job endpoints.
//
// POST   /api/v1/extractions                  Upload a PDF, queue a job (202)
// POST   /api/v1/extractions/sync             Upload a PDF, extract inline (200)
// GET    /api/v1/extractions                  List jobs (paginated)
// GET    /api/v1/extractions/:id              Job status, with questions once completed
// GET    /api/v1/extractions/:id/logs         Progress log
// GET    /api/v1/extractions/:id/questions    Questions, optionally ?subject=
// POST   /api/v1/extractions/:id/cancel       Cancel a queued job
// DELETE /api/v1/extractions/:id              Delete a job and its questions
package handlers

import (
	"errors"
	"log"
	"math"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/neet-question-api/internal/database"
	"github.com/Shimizu-Technology/neet-question-api/internal/middleware"
	"github.com/Shimizu-Technology/neet-question-api/internal/models"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/extraction"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/jobstatus"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/upload"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/worker"
)

// CreateExtraction stores an uploaded PDF and queues it for extraction.
// POST /api/v1/extractions
//
// Accepts a multipart upload with the field name "file". The response is
// the queued job; poll GET /api/v1/extractions/:id for progress.
func (h *Handler) CreateExtraction(c *gin.Context) {
	h.limitBody(c, 1)
	fh, ok := formFile(c, "file")
	if !ok {
		return
	}

	staged, err := h.stageUpload(fh)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	apiKeyID, userID := callerIDs(c)
	job := &models.ExtractionJob{
		Filename:     staged.StoredName,
		OriginalName: staged.OriginalName,
		FileSize:     staged.Size,
		Status:       models.StatusQueued,
		APIKeyID:     apiKeyID,
		UserID:       userID,
	}

	ctx := c.Request.Context()
	if err := h.DB.CreateJob(ctx, job); err != nil {
		log.Printf("❌ Failed to create job for %s: %v", staged.OriginalName, err)
		h.removeUpload(staged.StoredName)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to create extraction job")
		return
	}
	if err := h.DB.AppendJobLog(ctx, job.ID, 0, "Queued "+staged.OriginalName); err != nil {
		log.Printf("⚠️  Failed to append log for job %s: %v", job.ID, err)
	}

	if err := h.Worker.Submit(worker.Job{ID: job.ID, CreatedAt: job.CreatedAt}); err != nil {
		if failErr := h.Tracker.Fail(ctx, job.ID, err); failErr != nil {
			log.Printf("⚠️  Failed to mark job %s failed: %v", job.ID, failErr)
		}
		h.removeUpload(staged.StoredName)
		abortJSON(c, http.StatusServiceUnavailable, "queue_full", "The extraction queue is full. Try again shortly.")
		return
	}

	c.Header("Location", "/api/v1/extractions/"+job.ID)
	c.JSON(http.StatusAccepted, job)
}

// ExtractSync runs the engine inline and returns the result without
// persisting anything. Meant for small papers and quick checks.
// POST /api/v1/extractions/sync
func (h *Handler) ExtractSync(c *gin.Context) {
	h.limitBody(c, 1)
	fh, ok := formFile(c, "file")
	if !ok {
		return
	}

	data, err := h.readUpload(fh)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	result, err := h.Engine.ExtractBytes(data, fh.Filename, nil)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListExtractions returns the caller's jobs, newest first.
// GET /api/v1/extractions?page=1&per_page=20&status=completed
func (h *Handler) ListExtractions(c *gin.Context) {
	var params models.JobListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid_params", "Invalid query parameters: "+err.Error())
		return
	}
	if params.Status != "" && !validStatus(params.Status) {
		abortJSON(c, http.StatusBadRequest, "invalid_status", "Unknown status: "+string(params.Status))
		return
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}
	params.APIKeyID, params.UserID = listScope(c)

	jobs, total, err := h.DB.ListJobs(c.Request.Context(), params)
	if err != nil {
		log.Printf("❌ Failed to list jobs: %v", err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to list extraction jobs")
		return
	}
	if jobs == nil {
		jobs = []models.ExtractionJob{}
	}

	c.JSON(http.StatusOK, models.PaginatedResponse[models.ExtractionJob]{
		Data:       jobs,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(params.PerPage))),
	})
}

// GetExtraction returns a job. Completed jobs include their questions,
// per-subject counts and the run summary.
// GET /api/v1/extractions/:id
func (h *Handler) GetExtraction(c *gin.Context) {
	job, ok := h.loadOwnedJob(c)
	if !ok {
		return
	}

	resp := models.JobDetailResponse{Job: *job}
	if job.Status == models.StatusCompleted {
		ctx := c.Request.Context()
		questions, err := h.DB.ListQuestions(ctx, job.ID, "")
		if err != nil {
			log.Printf("❌ Failed to load questions for job %s: %v", job.ID, err)
			abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to load questions")
			return
		}
		counts, err := h.DB.CountQuestionsBySubject(ctx, job.ID)
		if err != nil {
			log.Printf("⚠️  Failed to count subjects for job %s: %v", job.ID, err)
		}
		resp.Questions = questions
		resp.SubjectCounts = counts
		resp.Summary = extraction.FormatSummary(job.QuestionsExtracted, job.TotalPages)
	}

	c.JSON(http.StatusOK, resp)
}

// GetExtractionLogs returns the job's append-only progress log.
// GET /api/v1/extractions/:id/logs
func (h *Handler) GetExtractionLogs(c *gin.Context) {
	job, ok := h.loadOwnedJob(c)
	if !ok {
		return
	}

	logs, err := h.DB.ListJobLogs(c.Request.Context(), job.ID)
	if err != nil {
		log.Printf("❌ Failed to list logs for job %s: %v", job.ID, err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to load job logs")
		return
	}
	if logs == nil {
		logs = []models.JobLog{}
	}
	c.JSON(http.StatusOK, logs)
}

// ListExtractionQuestions returns the questions of a completed job.
// GET /api/v1/extractions/:id/questions?subject=Physics
func (h *Handler) ListExtractionQuestions(c *gin.Context) {
	subject, ok := subjectFilter(c)
	if !ok {
		return
	}
	job, ok := h.loadOwnedJob(c)
	if !ok {
		return
	}
	if job.Status != models.StatusCompleted {
		abortJSON(c, http.StatusConflict, "not_ready", "Extraction is not completed (status: "+string(job.Status)+")")
		return
	}

	questions, err := h.DB.ListQuestions(c.Request.Context(), job.ID, subject)
	if err != nil {
		log.Printf("❌ Failed to list questions for job %s: %v", job.ID, err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to load questions")
		return
	}
	if questions == nil {
		questions = []models.Question{}
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":    job.ID,
		"subject":   subject,
		"count":     len(questions),
		"questions": questions,
	})
}

// CancelExtraction cancels a job that is still waiting in the queue.
// POST /api/v1/extractions/:id/cancel
func (h *Handler) CancelExtraction(c *gin.Context) {
	job, ok := h.loadOwnedJob(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.Tracker.Cancel(ctx, job.ID); err != nil {
		if errors.Is(err, database.ErrStateConflict) {
			abortJSON(c, http.StatusConflict, "invalid_state",
				"Only queued jobs can be cancelled (status: "+string(job.Status)+")")
			return
		}
		log.Printf("❌ Failed to cancel job %s: %v", job.ID, err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to cancel job")
		return
	}

	h.removeUpload(job.Filename)
	h.refreshBatch(c, job.BatchID)

	updated, err := h.DB.GetJob(ctx, job.ID)
	if err != nil {
		updated = job
		updated.Status = models.StatusCancelled
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteExtraction removes a job with its questions and logs.
// Jobs that are being processed cannot be deleted.
// DELETE /api/v1/extractions/:id
func (h *Handler) DeleteExtraction(c *gin.Context) {
	job, ok := h.loadOwnedJob(c)
	if !ok {
		return
	}
	if job.Status == models.StatusProcessing {
		abortJSON(c, http.StatusConflict, "invalid_state", "Job is being processed; try again when it finishes")
		return
	}

	if err := h.DB.DeleteJob(c.Request.Context(), job.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			abortJSON(c, http.StatusNotFound, "not_found", "Extraction job not found")
			return
		}
		log.Printf("❌ Failed to delete job %s: %v", job.ID, err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to delete job")
		return
	}

	h.removeUpload(job.Filename)
	h.refreshBatch(c, job.BatchID)
	c.JSON(http.StatusOK, gin.H{"message": "Extraction job deleted"})
}

// --- Helpers ---

// formFile reads one multipart file field, answering the request on error.
func formFile(c *gin.Context, field string) (*multipart.FileHeader, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondUploadError(c, err)
			return nil, false
		}
		abortJSON(c, http.StatusBadRequest, "invalid_request",
			"No PDF file provided. Upload a file with the field name '"+field+"'.")
		return nil, false
	}
	return fh, true
}

// respondEngineError maps engine failures to HTTP responses.
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, extraction.ErrMalformedDocument):
		abortJSON(c, http.StatusUnprocessableEntity, upload.CodeInvalidPDF, jobstatus.Describe(err))
	default:
		log.Printf("❌ Extraction failed: %v", err)
		abortJSON(c, http.StatusInternalServerError, "extraction_failed", jobstatus.Describe(err))
	}
}

// loadOwnedJob fetches :id and checks the caller may see it. Jobs of other
// callers are reported as not found.
func (h *Handler) loadOwnedJob(c *gin.Context) (*models.ExtractionJob, bool) {
	job, err := h.DB.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			abortJSON(c, http.StatusNotFound, "not_found", "Extraction job not found")
			return nil, false
		}
		log.Printf("❌ Failed to get job: %v", err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to load job")
		return nil, false
	}
	if !ownsJob(c, job) {
		abortJSON(c, http.StatusNotFound, "not_found", "Extraction job not found")
		return nil, false
	}
	return job, true
}

// callerIDs returns the owner columns for a new job. Jobs created with an
// API key that belongs to a portal user are visible to that user too.
func callerIDs(c *gin.Context) (apiKeyID, userID *string) {
	if key := middleware.GetAPIKey(c); key != nil {
		return &key.ID, key.UserID
	}
	if user := middleware.GetUser(c); user != nil {
		return nil, &user.ID
	}
	return nil, nil
}

// listScope returns the filter that limits a listing to the caller's jobs.
func listScope(c *gin.Context) (apiKeyID, userID *string) {
	if key := middleware.GetAPIKey(c); key != nil {
		return &key.ID, nil
	}
	if user := middleware.GetUser(c); user != nil {
		return nil, &user.ID
	}
	none := ""
	return &none, nil
}

func ownsJob(c *gin.Context, job *models.ExtractionJob) bool {
	return ownedBy(c, job.APIKeyID, job.UserID)
}

func ownsBatch(c *gin.Context, batch *models.Batch) bool {
	return ownedBy(c, batch.APIKeyID, batch.UserID)
}

// ownedBy matches API key callers on the key and JWT callers on the user.
func ownedBy(c *gin.Context, apiKeyID, userID *string) bool {
	if key := middleware.GetAPIKey(c); key != nil {
		return apiKeyID != nil && *apiKeyID == key.ID
	}
	if user := middleware.GetUser(c); user != nil {
		return userID != nil && *userID == user.ID
	}
	return false
}

func validStatus(s models.JobStatus) bool {
	switch s {
	case models.StatusQueued, models.StatusProcessing, models.StatusCompleted, models.StatusFailed, models.StatusCancelled:
		return true
	}
	return false
}

// subjectFilter parses the optional ?subject= query parameter.
func subjectFilter(c *gin.Context) (string, bool) {
	raw := c.Query("subject")
	if raw == "" {
		return "", true
	}
	subject, ok := extraction.ParseSubject(raw)
	if !ok {
		abortJSON(c, http.StatusBadRequest, "invalid_subject", "subject must be Physics, Chemistry or Biology")
		return "", false
	}
	return string(subject), true
}

// refreshBatch recomputes batch counters after a job changed outside a worker.
func (h *Handler) refreshBatch(c *gin.Context, batchID *string) {
	if batchID == nil {
		return
	}
	if err := h.DB.UpdateBatchCounts(c.Request.Context(), *batchID); err != nil {
		log.Printf("⚠️  Failed to update batch counts for %s: %v", *batchID, err)
	}
}
