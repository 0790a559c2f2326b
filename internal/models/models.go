// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// The `db` tags work with sqlx for database column mapping; the database
// package handles persistence.
package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// JobStatus represents the lifecycle state of an extraction job.
// Go Pattern: We use string constants instead of enums (Go doesn't have enums).
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// ExtractionJob is one uploaded PDF and the state of its extraction run.
type ExtractionJob struct {
	ID                 string     `json:"id" db:"id"`
	Filename           string     `json:"-" db:"filename"` // stored upload name on disk
	OriginalName       string     `json:"original_name" db:"original_name"`
	FileSize           int64      `json:"file_size" db:"file_size"`
	Status             JobStatus  `json:"status" db:"status"`
	Progress           int        `json:"progress" db:"progress"` // 0-100
	TotalPages         int        `json:"total_pages" db:"total_pages"`
	QuestionsExtracted int        `json:"questions_extracted" db:"questions_extracted"`
	ProcessingTimeMs   int64      `json:"processing_time_ms" db:"processing_time_ms"`
	ErrorMessage       string     `json:"error_message,omitempty" db:"error_message"`
	BatchID            *string    `json:"batch_id,omitempty" db:"batch_id"` // Pointer = nullable
	APIKeyID           *string    `json:"-" db:"api_key_id"`
	UserID             *string    `json:"-" db:"user_id"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// JobLog is one append-only progress message for a job.
type JobLog struct {
	ID        int64     `json:"id" db:"id"`
	JobID     string    `json:"job_id" db:"job_id"`
	Progress  int       `json:"progress" db:"progress"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Question is a persisted extracted question.
// Options is stored as JSONB and passed through to clients untouched.
type Question struct {
	ID             string         `json:"id" db:"id"`
	JobID          string         `json:"job_id" db:"job_id"`
	QuestionNumber int            `json:"question_number" db:"question_number"`
	QuestionText   string         `json:"question_text" db:"question_text"`
	Options        types.JSONText `json:"options" db:"options"`
	Subject        string         `json:"subject" db:"subject"`
	PageNumber     int            `json:"page_number" db:"page_number"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// Batch groups extraction jobs submitted together.
// The counts are denormalized and refreshed as each job finishes.
type Batch struct {
	ID             string    `json:"id" db:"id"`
	Status         JobStatus `json:"status" db:"status"`
	TotalCount     int       `json:"total_count" db:"total_count"`
	CompletedCount int       `json:"completed_count" db:"completed_count"`
	FailedCount    int       `json:"failed_count" db:"failed_count"`
	APIKeyID       *string   `json:"-" db:"api_key_id"`
	UserID         *string   `json:"-" db:"user_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// APIKey represents an API key for authentication.
// Note: We store the HASH of the key, never the raw key itself.
type APIKey struct {
	ID         string     `json:"id" db:"id"`
	KeyHash    string     `json:"-" db:"key_hash"`            // "-" means never serialize to JSON
	KeyPrefix  string     `json:"key_prefix" db:"key_prefix"` // First 8 chars for identification
	Name       string     `json:"name" db:"name"`
	Active     bool       `json:"active" db:"active"`
	UserID     *string    `json:"user_id,omitempty" db:"user_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// User is a portal account (coach or admin) that signs in with a password.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Webhook is a registered callback URL for job events.
type Webhook struct {
	ID        string    `json:"id" db:"id"`
	APIKeyID  string    `json:"api_key_id" db:"api_key_id"`
	URL       string    `json:"url" db:"url"`
	Events    []string  `json:"events" db:"events"`
	Secret    string    `json:"-" db:"secret"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WebhookDelivery records one webhook notification and its attempts.
type WebhookDelivery struct {
	ID           string     `json:"id" db:"id"`
	WebhookID    string     `json:"webhook_id" db:"webhook_id"`
	Event        string     `json:"event" db:"event"`
	Payload      string     `json:"payload" db:"payload"`
	Status       string     `json:"status" db:"status"` // pending, success, failed
	Attempts     int        `json:"attempts" db:"attempts"`
	LastError    string     `json:"last_error,omitempty" db:"last_error"`
	ResponseCode int        `json:"response_code,omitempty" db:"response_code"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
}

// Webhook event names.
const (
	EventExtractionCompleted = "extraction.completed"
	EventExtractionFailed    = "extraction.failed"
)

// ValidWebhookEvents is the set of events a webhook may subscribe to.
var ValidWebhookEvents = map[string]bool{
	EventExtractionCompleted: true,
	EventExtractionFailed:    true,
}

// WebhookPayload is the JSON body POSTed to webhook URLs.
type WebhookPayload struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// --- Request/Response DTOs (Data Transfer Objects) ---
// Go Pattern: Separate structs for API input/output vs database models.

// CreateAPIKeyRequest is the JSON body for POST /api/v1/keys.
type CreateAPIKeyRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateAPIKeyResponse includes the raw key, shown only once at creation time.
type CreateAPIKeyResponse struct {
	APIKey
	RawKey string `json:"raw_key"`
}

// RegisterRequest is the JSON body for POST /api/v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
}

// LoginRequest is the JSON body for POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned after a successful login, registration or refresh.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// CreateWebhookRequest is the JSON body for POST /api/v1/webhooks.
type CreateWebhookRequest struct {
	URL    string   `json:"url" binding:"required,url"`
	Events []string `json:"events" binding:"required,min=1"`
}

// CreateWebhookResponse includes the signing secret, shown only once.
type CreateWebhookResponse struct {
	Webhook
	Secret string `json:"secret"`
}

// UpdateWebhookRequest is the JSON body for PATCH /api/v1/webhooks/:id.
type UpdateWebhookRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// JobDetailResponse is a job with its questions, returned once it is completed.
type JobDetailResponse struct {
	Job           ExtractionJob  `json:"job"`
	Summary       string         `json:"summary,omitempty"`
	SubjectCounts map[string]int `json:"subject_counts,omitempty"`
	Questions     []Question     `json:"questions,omitempty"`
}

// BatchResponse is the API response for a batch operation.
type BatchResponse struct {
	Batch Batch           `json:"batch"`
	Jobs  []ExtractionJob `json:"jobs"`
}

// JobListParams holds query parameters for listing extraction jobs.
type JobListParams struct {
	Page     int       `form:"page"`     // Page number (1-indexed)
	PerPage  int       `form:"per_page"` // Items per page
	Status   JobStatus `form:"status"`   // Filter by status
	APIKeyID *string   `form:"-"`        // Set by the handler from the caller's identity
	UserID   *string   `form:"-"`
}

// PaginatedResponse wraps a list response with pagination metadata.
// Go Pattern: Generics (added in Go 1.18) let us create type-safe containers.
type PaginatedResponse[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Database   string `json:"database"`
	Workers    int    `json:"workers"`
	QueueDepth int    `json:"queue_depth"`
	OCR        bool   `json:"ocr"`
}
