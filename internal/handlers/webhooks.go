// webhooks.go handles webhook management endpoints.
//
// Webhooks belong to an API key: a job submitted with that key fires the
// key's webhooks when it completes or fails. Portal sessions have no key,
// so these endpoints require X-API-Key.
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/neet-question-api/internal/database"
	"github.com/Shimizu-Technology/neet-question-api/internal/middleware"
	"github.com/Shimizu-Technology/neet-question-api/internal/models"
	webhookservice "github.com/Shimizu-Technology/neet-question-api/internal/services/webhook"
)

// deliveryListLimit caps GET /api/v1/webhooks/deliveries.
const deliveryListLimit = 50

// CreateWebhook registers a callback URL.
// POST /api/v1/webhooks
func (h *Handler) CreateWebhook(c *gin.Context) {
	apiKey, ok := requireAPIKey(c)
	if !ok {
		return
	}

	var req models.CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid_request", "A URL and at least one event are required")
		return
	}
	for _, event := range req.Events {
		if !models.ValidWebhookEvents[event] {
			abortJSON(c, http.StatusBadRequest, "invalid_event", "Invalid event type: "+event)
			return
		}
	}

	secret, err := webhookservice.GenerateSecret()
	if err != nil {
		log.Printf("❌ Failed to generate webhook secret: %v", err)
		abortJSON(c, http.StatusInternalServerError, "generation_error", "Failed to generate webhook secret")
		return
	}

	wh := &models.Webhook{
		APIKeyID: apiKey.ID,
		URL:      req.URL,
		Events:   req.Events,
		Secret:   secret,
		Active:   true,
	}
	if err := h.DB.CreateWebhook(c.Request.Context(), wh); err != nil {
		log.Printf("❌ Failed to create webhook: %v", err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to create webhook")
		return
	}

	// The secret is returned once so the receiver can verify signatures.
	c.JSON(http.StatusCreated, models.CreateWebhookResponse{
		Webhook: *wh,
		Secret:  secret,
	})
}

// ListWebhooks returns the webhooks of the calling key.
// GET /api/v1/webhooks
func (h *Handler) ListWebhooks(c *gin.Context) {
	apiKey, ok := requireAPIKey(c)
	if !ok {
		return
	}

	webhooks, err := h.DB.ListWebhooksByAPIKey(c.Request.Context(), apiKey.ID)
	if err != nil {
		log.Printf("❌ Failed to list webhooks: %v", err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to list webhooks")
		return
	}
	if webhooks == nil {
		webhooks = []models.Webhook{}
	}
	c.JSON(http.StatusOK, webhooks)
}

// UpdateWebhook pauses or resumes a webhook.
// PATCH /api/v1/webhooks/:id
func (h *Handler) UpdateWebhook(c *gin.Context) {
	apiKey, ok := requireAPIKey(c)
	if !ok {
		return
	}

	var req models.UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		abortJSON(c, http.StatusBadRequest, "invalid_request", "active field is required (true/false)")
		return
	}

	if err := h.DB.UpdateWebhookActive(c.Request.Context(), c.Param("id"), apiKey.ID, *req.Active); err != nil {
		respondWebhookError(c, err, "Failed to update webhook")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Webhook updated", "active": *req.Active})
}

// DeleteWebhook removes a webhook and its delivery history.
// DELETE /api/v1/webhooks/:id
func (h *Handler) DeleteWebhook(c *gin.Context) {
	apiKey, ok := requireAPIKey(c)
	if !ok {
		return
	}

	if err := h.DB.DeleteWebhook(c.Request.Context(), c.Param("id"), apiKey.ID); err != nil {
		respondWebhookError(c, err, "Failed to delete webhook")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Webhook deleted"})
}

// ListWebhookDeliveries returns recent delivery attempts across the key's webhooks.
// GET /api/v1/webhooks/deliveries
func (h *Handler) ListWebhookDeliveries(c *gin.Context) {
	apiKey, ok := requireAPIKey(c)
	if !ok {
		return
	}

	deliveries, err := h.DB.ListAllDeliveriesByAPIKey(c.Request.Context(), apiKey.ID, deliveryListLimit)
	if err != nil {
		log.Printf("❌ Failed to list webhook deliveries: %v", err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to list deliveries")
		return
	}
	if deliveries == nil {
		deliveries = []models.WebhookDelivery{}
	}
	c.JSON(http.StatusOK, deliveries)
}

func requireAPIKey(c *gin.Context) (*models.APIKey, bool) {
	apiKey := middleware.GetAPIKey(c)
	if apiKey == nil {
		abortJSON(c, http.StatusUnauthorized, "unauthorized", "Webhook management requires API key authentication")
		return nil, false
	}
	return apiKey, true
}

// respondWebhookError reports webhooks of other keys as not found.
func respondWebhookError(c *gin.Context, err error, message string) {
	if errors.Is(err, database.ErrNotFound) {
		abortJSON(c, http.StatusNotFound, "not_found", "Webhook not found")
		return
	}
	log.Printf("❌ %s: %v", message, err)
	abortJSON(c, http.StatusInternalServerError, "database_error", message)
}
