// apikeys.go handles API key management endpoints.
//
// Keys are created either by an operator (X-Admin-Key, /api/v1/keys) or by a
// signed-in portal user for their own integrations (/api/v1/auth/keys).
// Jobs submitted with a user's key are visible to that user in the portal.
package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/neet-question-api/internal/database"
	"github.com/Shimizu-Technology/neet-question-api/internal/middleware"
	"github.com/Shimizu-Technology/neet-question-api/internal/models"
)

// apiKeyPrefix marks keys issued by this service.
const apiKeyPrefix = "neet_"

// CreateAPIKey generates a new service key.
// POST /api/v1/keys
//
// Request body:
//
//	{"name": "Coaching Centre Importer"}
//
// Response includes the raw key. It's only shown once.
func (h *Handler) CreateAPIKey(c *gin.Context) {
	h.createKey(c, nil)
}

// CreateUserAPIKey generates a key owned by the signed-in user.
// POST /api/v1/auth/keys
func (h *Handler) CreateUserAPIKey(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		abortJSON(c, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}
	h.createKey(c, &user.ID)
}

func (h *Handler) createKey(c *gin.Context, userID *string) {
	var req models.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	// Go Pattern: crypto/rand is the cryptographically secure random source.
	// NEVER use math/rand for security-sensitive things like API keys!
	rawKey, err := generateAPIKey()
	if err != nil {
		log.Printf("❌ Failed to generate API key: %v", err)
		abortJSON(c, http.StatusInternalServerError, "generation_error", "Failed to generate API key")
		return
	}

	// Only the hash is stored; the prefix lets people tell keys apart.
	key := &models.APIKey{
		KeyHash:   middleware.HashAPIKey(rawKey),
		KeyPrefix: rawKey[:len(apiKeyPrefix)+8] + "...",
		Name:      req.Name,
		Active:    true,
		UserID:    userID,
	}

	if err := h.DB.CreateAPIKey(c.Request.Context(), key); err != nil {
		log.Printf("❌ Failed to create API key: %v", err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to create API key")
		return
	}

	log.Printf("🔑 API key %s created (%s)", key.KeyPrefix, key.Name)
	c.JSON(http.StatusCreated, models.CreateAPIKeyResponse{
		APIKey: *key,
		RawKey: rawKey,
	})
}

// ListAPIKeys returns every key (without the raw key values).
// GET /api/v1/keys
func (h *Handler) ListAPIKeys(c *gin.Context) {
	keys, err := h.DB.ListAPIKeys(c.Request.Context())
	if err != nil {
		log.Printf("❌ Failed to list API keys: %v", err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to list API keys")
		return
	}
	if keys == nil {
		keys = []models.APIKey{}
	}
	c.JSON(http.StatusOK, keys)
}

// ListUserAPIKeys returns the signed-in user's keys.
// GET /api/v1/auth/keys
func (h *Handler) ListUserAPIKeys(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		abortJSON(c, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}

	keys, err := h.DB.ListAPIKeysByUser(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("❌ Failed to list keys of user %s: %v", user.ID, err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to list API keys")
		return
	}
	if keys == nil {
		keys = []models.APIKey{}
	}
	c.JSON(http.StatusOK, keys)
}

// RevokeAPIKey deactivates an API key.
// DELETE /api/v1/keys/:id
func (h *Handler) RevokeAPIKey(c *gin.Context) {
	if err := h.DB.RevokeAPIKey(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			abortJSON(c, http.StatusNotFound, "not_found", "API key not found")
			return
		}
		log.Printf("❌ Failed to revoke API key: %v", err)
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to revoke API key")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "API key revoked"})
}

// generateAPIKey returns "neet_" followed by 32 random hex characters.
func generateAPIKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}
