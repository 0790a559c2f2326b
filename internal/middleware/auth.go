// Package middleware provides HTTP middleware for the API.
//
// Go Pattern: Middleware in Gin is a gin.HandlerFunc that calls c.Next() to
// continue the chain, or c.Abort() to stop processing.
package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/neet-question-api/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const apiKeyContextKey contextKey = "api_key"

// KeyStore looks up API keys. *database.DB implements it.
type KeyStore interface {
	GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// APIKeyAuth returns middleware that validates the X-API-Key header.
// Keys are looked up by their SHA-256 hash; raw keys are never stored.
func APIKeyAuth(store KeyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader("X-API-Key")
		if rawKey == "" {
			abortUnauthorized(c, "Missing X-API-Key header. Create an API key via POST /api/v1/keys")
			return
		}

		apiKey, ok := lookupAPIKey(c, store, rawKey)
		if !ok {
			abortUnauthorized(c, "Invalid or revoked API key")
			return
		}

		c.Set(string(apiKeyContextKey), apiKey)
		c.Next()
	}
}

// AdminAuth returns middleware that requires X-Admin-Key to match adminKey.
// With an empty adminKey (local development) the route stays open so the
// first API key can be bootstrapped.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.Next()
			return
		}

		provided := c.GetHeader("X-Admin-Key")
		if provided == "" {
			abortUnauthorized(c, "X-Admin-Key header is required")
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(adminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "forbidden",
				Message: "Invalid admin key",
				Code:    http.StatusForbidden,
			})
			return
		}
		c.Next()
	}
}

// lookupAPIKey resolves a raw key and records its use in the background.
func lookupAPIKey(c *gin.Context, store KeyStore, rawKey string) (*models.APIKey, bool) {
	apiKey, err := store.GetAPIKeyByHash(c.Request.Context(), HashAPIKey(rawKey))
	if err != nil || apiKey == nil {
		return nil, false
	}

	// Fire and forget; the request may finish before the update does.
	ctx := context.WithoutCancel(c.Request.Context())
	go func(id string) {
		if err := store.UpdateAPIKeyLastUsed(ctx, id); err != nil {
			log.Printf("⚠️  Failed to update last_used_at for key %s: %v", id, err)
		}
	}(apiKey.ID)

	return apiKey, true
}

// GetAPIKey retrieves the authenticated API key from the request context.
func GetAPIKey(c *gin.Context) *models.APIKey {
	val, exists := c.Get(string(apiKeyContextKey))
	if !exists {
		return nil
	}
	key, ok := val.(*models.APIKey)
	if !ok {
		return nil
	}
	return key
}

// HashAPIKey creates a SHA-256 hash of an API key.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", hash)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: message,
		Code:    http.StatusUnauthorized,
	})
}
