// jwt.go provides JWT authentication for portal users. It works alongside
// API key auth: DualAuth accepts either.
package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Shimizu-Technology/neet-question-api/internal/models"
)

const userContextKey contextKey = "user"

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 72 * time.Hour

// UserStore looks up portal users. *database.DB implements it.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// AuthStore is everything DualAuth needs.
type AuthStore interface {
	KeyStore
	UserStore
}

// JWTClaims extends standard JWT claims with user info.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a signed token for user and returns it with its expiry.
func GenerateJWT(user *models.User, secret string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(TokenTTL)
	claims := JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseJWT validates and parses a JWT token string. Only HS256 is accepted.
func ParseJWT(tokenString, secret string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// JWTAuth returns middleware that requires a valid Bearer token.
func JWTAuth(store UserStore, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "Missing or invalid Authorization header. Use 'Bearer <token>'")
			return
		}

		user, err := userFromToken(c.Request.Context(), store, tokenString, jwtSecret)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(string(userContextKey), user)
		c.Next()
	}
}

// DualAuth returns middleware that accepts EITHER an API key OR a JWT.
// The API key is tried first.
func DualAuth(store AuthStore, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rawKey := c.GetHeader("X-API-Key"); rawKey != "" {
			if apiKey, ok := lookupAPIKey(c, store, rawKey); ok {
				c.Set(string(apiKeyContextKey), apiKey)
				c.Next()
				return
			}
		}

		if tokenString, ok := bearerToken(c); ok {
			if user, err := userFromToken(c.Request.Context(), store, tokenString, jwtSecret); err == nil {
				c.Set(string(userContextKey), user)
				c.Next()
				return
			}
		}

		abortUnauthorized(c, "Provide a valid X-API-Key header or Authorization: Bearer <token>")
	}
}

// GetUser retrieves the authenticated user from the request context.
func GetUser(c *gin.Context) *models.User {
	val, exists := c.Get(string(userContextKey))
	if !exists {
		return nil
	}
	user, ok := val.(*models.User)
	if !ok {
		return nil
	}
	return user
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func userFromToken(ctx context.Context, store UserStore, tokenString, secret string) (*models.User, error) {
	claims, err := ParseJWT(tokenString, secret)
	if err != nil {
		return nil, err
	}
	user, err := store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	return user, nil
}
