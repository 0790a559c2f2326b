// auth_test.go covers key hashing and the three auth middlewares.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Shimizu-Technology/neet-question-api/internal/models"
)

const testSecret = "test-secret"

type fakeAuthStore struct {
	mu       sync.Mutex
	keys     map[string]*models.APIKey // by hash
	users    map[string]*models.User
	lastUsed []string
}

func (f *fakeAuthStore) GetAPIKeyByHash(_ context.Context, hash string) (*models.APIKey, error) {
	if k, ok := f.keys[hash]; ok && k.Active {
		return k, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeAuthStore) UpdateAPIKeyLastUsed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = append(f.lastUsed, id)
	return nil
}

func (f *fakeAuthStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{
		keys: map[string]*models.APIKey{
			HashAPIKey("neet_live"):    {ID: "key-1", Name: "coaching app", Active: true},
			HashAPIKey("neet_revoked"): {ID: "key-2", Name: "old", Active: false},
		},
		users: map[string]*models.User{
			"user-1": {ID: "user-1", Email: "coach@example.com"},
		},
	}
}

// whoami reports which identity the middleware attached.
func whoami(c *gin.Context) {
	switch {
	case GetAPIKey(c) != nil:
		c.String(http.StatusOK, "key:"+GetAPIKey(c).ID)
	case GetUser(c) != nil:
		c.String(http.StatusOK, "user:"+GetUser(c).ID)
	default:
		c.String(http.StatusOK, "anonymous")
	}
}

func serve(mw gin.HandlerFunc, headers map[string]string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", mw, whoami)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHashAPIKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		if HashAPIKey("neet_abc") != HashAPIKey("neet_abc") {
			t.Error("HashAPIKey is not deterministic")
		}
	})
	t.Run("different inputs different outputs", func(t *testing.T) {
		if HashAPIKey("neet_key_one") == HashAPIKey("neet_key_two") {
			t.Error("HashAPIKey produced same hash for different inputs")
		}
	})
	t.Run("known vector", func(t *testing.T) {
		// SHA-256 of the empty string.
		want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
		if got := HashAPIKey(""); got != want {
			t.Errorf("HashAPIKey(\"\") = %s, want %s", got, want)
		}
	})
}

func TestJWT_RoundTrip(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "coach@example.com"}
	token, expiresAt, err := GenerateJWT(user, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if d := time.Until(expiresAt); d < TokenTTL-time.Minute || d > TokenTTL {
		t.Errorf("expiry in %s, want about %s", d, TokenTTL)
	}

	claims, err := ParseJWT(token, testSecret)
	if err != nil {
		t.Fatalf("ParseJWT() error = %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "coach@example.com" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := ParseJWT(token, "wrong-secret"); err == nil {
		t.Error("ParseJWT() accepted a token signed with another secret")
	}
}

func TestParseJWT_RejectsExpiredAndForeignAlgorithms(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, _ := expired.SignedString([]byte(testSecret))
	if _, err := ParseJWT(signed, testSecret); err == nil {
		t.Error("ParseJWT() accepted an expired token")
	}

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, JWTClaims{UserID: "user-1"})
	signed, _ = hs512.SignedString([]byte(testSecret))
	if _, err := ParseJWT(signed, testSecret); err == nil {
		t.Error("ParseJWT() accepted an HS512 token")
	}
}

func TestDualAuth(t *testing.T) {
	store := newFakeAuthStore()
	token, _, _ := GenerateJWT(store.users["user-1"], testSecret)
	unknownUser, _, _ := GenerateJWT(&models.User{ID: "user-404"}, testSecret)

	tests := []struct {
		name     string
		headers  map[string]string
		wantCode int
		wantBody string
	}{
		{"api key", map[string]string{"X-API-Key": "neet_live"}, http.StatusOK, "key:key-1"},
		{"bearer token", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK, "user:user-1"},
		{"bad key falls back to token", map[string]string{"X-API-Key": "nope", "Authorization": "Bearer " + token}, http.StatusOK, "user:user-1"},
		{"revoked key", map[string]string{"X-API-Key": "neet_revoked"}, http.StatusUnauthorized, ""},
		{"token for deleted user", map[string]string{"Authorization": "Bearer " + unknownUser}, http.StatusUnauthorized, ""},
		{"malformed header", map[string]string{"Authorization": "Token " + token}, http.StatusUnauthorized, ""},
		{"nothing", nil, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(DualAuth(store, testSecret), tt.headers)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestJWTAuth_RejectsAPIKey(t *testing.T) {
	store := newFakeAuthStore()
	w := serve(JWTAuth(store, testSecret), map[string]string{"X-API-Key": "neet_live"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	store := newFakeAuthStore()

	if w := serve(APIKeyAuth(store), map[string]string{"X-API-Key": "neet_live"}); w.Code != http.StatusOK {
		t.Errorf("valid key status = %d, want 200", w.Code)
	}
	if w := serve(APIKeyAuth(store), nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing key status = %d, want 401", w.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name     string
		adminKey string
		provided string
		want     int
	}{
		{"open when unset", "", "", http.StatusOK},
		{"matching key", "admin-secret", "admin-secret", http.StatusOK},
		{"missing header", "admin-secret", "", http.StatusUnauthorized},
		{"wrong key", "admin-secret", "guess", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.provided != "" {
				headers["X-Admin-Key"] = tt.provided
			}
			if w := serve(AdminAuth(tt.adminKey), headers); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
