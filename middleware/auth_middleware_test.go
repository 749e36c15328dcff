package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"quizpulse/api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(jwtSecret []byte, apiKey string) *gin.Engine {
	router := gin.New()
	router.GET("/protected", AuthRequired(jwtSecret, apiKey), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": c.GetString("dashboard_role")})
	})
	return router
}

func TestAuthRequiredNoCredentials(t *testing.T) {
	router := protectedRouter([]byte("secret"), "")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthRequiredAPIKey(t *testing.T) {
	router := protectedRouter([]byte("secret"), "op-key")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-API-KEY", "op-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAuthRequiredWrongAPIKey(t *testing.T) {
	router := protectedRouter([]byte("secret"), "op-key")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-API-KEY", "wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthRequiredEmptyConfiguredKeyNeverMatches(t *testing.T) {
	// With no API key configured, a blank header must not slip through.
	router := protectedRouter([]byte("secret"), "")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-API-KEY", "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthRequiredCookieJWT(t *testing.T) {
	secret := []byte("secret")
	token, err := utils.GenerateDashboardJWT(secret)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	router := protectedRouter(secret, "")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestAuthRequiredBearerJWT(t *testing.T) {
	secret := []byte("secret")
	token, err := utils.GenerateDashboardJWT(secret)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	router := protectedRouter(secret, "")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestAuthRequiredForeignJWT(t *testing.T) {
	token, err := utils.GenerateDashboardJWT([]byte("other-secret"))
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	router := protectedRouter([]byte("secret"), "")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
