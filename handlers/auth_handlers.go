// api/handlers/auth_handlers.go
package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"quizpulse/api/models"
	"quizpulse/api/utils"
)

// AuthHandlers exchanges the dashboard operator password for a JWT. There is
// a single operator credential, configured as a bcrypt hash; no signup flow.
type AuthHandlers struct {
	PasswordHash []byte
	JWTSecret    []byte
}

func NewAuthHandlers(passwordHash, jwtSecret string) *AuthHandlers {
	return &AuthHandlers{
		PasswordHash: []byte(passwordHash),
		JWTSecret:    []byte(jwtSecret),
	}
}

func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.PasswordHash, []byte(req.Password)); err != nil {
		log.Println("Dashboard login failed: password mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenString, err := utils.GenerateDashboardJWT(h.JWTSecret)
	if err != nil {
		log.Printf("ERROR: Failed to generate dashboard JWT: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	c.SetCookie(
		"jwt_token",
		tokenString,
		int(24*time.Hour/time.Second),
		"/",
		"",
		false,
		true,
	)

	log.Println("Dashboard operator logged in. JWT issued.")
	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	c.SetCookie(
		"jwt_token",
		"",
		-1,
		"/",
		"",
		false,
		true,
	)

	log.Println("Dashboard operator logged out (JWT cookie cleared).")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
