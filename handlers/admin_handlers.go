package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quizpulse/api/store"
)

type AdminHandlers struct {
	Store store.AnalyticsStore
}

func NewAdminHandlers(s store.AnalyticsStore) *AdminHandlers {
	return &AdminHandlers{Store: s}
}

// ClearData wipes all analytics collections. Intended for test/reset use;
// callers should quiesce ingestion around it, since the wipe is not atomic
// with respect to concurrent writes.
func (h *AdminHandlers) ClearData(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if err := h.Store.ClearAllData(ctx); err != nil {
		log.Printf("Error clearing analytics data: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear analytics data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All analytics data cleared successfully",
	})
}
