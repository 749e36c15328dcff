// api/handlers/track_handlers.go
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quizpulse/api/ingest"
)

type TrackHandlers struct {
	Recorder *ingest.Recorder
}

func NewTrackHandlers(recorder *ingest.Recorder) *TrackHandlers {
	return &TrackHandlers{Recorder: recorder}
}

// TrackEvent receives one interaction from the quiz frontend. Missing
// required fields are a client error; storage failures are server errors.
// The frontend fires these best-effort and never blocks the funnel on them.
func (h *TrackHandlers) TrackEvent(c *gin.Context) {
	var req ingest.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("Error binding tracking JSON: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.SessionID == "" || req.EventType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID and event type are required"})
		return
	}

	meta := ingest.ClientMeta{
		UserAgent:    c.GetHeader("User-Agent"),
		ForwardedFor: c.GetHeader("X-Forwarded-For"),
		RealIP:       c.GetHeader("X-Real-IP"),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.Recorder.Record(ctx, req, meta); err != nil {
		if errors.Is(err, ingest.ErrMissingFields) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID and event type are required"})
			return
		}
		log.Printf("Error recording analytics event: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record analytics event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
