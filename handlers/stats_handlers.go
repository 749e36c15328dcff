package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"quizpulse/api/analytics"
	"quizpulse/api/utils"
)

type StatsHandlers struct {
	Service     *analytics.Service
	DefaultDays int
}

func NewStatsHandlers(service *analytics.Service, defaultDays int) *StatsHandlers {
	return &StatsHandlers{Service: service, DefaultDays: defaultDays}
}

// GetStats serves the dashboard's aggregate queries. The type selector picks
// which derived blocks to compute; days only affects the overview's
// date-bucketed counts.
func (h *StatsHandlers) GetStats(c *gin.Context) {
	statsType := c.DefaultQuery("type", "all")
	if !utils.IsValidStatsType(statsType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid type. Use 'all', 'funnel', 'answers' or 'overview'"})
		return
	}

	days := h.DefaultDays
	if daysParam := c.Query("days"); daysParam != "" {
		parsed, err := strconv.Atoi(daysParam)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'days' parameter. Must be a positive integer."})
			return
		}
		days = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	data := gin.H{}

	if statsType == "all" || statsType == "funnel" {
		funnel, err := h.Service.Funnel(ctx)
		if err != nil {
			log.Printf("Error getting funnel stats: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve funnel statistics"})
			return
		}
		data["funnel"] = funnel
	}

	if statsType == "all" || statsType == "answers" {
		answers, err := h.Service.Answers(ctx)
		if err != nil {
			log.Printf("Error getting answer stats: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve answer statistics"})
			return
		}
		data["answers"] = answers
	}

	if statsType == "all" || statsType == "overview" {
		overview, err := h.Service.Overview(ctx, days)
		if err != nil {
			log.Printf("Error getting overview stats: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve overview statistics"})
			return
		}
		data["overview"] = overview
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      data,
	})
}
