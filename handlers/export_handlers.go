package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"quizpulse/api/store"
	"quizpulse/api/utils"
)

type ExportHandlers struct {
	Store store.AnalyticsStore
}

func NewExportHandlers(s store.AnalyticsStore) *ExportHandlers {
	return &ExportHandlers{Store: s}
}

// Export dumps one raw table as a CSV attachment. encoding/csv handles the
// quoting rules (delimiters and quotes wrapped, internal quotes doubled).
func (h *ExportHandlers) Export(c *gin.Context) {
	table := c.DefaultQuery("table", "events")
	if !utils.IsValidExportTable(table) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid table specified"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	var records [][]string
	var err error
	switch table {
	case "sessions":
		records, err = h.sessionRecords(ctx)
	case "events":
		records, err = h.eventRecords(ctx)
	case "answers":
		records, err = h.answerRecords(ctx)
	}
	if err != nil {
		log.Printf("Error exporting %s: %v", table, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export data"})
		return
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(records); err != nil {
		log.Printf("Error writing CSV for %s: %v", table, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export data"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_export.csv"`, table))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *ExportHandlers) sessionRecords(ctx context.Context) ([][]string, error) {
	sessions, err := h.Store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	records := [][]string{{"id", "created_at", "user_agent", "ip_address", "completed"}}
	for _, s := range sessions {
		records = append(records, []string{
			s.ID,
			s.CreatedAt.Format(time.RFC3339),
			s.UserAgent,
			s.IPAddress,
			strconv.FormatBool(s.Completed),
		})
	}
	return records, nil
}

func (h *ExportHandlers) eventRecords(ctx context.Context) ([][]string, error) {
	events, err := h.Store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	records := [][]string{{"id", "session_id", "event_type", "step_name", "step_number", "data", "timestamp"}}
	for _, e := range events {
		records = append(records, []string{
			strconv.FormatInt(e.ID, 10),
			e.SessionID,
			e.EventType,
			stringOrEmpty(e.StepName),
			intOrEmpty(e.StepNumber),
			stringOrEmpty(e.Data),
			e.Timestamp.Format(time.RFC3339),
		})
	}
	return records, nil
}

func (h *ExportHandlers) answerRecords(ctx context.Context) ([][]string, error) {
	answers, err := h.Store.ListAnswers(ctx)
	if err != nil {
		return nil, err
	}
	records := [][]string{{"id", "session_id", "step_name", "step_number", "question", "answer", "timestamp"}}
	for _, a := range answers {
		records = append(records, []string{
			strconv.FormatInt(a.ID, 10),
			a.SessionID,
			a.StepName,
			strconv.Itoa(a.StepNumber),
			a.Question,
			a.Answer,
			a.Timestamp.Format(time.RFC3339),
		})
	}
	return records, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
