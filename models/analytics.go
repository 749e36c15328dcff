// api/models/analytics.go
package models

import "time"

// Event types reported by the quiz frontend.
const (
	EventPageView     = "page_view"
	EventButtonClick  = "button_click"
	EventAnswerSelect = "answer_select"
	EventStepComplete = "step_complete"
)

// Session is one visitor's pass through the funnel, keyed by a
// client-generated id.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	Completed bool      `json:"completed"`
}

// Event is a single recorded interaction. ID is assigned by the store.
// StepName, StepNumber and Data are optional; Data carries an opaque
// JSON payload that the backend never interprets.
type Event struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	EventType  string    `json:"event_type"`
	StepName   *string   `json:"step_name,omitempty"`
	StepNumber *int      `json:"step_number,omitempty"`
	Data       *string   `json:"data,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Answer is a denormalized projection of an answer_select event, written
// in addition to the Event record so answer distributions stay cheap to query.
type Answer struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	StepName   string    `json:"step_name"`
	StepNumber int       `json:"step_number"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Timestamp  time.Time `json:"timestamp"`
}

// FunnelStep is one row of the raw funnel query: how many distinct sessions
// saw a page_view at this step.
type FunnelStep struct {
	StepNumber int    `json:"step_number"`
	StepName   string `json:"step_name"`
	Visitors   int64  `json:"visitors"`
}

// AnswerStat is one (step, question, answer) bucket. Percentage is relative
// to the total answers recorded for the same step, not across steps.
type AnswerStat struct {
	StepName   string  `json:"step_name"`
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// CompletionStats reports funnel completion. CompletionRate is 0 on an
// empty dataset, never NaN.
type CompletionStats struct {
	Total          int64   `json:"total"`
	Completed      int64   `json:"completed"`
	CompletionRate float64 `json:"completion_rate"`
}

// SessionsByDate is the per-calendar-day session count. Date is formatted
// as YYYY-MM-DD regardless of backend.
type SessionsByDate struct {
	Date      string `json:"date"`
	Sessions  int64  `json:"sessions"`
	Completed int64  `json:"completed"`
}
