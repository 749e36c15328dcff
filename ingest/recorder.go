// Package ingest is the single entry point for tracking calls from the quiz
// frontend. It guarantees the owning session exists, appends the event, writes
// the denormalized answer row for answer selections, and marks the session
// completed when the funnel's terminal step is reached.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"quizpulse/api/models"
	"quizpulse/api/store"
)

// ErrMissingFields is returned when a tracking call lacks a session id or
// event type. Nothing is written in that case.
var ErrMissingFields = errors.New("session id and event type are required")

// TrackRequest is the payload reported by the quiz frontend for one
// interaction.
type TrackRequest struct {
	SessionID  string          `json:"sessionId"`
	EventType  string          `json:"eventType"`
	StepName   *string         `json:"stepName,omitempty"`
	StepNumber *int            `json:"stepNumber,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Answer     *string         `json:"answer,omitempty"`
	Question   *string         `json:"question,omitempty"`
}

// ClientMeta carries transport-level metadata used to populate a session
// created on its first event.
type ClientMeta struct {
	UserAgent    string
	ForwardedFor string
	RealIP       string
}

// ResolveClientIP picks the visitor IP: the first entry of the
// forwarded-for header, else the real-IP header, else loopback.
func ResolveClientIP(meta ClientMeta) string {
	if meta.ForwardedFor != "" {
		return strings.TrimSpace(strings.Split(meta.ForwardedFor, ",")[0])
	}
	if meta.RealIP != "" {
		return meta.RealIP
	}
	return "127.0.0.1"
}

// Recorder composes the session registry and the event/answer log behind one
// Record operation. The storage client and the terminal-step configuration
// are injected at construction.
type Recorder struct {
	store              store.AnalyticsStore
	terminalStepName   string
	terminalStepNumber int
}

func NewRecorder(s store.AnalyticsStore, terminalStepName string, terminalStepNumber int) *Recorder {
	return &Recorder{
		store:              s,
		terminalStepName:   terminalStepName,
		terminalStepNumber: terminalStepNumber,
	}
}

// Record performs the ingestion sequence: validate, ensure session, append
// event, conditionally append answer, conditionally mark completion. The
// writes are best-effort sequential; there is no cross-step transaction, and
// a failure at any step surfaces to the caller who owns retry policy.
func (r *Recorder) Record(ctx context.Context, req TrackRequest, meta ClientMeta) error {
	if req.SessionID == "" || req.EventType == "" {
		return ErrMissingFields
	}

	session, err := r.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		// Two first events racing here both see "absent"; the adapters
		// make the second create a harmless no-op, so no locking is
		// needed.
		if err := r.store.CreateSession(ctx, req.SessionID, meta.UserAgent, ResolveClientIP(meta)); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
	}

	event := &models.Event{
		SessionID:  req.SessionID,
		EventType:  req.EventType,
		StepName:   req.StepName,
		StepNumber: req.StepNumber,
	}
	// A JSON null payload means no payload; store column NULL, not the
	// literal string "null".
	if len(req.Data) > 0 && string(req.Data) != "null" {
		data := string(req.Data)
		event.Data = &data
	}
	if err := r.store.TrackEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to track event: %w", err)
	}

	if r.isAnswerSelection(req) {
		answer := &models.Answer{
			SessionID:  req.SessionID,
			StepName:   *req.StepName,
			StepNumber: *req.StepNumber,
			Question:   *req.Question,
			Answer:     *req.Answer,
		}
		if err := r.store.SaveAnswer(ctx, answer); err != nil {
			return fmt.Errorf("failed to save answer: %w", err)
		}
	}

	if r.isTerminalStep(req.StepName, req.StepNumber) {
		if err := r.store.MarkSessionCompleted(ctx, req.SessionID); err != nil {
			return fmt.Errorf("failed to mark session completed: %w", err)
		}
	}

	return nil
}

// isAnswerSelection reports whether the event carries a complete answer:
// answer, question and step name all non-empty, step number present.
func (r *Recorder) isAnswerSelection(req TrackRequest) bool {
	return req.EventType == models.EventAnswerSelect &&
		req.Answer != nil && *req.Answer != "" &&
		req.Question != nil && *req.Question != "" &&
		req.StepName != nil && *req.StepName != "" &&
		req.StepNumber != nil
}

func (r *Recorder) isTerminalStep(stepName *string, stepNumber *int) bool {
	if stepName != nil && r.terminalStepName != "" && *stepName == r.terminalStepName {
		return true
	}
	if stepNumber != nil && r.terminalStepNumber >= 0 && *stepNumber == r.terminalStepNumber {
		return true
	}
	return false
}
