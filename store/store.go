// Package store provides the persistence layer for quiz analytics.
//
// The AnalyticsStore interface is implemented by three interchangeable
// backends: an embedded DuckDB file for single-process local use, PostgreSQL
// for networked deployments, and ClickHouse for high-volume hosted use.
// All dialect-specific details (placeholders, autoincrement, date arithmetic,
// boolean encoding) stay behind this interface; every backend returns
// value-identical shapes for identical input data.
package store

import (
	"context"

	"quizpulse/api/models"
)

// AnalyticsStore is the storage contract shared by all backends.
//
// Writes are append-only except MarkSessionCompleted (a single boolean flip)
// and ClearAllData (bulk wipe for test/reset use). Implementations must
// tolerate concurrent duplicate CreateSession calls for the same id:
// the first write wins and the second is silently ignored.
type AnalyticsStore interface {
	// Init creates schema, tables and indexes if absent. Idempotent.
	Init(ctx context.Context) error
	Close() error

	// CreateSession inserts a session with completed=false. A duplicate id
	// is not an error.
	CreateSession(ctx context.Context, id, userAgent, ipAddress string) error
	// GetSession returns (nil, nil) when the session does not exist.
	GetSession(ctx context.Context, id string) (*models.Session, error)
	// MarkSessionCompleted sets completed=true. No-op when the id is absent
	// or the flag is already set.
	MarkSessionCompleted(ctx context.Context, id string) error

	// TrackEvent appends an event. The store assigns ID and Timestamp.
	TrackEvent(ctx context.Context, event *models.Event) error
	// SaveAnswer appends an answer. The store assigns ID and Timestamp.
	SaveAnswer(ctx context.Context, answer *models.Answer) error

	// GetFunnelStats returns distinct page_view visitors per step,
	// ordered ascending by step number.
	GetFunnelStats(ctx context.Context) ([]models.FunnelStep, error)
	// GetAnswerStats returns per (step, question, answer) counts with
	// percentages relative to the step's total, ordered by step name and
	// count descending.
	GetAnswerStats(ctx context.Context) ([]models.AnswerStat, error)
	GetTotalSessions(ctx context.Context) (int64, error)
	GetCompletionRate(ctx context.Context) (*models.CompletionStats, error)
	// GetSessionsByDate returns per-day created/completed session counts
	// for the most recent days days, newest date first.
	GetSessionsByDate(ctx context.Context, days int) ([]models.SessionsByDate, error)

	// Raw dumps for CSV export, newest first.
	ListSessions(ctx context.Context) ([]models.Session, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	ListAnswers(ctx context.Context) ([]models.Answer, error)

	// ClearAllData deletes answers, then events, then sessions.
	ClearAllData(ctx context.Context) error
}
