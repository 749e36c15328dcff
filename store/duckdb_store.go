package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"quizpulse/api/models"
	"quizpulse/api/utils"
)

// DuckDBStore is the embedded file-based backend, for a single local process
// writing to a local database file.
type DuckDBStore struct {
	db *sql.DB
}

func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// Init creates tables, sequences and indexes if absent. Safe to call on
// every startup.
func (s *DuckDBStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP DEFAULT current_timestamp,
			user_agent TEXT,
			ip_address TEXT,
			completed BOOLEAN DEFAULT FALSE
		)`,
		`CREATE SEQUENCE IF NOT EXISTS events_id_seq`,
		`CREATE TABLE IF NOT EXISTS events (
			id BIGINT PRIMARY KEY DEFAULT nextval('events_id_seq'),
			session_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			step_name TEXT,
			step_number INTEGER,
			data TEXT,
			timestamp TIMESTAMP DEFAULT current_timestamp
		)`,
		`CREATE SEQUENCE IF NOT EXISTS answers_id_seq`,
		`CREATE TABLE IF NOT EXISTS answers (
			id BIGINT PRIMARY KEY DEFAULT nextval('answers_id_seq'),
			session_id TEXT NOT NULL,
			step_name TEXT NOT NULL,
			step_number INTEGER NOT NULL,
			question TEXT,
			answer TEXT NOT NULL,
			timestamp TIMESTAMP DEFAULT current_timestamp
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_session_step ON events(session_id, step_number)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_answers_step ON answers(step_number)`,
		`CREATE INDEX IF NOT EXISTS idx_answers_answer ON answers(answer)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize duckdb schema: %w", err)
		}
	}
	return nil
}

func (s *DuckDBStore) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new session. ON CONFLICT DO NOTHING makes the
// check-then-act race on first events harmless: the first insert wins and
// concurrent duplicates are ignored.
func (s *DuckDBStore) CreateSession(ctx context.Context, id, userAgent, ipAddress string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_agent, ip_address)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, id, userAgent, ipAddress)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *DuckDBStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session := &models.Session{}
	var userAgent, ipAddress sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, user_agent, ip_address, completed
		FROM sessions WHERE id = ?
	`, id).Scan(&session.ID, &session.CreatedAt, &userAgent, &ipAddress, &session.Completed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	session.UserAgent = userAgent.String
	session.IPAddress = ipAddress.String
	return session, nil
}

func (s *DuckDBStore) MarkSessionCompleted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET completed = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark session completed: %w", err)
	}
	return nil
}

func (s *DuckDBStore) TrackEvent(ctx context.Context, event *models.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (session_id, event_type, step_name, step_number, data)
		VALUES (?, ?, ?, ?, ?)
	`, event.SessionID, event.EventType, event.StepName, event.StepNumber, event.Data)
	if err != nil {
		return fmt.Errorf("failed to track event: %w", err)
	}
	return nil
}

func (s *DuckDBStore) SaveAnswer(ctx context.Context, answer *models.Answer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (session_id, step_name, step_number, question, answer)
		VALUES (?, ?, ?, ?, ?)
	`, answer.SessionID, answer.StepName, answer.StepNumber, answer.Question, answer.Answer)
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	return nil
}

func (s *DuckDBStore) GetFunnelStats(ctx context.Context) ([]models.FunnelStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step_number, step_name, COUNT(DISTINCT session_id) AS visitors
		FROM events
		WHERE event_type = 'page_view' AND step_number IS NOT NULL
		GROUP BY step_number, step_name
		ORDER BY step_number
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query funnel stats: %w", err)
	}
	defer rows.Close()

	var results []models.FunnelStep
	for rows.Next() {
		var step models.FunnelStep
		var stepName sql.NullString
		if err := rows.Scan(&step.StepNumber, &stepName, &step.Visitors); err != nil {
			log.Printf("Error scanning funnel stats row: %v", err)
			continue
		}
		step.StepName = stepName.String
		results = append(results, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during funnel stats query: %w", err)
	}
	return results, nil
}

func (s *DuckDBStore) GetAnswerStats(ctx context.Context) ([]models.AnswerStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			step_name,
			question,
			answer,
			COUNT(*) AS count,
			ROUND(COUNT(*) * 100.0 / SUM(COUNT(*)) OVER (PARTITION BY step_name), 2) AS percentage
		FROM answers
		GROUP BY step_name, question, answer
		ORDER BY step_name, count DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query answer stats: %w", err)
	}
	defer rows.Close()
	return scanAnswerStats(rows)
}

func (s *DuckDBStore) GetTotalSessions(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return total, nil
}

func (s *DuckDBStore) GetCompletionRate(ctx context.Context) (*models.CompletionStats, error) {
	stats := &models.CompletionStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(CASE WHEN completed THEN 1 END) FROM sessions
	`).Scan(&stats.Total, &stats.Completed)
	if err != nil {
		return nil, fmt.Errorf("failed to query completion rate: %w", err)
	}
	stats.CompletionRate = utils.CompletionRate(stats.Completed, stats.Total)
	return stats, nil
}

func (s *DuckDBStore) GetSessionsByDate(ctx context.Context, days int) ([]models.SessionsByDate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			CAST(created_at AS DATE) AS date,
			COUNT(*) AS sessions,
			COUNT(CASE WHEN completed THEN 1 END) AS completed
		FROM sessions
		WHERE created_at >= now() - to_days(?)
		GROUP BY CAST(created_at AS DATE)
		ORDER BY date DESC
	`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions by date: %w", err)
	}
	defer rows.Close()
	return scanSessionsByDate(rows)
}

func (s *DuckDBStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, user_agent, ip_address, completed
		FROM sessions ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (s *DuckDBStore) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, event_type, step_name, step_number, data, timestamp
		FROM events ORDER BY timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *DuckDBStore) ListAnswers(ctx context.Context) ([]models.Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, step_name, step_number, question, answer, timestamp
		FROM answers ORDER BY timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()
	return scanAnswers(rows)
}

// ClearAllData wipes all three tables, children before parents.
func (s *DuckDBStore) ClearAllData(ctx context.Context) error {
	for _, table := range []string{"answers", "events", "sessions"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("All analytics data cleared from DuckDB")
	return nil
}
