package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"quizpulse/api/models"
	"quizpulse/api/utils"
)

// PostgresStore is the networked relational backend for multi-process
// hosted deployments.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			user_agent TEXT,
			ip_address TEXT,
			completed BOOLEAN DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			step_name TEXT,
			step_number INTEGER,
			data TEXT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS answers (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			step_name TEXT NOT NULL,
			step_number INTEGER NOT NULL,
			question TEXT,
			answer TEXT NOT NULL,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_session_step ON events(session_id, step_number)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_answers_step ON answers(step_number)`,
		`CREATE INDEX IF NOT EXISTS idx_answers_answer ON answers(answer)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize postgres schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateSession(ctx context.Context, id, userAgent, ipAddress string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_agent, ip_address)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, id, userAgent, ipAddress)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session := &models.Session{}
	var userAgent, ipAddress sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, user_agent, ip_address, completed
		FROM sessions WHERE id = $1
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

func (s *PostgresStore) MarkSessionCompleted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET completed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark session completed: %w", err)
	}
	return nil
}

func (s *PostgresStore) TrackEvent(ctx context.Context, event *models.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (session_id, event_type, step_name, step_number, data)
		VALUES ($1, $2, $3, $4, $5)
	`, event.SessionID, event.EventType, event.StepName, event.StepNumber, event.Data)
	if err != nil {
		return fmt.Errorf("failed to track event: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveAnswer(ctx context.Context, answer *models.Answer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (session_id, step_name, step_number, question, answer)
		VALUES ($1, $2, $3, $4, $5)
	`, answer.SessionID, answer.StepName, answer.StepNumber, answer.Question, answer.Answer)
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetFunnelStats(ctx context.Context) ([]models.FunnelStep, error) {
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

func (s *PostgresStore) GetAnswerStats(ctx context.Context) ([]models.AnswerStat, error) {
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

func (s *PostgresStore) GetTotalSessions(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) GetCompletionRate(ctx context.Context) (*models.CompletionStats, error) {
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

func (s *PostgresStore) GetSessionsByDate(ctx context.Context, days int) ([]models.SessionsByDate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			DATE(created_at) AS date,
			COUNT(*) AS sessions,
			COUNT(CASE WHEN completed THEN 1 END) AS completed
		FROM sessions
		WHERE created_at >= NOW() - make_interval(days => $1)
		GROUP BY DATE(created_at)
		ORDER BY date DESC
	`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions by date: %w", err)
	}
	defer rows.Close()
	return scanSessionsByDate(rows)
}

func (s *PostgresStore) ListSessions(ctx context.Context) ([]models.Session, error) {
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

func (s *PostgresStore) ListEvents(ctx context.Context) ([]models.Event, error) {
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

func (s *PostgresStore) ListAnswers(ctx context.Context) ([]models.Answer, error) {
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

func (s *PostgresStore) ClearAllData(ctx context.Context) error {
	for _, table := range []string{"answers", "events", "sessions"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("All analytics data cleared from PostgreSQL")
	return nil
}
