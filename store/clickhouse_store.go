package store

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"quizpulse/api/database"
	"quizpulse/api/models"
	"quizpulse/api/utils"
)

// ClickHouseStore is an append-only backend for high-volume hosted
// deployments. MergeTree tables have no primary-key enforcement and no
// autoincrement, so the adapter leans on ClickHouse's strengths instead:
// duplicate session rows are deduplicated at read time (first write wins via
// argMin), completion is an append to session_completions rather than an
// UPDATE, and row ids are assigned process-side from a nanosecond-seeded
// counter.
type ClickHouseStore struct {
	DB     *database.ClickHouseClient
	lastID int64
}

func NewClickHouseStore(chClient *database.ClickHouseClient) *ClickHouseStore {
	return &ClickHouseStore{
		DB:     chClient,
		lastID: time.Now().UnixNano(),
	}
}

func (s *ClickHouseStore) nextID() int64 {
	return atomic.AddInt64(&s.lastID, 1)
}

func (s *ClickHouseStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id String,
			created_at DateTime DEFAULT now(),
			user_agent String,
			ip_address String
		) ENGINE = MergeTree ORDER BY (id, created_at)`,
		`CREATE TABLE IF NOT EXISTS session_completions (
			session_id String,
			completed_at DateTime DEFAULT now()
		) ENGINE = MergeTree ORDER BY session_id`,
		`CREATE TABLE IF NOT EXISTS events (
			id Int64,
			session_id String,
			event_type LowCardinality(String),
			step_name Nullable(String),
			step_number Nullable(Int32),
			data Nullable(String),
			timestamp DateTime DEFAULT now()
		) ENGINE = MergeTree ORDER BY (session_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS answers (
			id Int64,
			session_id String,
			step_name String,
			step_number Int32,
			question String,
			answer String,
			timestamp DateTime DEFAULT now()
		) ENGINE = MergeTree ORDER BY (step_name, answer, timestamp)`,
	}

	for _, stmt := range stmts {
		if err := s.DB.Conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize clickhouse schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseStore) Close() error {
	s.DB.Close()
	return nil
}

// CreateSession appends a session row. Concurrent duplicates for the same id
// are harmless: every read deduplicates by id and keeps the earliest row's
// metadata.
func (s *ClickHouseStore) CreateSession(ctx context.Context, id, userAgent, ipAddress string) error {
	err := s.DB.Conn.Exec(ctx, `
		INSERT INTO sessions (id, user_agent, ip_address) VALUES (?, ?, ?)
	`, id, userAgent, ipAddress)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session := &models.Session{}
	err := s.DB.Conn.QueryRow(ctx, `
		SELECT
			id,
			min(created_at) AS created_at,
			argMin(user_agent, created_at) AS user_agent,
			argMin(ip_address, created_at) AS ip_address
		FROM sessions
		WHERE id = ?
		GROUP BY id
	`, id).Scan(&session.ID, &session.CreatedAt, &session.UserAgent, &session.IPAddress)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var completions uint64
	err = s.DB.Conn.QueryRow(ctx, `
		SELECT count() FROM session_completions WHERE session_id = ?
	`, id).Scan(&completions)
	if err != nil {
		return nil, fmt.Errorf("failed to check session completion: %w", err)
	}
	session.Completed = completions > 0
	return session, nil
}

// MarkSessionCompleted appends to session_completions. The INSERT SELECT
// inserts nothing when the session does not exist, and duplicate completions
// are deduplicated at read time.
func (s *ClickHouseStore) MarkSessionCompleted(ctx context.Context, id string) error {
	err := s.DB.Conn.Exec(ctx, `
		INSERT INTO session_completions (session_id)
		SELECT DISTINCT id FROM sessions WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark session completed: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) TrackEvent(ctx context.Context, event *models.Event) error {
	err := s.DB.Conn.Exec(ctx, `
		INSERT INTO events (id, session_id, event_type, step_name, step_number, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.nextID(), event.SessionID, event.EventType, event.StepName, stepNumber32(event.StepNumber), event.Data)
	if err != nil {
		return fmt.Errorf("failed to track event: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) SaveAnswer(ctx context.Context, answer *models.Answer) error {
	err := s.DB.Conn.Exec(ctx, `
		INSERT INTO answers (id, session_id, step_name, step_number, question, answer)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.nextID(), answer.SessionID, answer.StepName, int32(answer.StepNumber), answer.Question, answer.Answer)
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) GetFunnelStats(ctx context.Context) ([]models.FunnelStep, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT
			assumeNotNull(step_number) AS step_number,
			ifNull(step_name, '') AS step_name,
			uniqExact(session_id) AS visitors
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
		var stepNumber int32
		var stepName string
		var visitors uint64
		if err := rows.Scan(&stepNumber, &stepName, &visitors); err != nil {
			log.Printf("Error scanning funnel stats row: %v", err)
			continue
		}
		results = append(results, models.FunnelStep{
			StepNumber: int(stepNumber),
			StepName:   stepName,
			Visitors:   int64(visitors),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during funnel stats query: %w", err)
	}
	return results, nil
}

func (s *ClickHouseStore) GetAnswerStats(ctx context.Context) ([]models.AnswerStat, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT
			step_name,
			question,
			answer,
			count() AS cnt,
			round(count() * 100.0 / sum(count()) OVER (PARTITION BY step_name), 2) AS percentage
		FROM answers
		GROUP BY step_name, question, answer
		ORDER BY step_name, cnt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query answer stats: %w", err)
	}
	defer rows.Close()

	var results []models.AnswerStat
	for rows.Next() {
		var stat models.AnswerStat
		var count uint64
		if err := rows.Scan(&stat.StepName, &stat.Question, &stat.Answer, &count, &stat.Percentage); err != nil {
			log.Printf("Error scanning answer stats row: %v", err)
			continue
		}
		stat.Count = int64(count)
		results = append(results, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during answer stats query: %w", err)
	}
	return results, nil
}

func (s *ClickHouseStore) GetTotalSessions(ctx context.Context) (int64, error) {
	var total uint64
	err := s.DB.Conn.QueryRow(ctx, `SELECT uniqExact(id) FROM sessions`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return int64(total), nil
}

func (s *ClickHouseStore) GetCompletionRate(ctx context.Context) (*models.CompletionStats, error) {
	var total, completed uint64
	err := s.DB.Conn.QueryRow(ctx, `SELECT uniqExact(id) FROM sessions`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	err = s.DB.Conn.QueryRow(ctx, `SELECT uniqExact(session_id) FROM session_completions`).Scan(&completed)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed sessions: %w", err)
	}

	stats := &models.CompletionStats{
		Total:     int64(total),
		Completed: int64(completed),
	}
	stats.CompletionRate = utils.CompletionRate(stats.Completed, stats.Total)
	return stats, nil
}

func (s *ClickHouseStore) GetSessionsByDate(ctx context.Context, days int) ([]models.SessionsByDate, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT
			toDate(first_seen) AS date,
			count() AS sessions,
			countIf(completed) AS completed
		FROM (
			SELECT
				id,
				min(created_at) AS first_seen,
				id IN (SELECT session_id FROM session_completions) AS completed
			FROM sessions
			GROUP BY id
		)
		WHERE first_seen >= now() - toIntervalDay(?)
		GROUP BY date
		ORDER BY date DESC
	`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions by date: %w", err)
	}
	defer rows.Close()

	var results []models.SessionsByDate
	for rows.Next() {
		var date time.Time
		var sessions, completed uint64
		if err := rows.Scan(&date, &sessions, &completed); err != nil {
			log.Printf("Error scanning sessions-by-date row: %v", err)
			continue
		}
		results = append(results, models.SessionsByDate{
			Date:      date.Format("2006-01-02"),
			Sessions:  int64(sessions),
			Completed: int64(completed),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during sessions-by-date query: %w", err)
	}
	return results, nil
}

func (s *ClickHouseStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT
			id,
			min(created_at) AS created_at,
			argMin(user_agent, created_at) AS user_agent,
			argMin(ip_address, created_at) AS ip_address,
			id IN (SELECT session_id FROM session_completions) AS completed
		FROM sessions
		GROUP BY id
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var results []models.Session
	for rows.Next() {
		var session models.Session
		var completed uint8
		if err := rows.Scan(&session.ID, &session.CreatedAt, &session.UserAgent, &session.IPAddress, &completed); err != nil {
			log.Printf("Error scanning session row: %v", err)
			continue
		}
		session.Completed = completed != 0
		results = append(results, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during session list query: %w", err)
	}
	return results, nil
}

func (s *ClickHouseStore) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT id, session_id, event_type, step_name, step_number, data, timestamp
		FROM events
		ORDER BY timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var results []models.Event
	for rows.Next() {
		var event models.Event
		var stepNumber *int32
		if err := rows.Scan(&event.ID, &event.SessionID, &event.EventType, &event.StepName, &stepNumber, &event.Data, &event.Timestamp); err != nil {
			log.Printf("Error scanning event row: %v", err)
			continue
		}
		if stepNumber != nil {
			n := int(*stepNumber)
			event.StepNumber = &n
		}
		results = append(results, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event list query: %w", err)
	}
	return results, nil
}

func (s *ClickHouseStore) ListAnswers(ctx context.Context) ([]models.Answer, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT id, session_id, step_name, step_number, question, answer, timestamp
		FROM answers
		ORDER BY timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	var results []models.Answer
	for rows.Next() {
		var answer models.Answer
		var stepNumber int32
		if err := rows.Scan(&answer.ID, &answer.SessionID, &answer.StepName, &stepNumber, &answer.Question, &answer.Answer, &answer.Timestamp); err != nil {
			log.Printf("Error scanning answer row: %v", err)
			continue
		}
		answer.StepNumber = int(stepNumber)
		results = append(results, answer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during answer list query: %w", err)
	}
	return results, nil
}

func (s *ClickHouseStore) ClearAllData(ctx context.Context) error {
	for _, table := range []string{"answers", "events", "session_completions", "sessions"} {
		if err := s.DB.Conn.Exec(ctx, "TRUNCATE TABLE "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("All analytics data cleared from ClickHouse")
	return nil
}

func stepNumber32(n *int) *int32 {
	if n == nil {
		return nil
	}
	v := int32(*n)
	return &v
}
