package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"quizpulse/api/models"
)

// Scan helpers shared by the DuckDB and Postgres adapters. Both speak
// database/sql, so once a query has run the row shapes are identical;
// only the SQL dialect differs.

func scanAnswerStats(rows *sql.Rows) ([]models.AnswerStat, error) {
	var results []models.AnswerStat
	for rows.Next() {
		var stat models.AnswerStat
		var question sql.NullString
		if err := rows.Scan(&stat.StepName, &question, &stat.Answer, &stat.Count, &stat.Percentage); err != nil {
			log.Printf("Error scanning answer stats row: %v", err)
			continue
		}
		stat.Question = question.String
		results = append(results, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during answer stats query: %w", err)
	}
	return results, nil
}

func scanSessionsByDate(rows *sql.Rows) ([]models.SessionsByDate, error) {
	var results []models.SessionsByDate
	for rows.Next() {
		var day models.SessionsByDate
		var date time.Time
		if err := rows.Scan(&date, &day.Sessions, &day.Completed); err != nil {
			log.Printf("Error scanning sessions-by-date row: %v", err)
			continue
		}
		// Calendar dates are formatted here so every backend returns the
		// same string shape.
		day.Date = date.Format("2006-01-02")
		results = append(results, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during sessions-by-date query: %w", err)
	}
	return results, nil
}

func scanSessions(rows *sql.Rows) ([]models.Session, error) {
	var results []models.Session
	for rows.Next() {
		var session models.Session
		var userAgent, ipAddress sql.NullString
		if err := rows.Scan(&session.ID, &session.CreatedAt, &userAgent, &ipAddress, &session.Completed); err != nil {
			log.Printf("Error scanning session row: %v", err)
			continue
		}
		session.UserAgent = userAgent.String
		session.IPAddress = ipAddress.String
		results = append(results, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during session list query: %w", err)
	}
	return results, nil
}

func scanEvents(rows *sql.Rows) ([]models.Event, error) {
	var results []models.Event
	for rows.Next() {
		var event models.Event
		var stepName, data sql.NullString
		var stepNumber sql.NullInt64
		if err := rows.Scan(&event.ID, &event.SessionID, &event.EventType, &stepName, &stepNumber, &data, &event.Timestamp); err != nil {
			log.Printf("Error scanning event row: %v", err)
			continue
		}
		if stepName.Valid {
			event.StepName = &stepName.String
		}
		if stepNumber.Valid {
			n := int(stepNumber.Int64)
			event.StepNumber = &n
		}
		if data.Valid {
			event.Data = &data.String
		}
		results = append(results, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event list query: %w", err)
	}
	return results, nil
}

func scanAnswers(rows *sql.Rows) ([]models.Answer, error) {
	var results []models.Answer
	for rows.Next() {
		var answer models.Answer
		var question sql.NullString
		if err := rows.Scan(&answer.ID, &answer.SessionID, &answer.StepName, &answer.StepNumber, &question, &answer.Answer, &answer.Timestamp); err != nil {
			log.Printf("Error scanning answer row: %v", err)
			continue
		}
		answer.Question = question.String
		results = append(results, answer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during answer list query: %w", err)
	}
	return results, nil
}
