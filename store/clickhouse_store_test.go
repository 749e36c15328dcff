package store

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"quizpulse/api/database"
	"quizpulse/api/models"
)

// ClickHouse contract tests run against a real server and are skipped unless
// TEST_CLICKHOUSE_HOST is set. The append-only adapter must still present the
// same contract the relational backends do: first-write-wins metadata,
// no-op completion for absent ids, and identical aggregate shapes.
//
//	TEST_CLICKHOUSE_HOST=localhost go test ./store/
func newClickHouseTestStore(t *testing.T) *ClickHouseStore {
	t.Helper()
	host := os.Getenv("TEST_CLICKHOUSE_HOST")
	if host == "" {
		t.Skip("TEST_CLICKHOUSE_HOST not set; skipping clickhouse contract tests")
	}

	port := 9000
	if v := os.Getenv("TEST_CLICKHOUSE_NATIVE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			port = n
		}
	}
	dbName := os.Getenv("TEST_CLICKHOUSE_DB_NAME")
	if dbName == "" {
		dbName = "default"
	}
	username := os.Getenv("TEST_CLICKHOUSE_USERNAME")
	if username == "" {
		username = "default"
	}

	client, err := database.NewClickHouseDB(database.ClickHouseOptions{
		Host:     host,
		Port:     port,
		Database: dbName,
		Username: username,
		Password: os.Getenv("TEST_CLICKHOUSE_PASSWORD"),
	})
	if err != nil {
		t.Fatalf("failed to connect to clickhouse: %v", err)
	}
	s := NewClickHouseStore(client)

	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	if err := s.ClearAllData(ctx); err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
	t.Cleanup(func() {
		s.ClearAllData(context.Background())
		s.Close()
	})
	return s
}

func TestClickHouseGetSessionAbsent(t *testing.T) {
	s := newClickHouseTestStore(t)

	session, err := s.GetSession(context.Background(), "sess_missing")
	if err != nil {
		t.Fatalf("absence must not be an error, got %v", err)
	}
	if session != nil {
		t.Errorf("expected nil session, got %+v", session)
	}
}

func TestClickHouseDuplicateCreateFirstWriteWins(t *testing.T) {
	s := newClickHouseTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, "sess_dup", "agent-one", "1.1.1.1"); err != nil {
		t.Fatalf("first CreateSession failed: %v", err)
	}
	// created_at is a DateTime with second resolution; space the writes so
	// the first row is strictly older and argMin is unambiguous.
	time.Sleep(1100 * time.Millisecond)
	if err := s.CreateSession(ctx, "sess_dup", "agent-two", "2.2.2.2"); err != nil {
		t.Fatalf("duplicate CreateSession must be tolerated, got %v", err)
	}

	session, err := s.GetSession(ctx, "sess_dup")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.UserAgent != "agent-one" {
		t.Errorf("user agent = %q, want the first write's value", session.UserAgent)
	}

	total, err := s.GetTotalSessions(ctx)
	if err != nil {
		t.Fatalf("GetTotalSessions failed: %v", err)
	}
	if total != 1 {
		t.Errorf("total sessions = %d, want the duplicate deduplicated to 1", total)
	}
}

func TestClickHouseMarkSessionCompleted(t *testing.T) {
	s := newClickHouseTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, "sess_c", "", ""); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := s.MarkSessionCompleted(ctx, "sess_c"); err != nil {
		t.Fatalf("MarkSessionCompleted failed: %v", err)
	}
	// Completing an absent id appends nothing.
	if err := s.MarkSessionCompleted(ctx, "sess_absent"); err != nil {
		t.Fatalf("MarkSessionCompleted on absent id failed: %v", err)
	}

	session, err := s.GetSession(ctx, "sess_c")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !session.Completed {
		t.Error("session should be completed")
	}

	stats, err := s.GetCompletionRate(ctx)
	if err != nil {
		t.Fatalf("GetCompletionRate failed: %v", err)
	}
	if stats.Total != 1 || stats.Completed != 1 {
		t.Errorf("counts = %d/%d, the absent-id completion must not count", stats.Completed, stats.Total)
	}
}

func TestClickHouseFunnelStatsScenario(t *testing.T) {
	s := newClickHouseTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"s1", "s2", "s3"} {
		if err := s.CreateSession(ctx, id, "", ""); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	trackPageView(t, s, "s1", 0, "INTRO")
	trackPageView(t, s, "s2", 0, "INTRO")
	trackPageView(t, s, "s3", 0, "INTRO")
	trackPageView(t, s, "s1", 1, "GENDER")
	trackPageView(t, s, "s2", 1, "GENDER")
	trackPageView(t, s, "s1", 2, "AGE")
	trackPageView(t, s, "s1", 0, "INTRO")

	steps, err := s.GetFunnelStats(ctx)
	if err != nil {
		t.Fatalf("GetFunnelStats failed: %v", err)
	}

	want := []models.FunnelStep{
		{StepNumber: 0, StepName: "INTRO", Visitors: 3},
		{StepNumber: 1, StepName: "GENDER", Visitors: 2},
		{StepNumber: 2, StepName: "AGE", Visitors: 1},
	}
	if len(steps) != len(want) {
		t.Fatalf("got %d steps, want %d: %+v", len(steps), len(want), steps)
	}
	for i, step := range steps {
		if step != want[i] {
			t.Errorf("step %d = %+v, want %+v", i, step, want[i])
		}
	}
}

func TestClickHouseAnswerStatsPercentages(t *testing.T) {
	s := newClickHouseTestStore(t)
	ctx := context.Background()

	save := func(sessionID, answer string) {
		t.Helper()
		if err := s.SaveAnswer(ctx, &models.Answer{
			SessionID:  sessionID,
			StepName:   "CONCERN",
			StepNumber: 3,
			Question:   "What is your biggest concern?",
			Answer:     answer,
		}); err != nil {
			t.Fatalf("SaveAnswer failed: %v", err)
		}
	}
	save("s1", "A")
	save("s2", "A")
	save("s3", "A")
	save("s4", "B")

	stats, err := s.GetAnswerStats(ctx)
	if err != nil {
		t.Fatalf("GetAnswerStats failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(stats), stats)
	}
	if stats[0].Answer != "A" || stats[0].Count != 3 || stats[0].Percentage != 75 {
		t.Errorf("row 0 = %+v, want A/3/75", stats[0])
	}
	if stats[1].Answer != "B" || stats[1].Count != 1 || stats[1].Percentage != 25 {
		t.Errorf("row 1 = %+v, want B/1/25", stats[1])
	}
}

func TestClickHouseSessionsByDateHonorsWindow(t *testing.T) {
	s := newClickHouseTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, "recent", "", ""); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := s.MarkSessionCompleted(ctx, "recent"); err != nil {
		t.Fatalf("MarkSessionCompleted failed: %v", err)
	}
	if err := s.DB.Conn.Exec(ctx, `
		INSERT INTO sessions (id, created_at) VALUES ('ancient', now() - toIntervalDay(30))
	`); err != nil {
		t.Fatalf("failed to insert backdated session: %v", err)
	}

	byDate, err := s.GetSessionsByDate(ctx, 7)
	if err != nil {
		t.Fatalf("GetSessionsByDate failed: %v", err)
	}
	if len(byDate) != 1 {
		t.Fatalf("got %d days, want 1: %+v", len(byDate), byDate)
	}
	if byDate[0].Sessions != 1 || byDate[0].Completed != 1 {
		t.Errorf("day row = %+v, want 1 session / 1 completed", byDate[0])
	}

	byDate, err = s.GetSessionsByDate(ctx, 60)
	if err != nil {
		t.Fatalf("GetSessionsByDate failed: %v", err)
	}
	if len(byDate) != 2 {
		t.Fatalf("got %d days with a 60-day window, want 2: %+v", len(byDate), byDate)
	}
	if byDate[0].Date < byDate[1].Date {
		t.Errorf("dates not descending: %q then %q", byDate[0].Date, byDate[1].Date)
	}
}

func TestClickHouseListAndClear(t *testing.T) {
	s := newClickHouseTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, "s1", "agent", "1.2.3.4"); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	payload := `{"buttonText":"Continue"}`
	step := 1
	stepName := "GENDER"
	if err := s.TrackEvent(ctx, &models.Event{SessionID: "s1", EventType: models.EventButtonClick, StepName: &stepName, StepNumber: &step, Data: &payload}); err != nil {
		t.Fatalf("TrackEvent failed: %v", err)
	}
	if err := s.TrackEvent(ctx, &models.Event{SessionID: "s1", EventType: models.EventStepComplete}); err != nil {
		t.Fatalf("TrackEvent failed: %v", err)
	}

	events, err := s.ListEvents(ctx)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	// Timestamps may share a second; store-assigned ids break the tie.
	if events[0].ID <= events[1].ID {
		t.Errorf("events not newest-first: ids %d then %d", events[0].ID, events[1].ID)
	}
	if events[1].Data == nil || *events[1].Data != payload {
		t.Errorf("payload not round-tripped: %+v", events[1].Data)
	}
	if events[0].StepName != nil || events[0].StepNumber != nil {
		t.Errorf("optional fields should be nil when absent: %+v", events[0])
	}

	if err := s.ClearAllData(ctx); err != nil {
		t.Fatalf("ClearAllData failed: %v", err)
	}
	total, err := s.GetTotalSessions(ctx)
	if err != nil {
		t.Fatalf("GetTotalSessions failed: %v", err)
	}
	if total != 0 {
		t.Errorf("total sessions after clear = %d, want 0", total)
	}
}
