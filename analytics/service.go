package analytics

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"quizpulse/api/models"
	"quizpulse/api/store"
)

// Overview is the dashboard's headline block.
type Overview struct {
	TotalSessions   int64                   `json:"total_sessions"`
	CompletionStats *models.CompletionStats `json:"completion_stats"`
	SessionsByDate  []models.SessionsByDate `json:"sessions_by_date"`
}

// Service answers dashboard queries over an injected storage client.
type Service struct {
	store store.AnalyticsStore
}

func NewService(s store.AnalyticsStore) *Service {
	return &Service{store: s}
}

func (s *Service) Funnel(ctx context.Context) ([]FunnelStepMetrics, error) {
	steps, err := s.store.GetFunnelStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load funnel stats: %w", err)
	}
	return BuildFunnel(steps), nil
}

func (s *Service) Answers(ctx context.Context) (map[string][]models.AnswerStat, error) {
	stats, err := s.store.GetAnswerStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load answer stats: %w", err)
	}
	return GroupAnswersByStep(stats), nil
}

// Overview fetches the three overview queries concurrently. Reads are not
// snapshot-consistent across the three; a concurrent write may be visible in
// one count and not another, which the dashboard tolerates.
func (s *Service) Overview(ctx context.Context, days int) (*Overview, error) {
	overview := &Overview{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.store.GetTotalSessions(ctx)
		if err != nil {
			return fmt.Errorf("failed to load total sessions: %w", err)
		}
		overview.TotalSessions = total
		return nil
	})
	g.Go(func() error {
		stats, err := s.store.GetCompletionRate(ctx)
		if err != nil {
			return fmt.Errorf("failed to load completion rate: %w", err)
		}
		overview.CompletionStats = stats
		return nil
	})
	g.Go(func() error {
		byDate, err := s.store.GetSessionsByDate(ctx, days)
		if err != nil {
			return fmt.Errorf("failed to load sessions by date: %w", err)
		}
		overview.SessionsByDate = byDate
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overview, nil
}
