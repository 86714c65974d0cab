package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/fixcity/report-server/internal/models"
)

// TrendPoint is one bucket of the submission trend series.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CategoryCount pairs a category with its report count.
type CategoryCount struct {
	Category models.Category `json:"category"`
	Count    int             `json:"count"`
}

// PlatformStats backs the landing and officer dashboards.
type PlatformStats struct {
	TotalReports   int64 `json:"total_reports"`
	FixedToday     int64 `json:"fixed_today"`
	ActiveRepairs  int64 `json:"active_repairs"`
	PendingReports int64 `json:"pending_reports"`
	Reporters      int64 `json:"reporters"`
}

// AnalyticsService aggregates report data for dashboards. Only canonical
// reports and their duplicate counts feed the numbers citizens see.
type AnalyticsService struct {
	db     DB
	logger *zap.SugaredLogger
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(db DB, logger *zap.SugaredLogger) *AnalyticsService {
	return &AnalyticsService{db: db, logger: logger}
}

// Stats returns the headline platform numbers.
func (s *AnalyticsService) Stats(ctx context.Context) (*PlatformStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'resolved' AND resolved_at >= DATE_TRUNC('day', NOW())),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(DISTINCT user_id)
		FROM reports
	`

	var stats PlatformStats
	err := s.db.QueryRow(ctx, query).Scan(
		&stats.TotalReports,
		&stats.FixedToday,
		&stats.ActiveRepairs,
		&stats.PendingReports,
		&stats.Reporters,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Trends returns daily submission counts over the last N days.
func (s *AnalyticsService) Trends(ctx context.Context, days int) ([]TrendPoint, error) {
	query := `
		SELECT DATE_TRUNC('day', created_at)::DATE::TEXT AS date, COUNT(*) AS count
		FROM reports
		WHERE created_at > NOW() - INTERVAL '1 day' * $1
		GROUP BY DATE_TRUNC('day', created_at)
		ORDER BY date DESC
	`

	rows, err := s.db.Query(ctx, query, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []TrendPoint
	for rows.Next() {
		var t TrendPoint
		if err := rows.Scan(&t.Date, &t.Count); err != nil {
			continue
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}

// CategoryDistribution returns canonical report counts per category,
// weighting each canonical report by the duplicates merged into it.
func (s *AnalyticsService) CategoryDistribution(ctx context.Context) ([]CategoryCount, error) {
	query := `
		SELECT category, SUM(1 + duplicate_count) AS count
		FROM reports
		WHERE parent_report_id IS NULL
		GROUP BY category
		ORDER BY count DESC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			continue
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}
