package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/fixcity/report-server/internal/models"
)

// ActivityService keeps the audit trail of report events: submissions,
// merges, reopens, and status changes. Logging is best-effort — an audit
// write failure never fails the operation it describes.
type ActivityService struct {
	db     DB
	logger *zap.SugaredLogger
}

// NewActivityService creates a new activity service
func NewActivityService(db DB, logger *zap.SugaredLogger) *ActivityService {
	return &ActivityService{db: db, logger: logger}
}

// Log records a report event.
func (s *ActivityService) Log(ctx context.Context, reportID, actor, eventType, description string) {
	query := `
		INSERT INTO report_activity (report_id, actor, event_type, description)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.db.Exec(ctx, query, reportID, actor, eventType, description); err != nil {
		s.logger.Errorw("Failed to record activity",
			"report_id", reportID,
			"event_type", eventType,
			"error", err,
		)
		return
	}

	s.logger.Infow("Activity logged",
		"report_id", reportID,
		"actor", actor,
		"type", eventType,
	)
}

// ByReport returns the activity trail for one report, newest first.
func (s *ActivityService) ByReport(ctx context.Context, reportID string, limit int) ([]models.ActivityLog, error) {
	query := `
		SELECT id, report_id, actor, event_type, description, created_at
		FROM report_activity
		WHERE report_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, reportID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var log models.ActivityLog
		if err := rows.Scan(&log.ID, &log.ReportID, &log.Actor,
			&log.EventType, &log.Description, &log.CreatedAt); err != nil {
			continue
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

// Recent returns recent activity across all reports.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	query := `
		SELECT id, report_id, actor, event_type, description, created_at
		FROM report_activity
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var log models.ActivityLog
		if err := rows.Scan(&log.ID, &log.ReportID, &log.Actor,
			&log.EventType, &log.Description, &log.CreatedAt); err != nil {
			continue
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}
