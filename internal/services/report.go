// Package services contains business logic layers.
// Services are called by handlers and interact with the database.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fixcity/report-server/internal/dupdetect"
	"github.com/fixcity/report-server/internal/lifecycle"
	"github.com/fixcity/report-server/internal/models"
)

// ErrReportNotFound is returned when a report id matches no row.
var ErrReportNotFound = errors.New("report not found")

// errCanonicalConflict aborts a merge transaction when the canonical row's
// version moved under us; the caller rereads and retries.
var errCanonicalConflict = errors.New("canonical version conflict")

const reportColumns = `id, user_id, user_name, category, description, address,
	latitude, longitude, image_url, status, priority, parent_report_id,
	duplicate_count, last_reported_at, assigned_technician_id,
	assigned_officer_id, resolution_notes, resolution_image_url,
	rejection_reason, resolved_at, version, created_at, updated_at`

// ReportService handles report submission, duplicate resolution, and status
// updates. The duplicate engine itself is pure; this service feeds it
// candidates and persists its decisions.
type ReportService struct {
	db       DB
	engine   *dupdetect.Scorer
	notifier *Notifier
	activity *ActivityService
	logger   *zap.SugaredLogger
}

// NewReportService creates a new report service
func NewReportService(db DB, engine *dupdetect.Scorer, notifier *Notifier, activity *ActivityService, logger *zap.SugaredLogger) *ReportService {
	return &ReportService{db: db, engine: engine, notifier: notifier, activity: activity, logger: logger}
}

// Submit validates and files a new report, deciding whether it duplicates
// an existing canonical report. Merge and reopen decisions are persisted
// under an optimistic version check so two citizens reporting the same
// pothole at the same moment cannot lose an increment; if the check keeps
// failing the submission falls back to filing a fresh report rather than
// blocking.
func (s *ReportService) Submit(ctx context.Context, req *models.ReportSubmission) (*models.SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()

	candidates, err := s.fetchCandidates(ctx, req.Category)
	if err != nil {
		// Candidate fetch trouble must not block submission; file as new.
		s.logger.Errorw("Candidate fetch failed, filing as new", "error", err)
		candidates = nil
	}

	input := dupdetect.ReportInput{
		Category:    req.Category,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}

	outcome := s.engine.Evaluate(input, candidates, now)

	switch outcome.Action {
	case dupdetect.ActionMerge:
		result, err := s.persistMerge(ctx, req, outcome, now, false)
		if err == nil {
			return result, nil
		}
		s.logger.Warnw("Merge failed, filing as new", "parent_id", outcome.Match.Candidate.ID, "error", err)
	case dupdetect.ActionReopen:
		result, err := s.persistMerge(ctx, req, outcome, now, true)
		if err == nil {
			return result, nil
		}
		s.logger.Warnw("Reopen failed, filing as new", "parent_id", outcome.Match.Candidate.ID, "error", err)
	}

	report, err := s.insertReport(ctx, s.db, req, nil, now)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}

	s.activity.Log(ctx, report.ID, "SYSTEM", "submission", "Report filed as a new issue")

	return &models.SubmitResult{Report: report, IsDuplicate: false}, nil
}

// fetchCandidates loads the canonical reports in the submission's category.
func (s *ReportService) fetchCandidates(ctx context.Context, category models.Category) ([]dupdetect.Candidate, error) {
	query := `
		SELECT id, category, description, latitude, longitude, status,
			parent_report_id, duplicate_count, last_reported_at, resolved_at
		FROM reports
		WHERE category = $1 AND parent_report_id IS NULL
	`

	rows, err := s.db.Query(ctx, query, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []dupdetect.Candidate
	for rows.Next() {
		var c dupdetect.Candidate
		if err := rows.Scan(&c.ID, &c.Category, &c.Description, &c.Latitude, &c.Longitude,
			&c.Status, &c.ParentReportID, &c.DuplicateCount, &c.LastReportedAt, &c.ResolvedAt); err != nil {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// persistMerge links the new report as a duplicate child of the matched
// canonical report, incrementing its duplicate count and recomputing its
// priority in one conditional update. With reopen set, the canonical report
// is additionally reset to pending through the sanctioned lifecycle path.
// The canonical update and the child insert commit in one transaction, so a
// failed child insert cannot leave an incremented count with no child row.
// The conditional update is retried once against a fresh snapshot before
// giving up.
func (s *ReportService) persistMerge(ctx context.Context, req *models.ReportSubmission, outcome dupdetect.Outcome, now time.Time, reopen bool) (*models.SubmitResult, error) {
	parentID := outcome.Match.Candidate.ID

	for attempt := 0; attempt < 2; attempt++ {
		parent, err := s.Get(ctx, parentID)
		if err != nil {
			return nil, err
		}

		newCount := parent.DuplicateCount + 1
		newPriority := s.engine.EscalatePriority(newCount)
		// The engine never downgrades a manually raised priority.
		if newPriority.Rank() < parent.Priority.Rank() {
			newPriority = parent.Priority
		}

		updated := *parent
		if reopen {
			updated, err = lifecycle.Reopen(updated, now)
			if err != nil {
				return nil, err
			}
		}
		updated.DuplicateCount = newCount
		updated.Priority = newPriority
		updated.LastReportedAt = now

		var child *models.Report
		err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
			ok, err := s.writeCanonical(ctx, tx, &updated, parent.Version)
			if err != nil {
				return err
			}
			if !ok {
				return errCanonicalConflict
			}
			child, err = s.insertReport(ctx, tx, req, &parentID, now)
			if err != nil {
				return fmt.Errorf("insert child report: %w", err)
			}
			return nil
		})
		if errors.Is(err, errCanonicalConflict) {
			// Lost the version race; reread and try once more.
			continue
		}
		if err != nil {
			return nil, err
		}

		message := fmt.Sprintf("This issue was already reported. Your report has been merged with #%s.", shortID(parentID))
		if reopen {
			message = fmt.Sprintf("This issue was recently marked resolved but has been reopened based on your report (#%s).", shortID(parentID))
			s.activity.Log(ctx, parentID, "SYSTEM", "reopen", "Resolved report reopened by a fresh duplicate")
		}
		s.activity.Log(ctx, parentID, "SYSTEM", "merge",
			fmt.Sprintf("Duplicate report %s merged; count now %d, priority %s", child.ID, newCount, newPriority))

		s.logger.Infow("Report merged",
			"child_id", child.ID,
			"parent_id", parentID,
			"duplicate_count", newCount,
			"priority", newPriority,
			"reopened", reopen,
		)

		return &models.SubmitResult{
			Report:           child,
			IsDuplicate:      true,
			DuplicateMessage: message,
			ParentReportID:   &parentID,
			Reopened:         reopen,
		}, nil
	}

	return nil, fmt.Errorf("canonical report %s changed concurrently", parentID)
}

// writeCanonical applies the merge delta to the canonical row, guarded by
// the optimistic version check. Returns false when the version moved.
func (s *ReportService) writeCanonical(ctx context.Context, db DB, r *models.Report, expectedVersion int64) (bool, error) {
	query := `
		UPDATE reports
		SET status = $1, priority = $2, duplicate_count = $3, last_reported_at = $4,
			resolution_notes = $5, resolution_image_url = $6, resolved_at = $7,
			updated_at = $8, version = version + 1
		WHERE id = $9 AND version = $10
	`

	tag, err := db.Exec(ctx, query,
		r.Status, r.Priority, r.DuplicateCount, r.LastReportedAt,
		r.ResolutionNotes, r.ResolutionImageURL, r.ResolvedAt,
		time.Now(), r.ID, expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("update canonical report: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// insertReport stores a new report row. A non-nil parentID files it as a
// duplicate child of that canonical report.
func (s *ReportService) insertReport(ctx context.Context, db DB, req *models.ReportSubmission, parentID *string, now time.Time) (*models.Report, error) {
	report := &models.Report{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		UserName:       req.UserName,
		Category:       req.Category,
		Description:    strings.TrimSpace(req.Description),
		Address:        req.Address,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Status:         models.StatusPending,
		Priority:       models.PriorityLow,
		ParentReportID: parentID,
		LastReportedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.UserName == "" {
		report.UserName = "Anonymous"
	}
	if req.ImageURL != "" {
		report.ImageURL = &req.ImageURL
	}

	query := `
		INSERT INTO reports (id, user_id, user_name, category, description, address,
			latitude, longitude, image_url, status, priority, parent_report_id,
			duplicate_count, last_reported_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, $13, 1, $14, $15)
	`

	_, err := db.Exec(ctx, query,
		report.ID, report.UserID, report.UserName, report.Category, report.Description,
		report.Address, report.Latitude, report.Longitude, report.ImageURL,
		report.Status, report.Priority, report.ParentReportID,
		report.LastReportedAt, report.CreatedAt, report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	report.Version = 1
	return report, nil
}

// Update runs a status-changing update through the lifecycle state machine
// and persists the result. The returned events have already been handed to
// the notifier; they are echoed back so callers can surface them.
func (s *ReportService) Update(ctx context.Context, id string, update *models.ReportUpdate) (*models.Report, []lifecycle.Event, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	next, events, err := lifecycle.Apply(*current, *update, time.Now())
	if err != nil {
		return nil, nil, err
	}

	query := `
		UPDATE reports
		SET status = $1, priority = $2, assigned_technician_id = $3,
			assigned_officer_id = $4, resolution_notes = $5,
			resolution_image_url = $6, rejection_reason = $7, resolved_at = $8,
			updated_at = $9, version = version + 1
		WHERE id = $10
	`

	tag, err := s.db.Exec(ctx, query,
		next.Status, next.Priority, next.AssignedTechnicianID,
		next.AssignedOfficerID, next.ResolutionNotes,
		next.ResolutionImageURL, next.RejectionReason, next.ResolvedAt,
		next.UpdatedAt, next.ID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("update report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil, ErrReportNotFound
	}
	next.Version = current.Version + 1

	if len(events) > 0 {
		s.activity.Log(ctx, next.ID, "SYSTEM", "status_change",
			fmt.Sprintf("Status changed from %s to %s", current.Status, next.Status))
		// Notification failures are logged inside the notifier and never
		// surface into the update result.
		s.notifier.Dispatch(ctx, &next, events)
	}

	return &next, events, nil
}

// Get returns a single report by id.
func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	report, err := scanReport(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Status   models.Status
	Category models.Category
	UserID   string
}

// List returns reports matching the filter, newest first.
func (s *ReportService) List(ctx context.Context, filter ListFilter) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			continue
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

// Count returns the total number of reports
func (s *ReportService) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM reports").Scan(&count)
	return count, err
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var r models.Report
	err := row.Scan(&r.ID, &r.UserID, &r.UserName, &r.Category, &r.Description,
		&r.Address, &r.Latitude, &r.Longitude, &r.ImageURL, &r.Status, &r.Priority,
		&r.ParentReportID, &r.DuplicateCount, &r.LastReportedAt,
		&r.AssignedTechnicianID, &r.AssignedOfficerID, &r.ResolutionNotes,
		&r.ResolutionImageURL, &r.RejectionReason, &r.ResolvedAt,
		&r.Version, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func shortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}
