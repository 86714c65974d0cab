package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fixcity/report-server/internal/dupdetect"
	"github.com/fixcity/report-server/internal/models"
)

// fakeTx records the statements a merge runs inside its transaction and
// lets a test fail the child insert or the version check.
type fakeTx struct {
	pgx.Tx

	execSQL    []string
	failInsert bool
	updateTags []string // consumed per canonical UPDATE, default "UPDATE 1"
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execSQL = append(t.execSQL, sql)
	if strings.Contains(sql, "INSERT INTO reports") {
		if t.failInsert {
			return pgconn.CommandTag{}, errors.New("disk full")
		}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	tag := "UPDATE 1"
	if len(t.updateTags) > 0 {
		tag = t.updateTags[0]
		t.updateTags = t.updateTags[1:]
	}
	return pgconn.NewCommandTag(tag), nil
}

func (t *fakeTx) Commit(ctx context.Context) error { t.committed = true; return nil }

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

// fakeDB serves the canonical parent row and hands out the fake
// transaction; direct Execs (activity log, plain inserts) succeed.
type fakeDB struct {
	parent  models.Report
	tx      *fakeTx
	execSQL []string
	begins  int
}

func (d *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.execSQL = append(d.execSQL, sql)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (d *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (d *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &fakeRow{report: d.parent}
}

func (d *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	d.begins++
	return d.tx, nil
}

// fakeRow scans the stored report in reportColumns order.
type fakeRow struct {
	report models.Report
}

func (r *fakeRow) Scan(dest ...any) error {
	v := r.report
	*dest[0].(*string) = v.ID
	*dest[1].(*string) = v.UserID
	*dest[2].(*string) = v.UserName
	*dest[3].(*models.Category) = v.Category
	*dest[4].(*string) = v.Description
	*dest[5].(*string) = v.Address
	*dest[6].(*float64) = v.Latitude
	*dest[7].(*float64) = v.Longitude
	*dest[8].(**string) = v.ImageURL
	*dest[9].(*models.Status) = v.Status
	*dest[10].(*models.Priority) = v.Priority
	*dest[11].(**string) = v.ParentReportID
	*dest[12].(*int) = v.DuplicateCount
	*dest[13].(*time.Time) = v.LastReportedAt
	*dest[14].(**string) = v.AssignedTechnicianID
	*dest[15].(**string) = v.AssignedOfficerID
	*dest[16].(**string) = v.ResolutionNotes
	*dest[17].(**string) = v.ResolutionImageURL
	*dest[18].(**string) = v.RejectionReason
	*dest[19].(**time.Time) = v.ResolvedAt
	*dest[20].(*int64) = v.Version
	*dest[21].(*time.Time) = v.CreatedAt
	*dest[22].(*time.Time) = v.UpdatedAt
	return nil
}

func canonicalParent() models.Report {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return models.Report{
		ID:             "RPT_PARENT",
		UserID:         "111122223333",
		UserName:       "Ravi",
		Category:       models.CategoryPothole,
		Description:    "pothole damaging cars",
		Address:        "MG Road",
		Latitude:       12.9717,
		Longitude:      77.5947,
		Status:         models.StatusPending,
		Priority:       models.PriorityLow,
		DuplicateCount: 1,
		LastReportedAt: now,
		Version:        3,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func newMergeService(db DB) *ReportService {
	logger := zap.NewNop().Sugar()
	return NewReportService(db, dupdetect.NewScorer(dupdetect.DefaultConfig()),
		NewNotifier(logger), NewActivityService(db, logger), logger)
}

func mergeFixture() (*models.ReportSubmission, dupdetect.Outcome) {
	req := &models.ReportSubmission{
		UserID:      "444455556666",
		Category:    models.CategoryPothole,
		Description: "large pothole near bus stop",
		Address:     "MG Road, near bus stop 12",
		Latitude:    12.9716,
		Longitude:   77.5946,
	}
	outcome := dupdetect.Outcome{
		Action: dupdetect.ActionMerge,
		Match:  &dupdetect.Match{Candidate: dupdetect.Candidate{ID: "RPT_PARENT"}},
	}
	return req, outcome
}

func countContaining(stmts []string, substr string) int {
	n := 0
	for _, s := range stmts {
		if strings.Contains(s, substr) {
			n++
		}
	}
	return n
}

func TestPersistMergeCommitsCanonicalAndChildTogether(t *testing.T) {
	tx := &fakeTx{}
	db := &fakeDB{parent: canonicalParent(), tx: tx}
	s := newMergeService(db)
	req, outcome := mergeFixture()

	result, err := s.persistMerge(context.Background(), req, outcome, time.Now(), false)
	require.NoError(t, err)

	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	require.Len(t, tx.execSQL, 2, "canonical update and child insert share one transaction")
	assert.Contains(t, tx.execSQL[0], "UPDATE reports")
	assert.Contains(t, tx.execSQL[1], "INSERT INTO reports")
	assert.Zero(t, countContaining(db.execSQL, "UPDATE reports"),
		"the canonical update must not run outside the transaction")

	assert.True(t, result.IsDuplicate)
	require.NotNil(t, result.ParentReportID)
	assert.Equal(t, "RPT_PARENT", *result.ParentReportID)
	require.NotNil(t, result.Report.ParentReportID)
	assert.Equal(t, "RPT_PARENT", *result.Report.ParentReportID)
}

func TestPersistMergeRollsBackWhenChildInsertFails(t *testing.T) {
	tx := &fakeTx{failInsert: true}
	db := &fakeDB{parent: canonicalParent(), tx: tx}
	s := newMergeService(db)
	req, outcome := mergeFixture()

	_, err := s.persistMerge(context.Background(), req, outcome, time.Now(), false)
	require.Error(t, err)

	assert.True(t, tx.rolledBack, "a failed child insert must undo the canonical increment")
	assert.False(t, tx.committed)
	assert.Zero(t, countContaining(db.execSQL, "report_activity"),
		"no merge activity is logged for a rolled-back merge")
}

func TestPersistMergeGivesUpAfterRepeatedVersionConflicts(t *testing.T) {
	tx := &fakeTx{updateTags: []string{"UPDATE 0", "UPDATE 0"}}
	db := &fakeDB{parent: canonicalParent(), tx: tx}
	s := newMergeService(db)
	req, outcome := mergeFixture()

	_, err := s.persistMerge(context.Background(), req, outcome, time.Now(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "changed concurrently")

	assert.Equal(t, 2, db.begins, "one retry against a fresh snapshot, then give up")
	assert.False(t, tx.committed)
	assert.Zero(t, countContaining(tx.execSQL, "INSERT INTO reports"),
		"no child row is written while the version check keeps failing")
}
