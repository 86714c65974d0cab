package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixcity/report-server/internal/models"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func strptr(s string) *string { return &s }

func statusptr(s models.Status) *models.Status { return &s }

func pendingReport() models.Report {
	return models.Report{
		ID:       "RPT_001",
		Category: models.CategoryPothole,
		Status:   models.StatusPending,
		Priority: models.PriorityLow,
	}
}

func TestApplyAllowedTransitions(t *testing.T) {
	t.Run("pending to in_progress with technician", func(t *testing.T) {
		r := pendingReport()
		next, events, err := Apply(r, models.ReportUpdate{
			Status:               statusptr(models.StatusInProgress),
			AssignedTechnicianID: strptr("TECH_9"),
			AssignedOfficerID:    strptr("OFF_2"),
		}, now)

		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, next.Status)
		assert.Equal(t, "TECH_9", *next.AssignedTechnicianID)
		assert.Equal(t, []Event{EventAssigned, EventTechAssigned}, events)
	})

	t.Run("pending to rejected with reason", func(t *testing.T) {
		next, events, err := Apply(pendingReport(), models.ReportUpdate{
			Status:          statusptr(models.StatusRejected),
			RejectionReason: strptr("duplicate of a private-property issue"),
		}, now)

		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, next.Status)
		require.NotNil(t, next.ResolvedAt)
		assert.Equal(t, now, *next.ResolvedAt)
		assert.Equal(t, []Event{EventRejected}, events)
	})

	t.Run("in_progress to resolved with notes", func(t *testing.T) {
		r := pendingReport()
		r.Status = models.StatusInProgress
		r.AssignedTechnicianID = strptr("TECH_9")

		next, events, err := Apply(r, models.ReportUpdate{
			Status:          statusptr(models.StatusResolved),
			ResolutionNotes: strptr("filled and compacted, surface relaid"),
		}, now)

		require.NoError(t, err)
		assert.Equal(t, models.StatusResolved, next.Status)
		require.NotNil(t, next.ResolvedAt)
		assert.Equal(t, []Event{EventResolved}, events)
	})

	t.Run("in_progress to rejected", func(t *testing.T) {
		r := pendingReport()
		r.Status = models.StatusInProgress
		r.AssignedTechnicianID = strptr("TECH_9")

		next, _, err := Apply(r, models.ReportUpdate{
			Status:          statusptr(models.StatusRejected),
			RejectionReason: strptr("site inspection found no issue"),
		}, now)

		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, next.Status)
	})
}

func TestApplyInvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from models.Status
		to   models.Status
	}{
		{"pending to resolved skips work", models.StatusPending, models.StatusResolved},
		{"in_progress back to pending", models.StatusInProgress, models.StatusPending},
		{"resolved to in_progress", models.StatusResolved, models.StatusInProgress},
		{"resolved to rejected", models.StatusResolved, models.StatusRejected},
		{"rejected to pending", models.StatusRejected, models.StatusPending},
		{"rejected to in_progress", models.StatusRejected, models.StatusInProgress},
		{"rejected to resolved", models.StatusRejected, models.StatusResolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := pendingReport()
			r.Status = tt.from
			r.AssignedTechnicianID = strptr("TECH_9")

			next, events, err := Apply(r, models.ReportUpdate{
				Status:          statusptr(tt.to),
				ResolutionNotes: strptr("notes"),
				RejectionReason: strptr("reason"),
			}, now)

			var terr *TransitionError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, ReasonInvalidTransition, terr.Reason)
			assert.Equal(t, tt.from, terr.From)
			assert.Equal(t, tt.to, terr.To)
			assert.Equal(t, tt.from, next.Status, "snapshot must be unchanged on refusal")
			assert.Empty(t, events)
		})
	}
}

func TestApplyGuards(t *testing.T) {
	t.Run("in_progress without technician", func(t *testing.T) {
		next, _, err := Apply(pendingReport(), models.ReportUpdate{
			Status: statusptr(models.StatusInProgress),
		}, now)

		var terr *TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, ReasonMissingAssignment, terr.Reason)
		assert.Equal(t, models.StatusPending, next.Status)
	})

	t.Run("in_progress with previously assigned technician passes", func(t *testing.T) {
		r := pendingReport()
		r.AssignedTechnicianID = strptr("TECH_9")

		next, events, err := Apply(r, models.ReportUpdate{
			Status: statusptr(models.StatusInProgress),
		}, now)

		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, next.Status)
		// The technician was assigned earlier, not by this update.
		assert.Equal(t, []Event{EventAssigned}, events)
	})

	t.Run("resolved without notes", func(t *testing.T) {
		r := pendingReport()
		r.Status = models.StatusInProgress
		r.AssignedTechnicianID = strptr("TECH_9")

		_, _, err := Apply(r, models.ReportUpdate{
			Status: statusptr(models.StatusResolved),
		}, now)

		var terr *TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, ReasonMissingResolutionNotes, terr.Reason)
	})

	t.Run("resolved with blank notes", func(t *testing.T) {
		r := pendingReport()
		r.Status = models.StatusInProgress
		r.AssignedTechnicianID = strptr("TECH_9")

		_, _, err := Apply(r, models.ReportUpdate{
			Status:          statusptr(models.StatusResolved),
			ResolutionNotes: strptr("   "),
		}, now)

		var terr *TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, ReasonMissingResolutionNotes, terr.Reason)
	})

	t.Run("rejected without reason", func(t *testing.T) {
		_, _, err := Apply(pendingReport(), models.ReportUpdate{
			Status: statusptr(models.StatusRejected),
		}, now)

		var terr *TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, ReasonMissingRejectionReason, terr.Reason)
	})

	t.Run("rejection reason must come from the update itself", func(t *testing.T) {
		r := pendingReport()
		r.RejectionReason = strptr("left over from somewhere")

		_, _, err := Apply(r, models.ReportUpdate{
			Status: statusptr(models.StatusRejected),
		}, now)

		var terr *TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, ReasonMissingRejectionReason, terr.Reason)
	})
}

func TestApplyTechnicianAssignmentDefaultsToInProgress(t *testing.T) {
	next, events, err := Apply(pendingReport(), models.ReportUpdate{
		AssignedTechnicianID: strptr("TECH_9"),
	}, now)

	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, next.Status)
	assert.Equal(t, []Event{EventAssigned, EventTechAssigned}, events)
}

func TestApplyFieldOnlyUpdate(t *testing.T) {
	next, events, err := Apply(pendingReport(), models.ReportUpdate{
		AssignedOfficerID: strptr("OFF_2"),
	}, now)

	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, next.Status)
	assert.Empty(t, events)
	assert.Equal(t, "OFF_2", *next.AssignedOfficerID)
}

func TestApplyUnknownStatus(t *testing.T) {
	bogus := models.Status("vanished")
	_, _, err := Apply(pendingReport(), models.ReportUpdate{Status: &bogus}, now)

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestReopen(t *testing.T) {
	t.Run("resolved reopens to pending and clears resolution", func(t *testing.T) {
		r := pendingReport()
		r.Status = models.StatusResolved
		r.ResolutionNotes = strptr("patched")
		resolvedAt := now.Add(-48 * time.Hour)
		r.ResolvedAt = &resolvedAt

		next, err := Reopen(r, now)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, next.Status)
		assert.Nil(t, next.ResolutionNotes)
		assert.Nil(t, next.ResolvedAt)
	})

	t.Run("only resolved reports can reopen", func(t *testing.T) {
		for _, s := range []models.Status{
			models.StatusPending, models.StatusInProgress, models.StatusRejected,
		} {
			r := pendingReport()
			r.Status = s
			_, err := Reopen(r, now)

			var terr *TransitionError
			require.ErrorAs(t, err, &terr, "status %s", s)
			assert.Equal(t, ReasonInvalidTransition, terr.Reason)
		}
	})
}
