package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubmission() ReportSubmission {
	return ReportSubmission{
		UserID:      "123456789012",
		UserName:    "Asha",
		Category:    CategoryPothole,
		Description: "Large pothole near the bus stop",
		Address:     "MG Road, near bus stop 12",
		Latitude:    12.9716,
		Longitude:   77.5946,
	}
}

func TestSubmissionValidateAccepts(t *testing.T) {
	s := validSubmission()
	require.NoError(t, s.Validate())
}

func TestSubmissionValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ReportSubmission)
		field  string
	}{
		{"missing user", func(s *ReportSubmission) { s.UserID = "" }, "user_id"},
		{"unknown category", func(s *ReportSubmission) { s.Category = "plague" }, "category"},
		{"short description", func(s *ReportSubmission) { s.Description = "broken" }, "description"},
		{"whitespace-padded short description", func(s *ReportSubmission) { s.Description = "   broken    " }, "description"},
		{"overlong description", func(s *ReportSubmission) { s.Description = strings.Repeat("x", 1001) }, "description"},
		{"markup in description", func(s *ReportSubmission) { s.Description = "pothole <script> near stop" }, "description"},
		{"missing address", func(s *ReportSubmission) { s.Address = "" }, "location"},
		{"overlong address", func(s *ReportSubmission) { s.Address = strings.Repeat("x", 201) }, "location"},
		{"latitude too low", func(s *ReportSubmission) { s.Latitude = -90.5 }, "latitude"},
		{"latitude too high", func(s *ReportSubmission) { s.Latitude = 91 }, "latitude"},
		{"longitude too low", func(s *ReportSubmission) { s.Longitude = -180.5 }, "longitude"},
		{"longitude too high", func(s *ReportSubmission) { s.Longitude = 181 }, "longitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSubmission()
			tt.mutate(&s)

			err := s.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSubmissionValidateBoundaryValues(t *testing.T) {
	s := validSubmission()
	s.Latitude = 90
	s.Longitude = -180
	assert.NoError(t, s.Validate())

	s = validSubmission()
	s.Description = strings.Repeat("x", 1000)
	assert.NoError(t, s.Validate())

	s = validSubmission()
	s.Description = "ten  chars"
	assert.NoError(t, s.Validate())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInProgress.Terminal())
	assert.True(t, StatusResolved.Terminal())
	assert.True(t, StatusRejected.Terminal())
}

func TestPriorityRankOrdering(t *testing.T) {
	assert.Less(t, PriorityLow.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityUrgent.Rank())
}

func TestEnumValid(t *testing.T) {
	for _, c := range Categories() {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, Category("plague").Valid())
	assert.False(t, Status("archived").Valid())
	assert.False(t, Priority("critical").Valid())
}
