package dupdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fixcity/report-server/internal/models"
)

func TestEscalatePriorityTiers(t *testing.T) {
	s := NewScorer(DefaultConfig())

	tests := []struct {
		count int
		want  models.Priority
	}{
		{0, models.PriorityLow},
		{1, models.PriorityLow},
		{2, models.PriorityMedium},
		{4, models.PriorityMedium},
		{5, models.PriorityHigh},
		{7, models.PriorityHigh},
		{8, models.PriorityUrgent},
		{50, models.PriorityUrgent},
		{-3, models.PriorityLow}, // nonsense counts clamp to zero
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.EscalatePriority(tt.count),
			"duplicate count %d", tt.count)
	}
}

func TestEscalatePriorityMonotonic(t *testing.T) {
	s := NewScorer(DefaultConfig())

	prev := s.EscalatePriority(0)
	for n := 1; n <= 100; n++ {
		cur := s.EscalatePriority(n)
		assert.GreaterOrEqual(t, cur.Rank(), prev.Rank(),
			"escalate(%d) regressed below escalate(%d)", n, n-1)
		prev = cur
	}
}

// A canonical report accumulating merges must climb low -> medium -> high
// without ever regressing.
func TestEscalatePrioritySequence(t *testing.T) {
	s := NewScorer(DefaultConfig())

	var seen []models.Priority
	for count := 1; count <= 5; count++ {
		seen = append(seen, s.EscalatePriority(count))
	}

	assert.Equal(t, []models.Priority{
		models.PriorityLow,
		models.PriorityMedium,
		models.PriorityMedium,
		models.PriorityMedium,
		models.PriorityHigh,
	}, seen)
}
