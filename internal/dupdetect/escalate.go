package dupdetect

import "github.com/fixcity/report-server/internal/models"

// EscalatePriority maps a canonical report's duplicate count to a priority
// tier. The mapping is monotonic non-decreasing in the count and is the
// sole authority for priority once a report has any duplicates: its result
// replaces whatever priority the report had.
//
// With the default boundaries: 0-1 duplicates -> low, 2-4 -> medium,
// 5-7 -> high, 8 or more -> urgent.
func (s *Scorer) EscalatePriority(duplicateCount int) models.Priority {
	if duplicateCount < 0 {
		duplicateCount = 0
	}

	switch {
	case duplicateCount >= s.cfg.TierUrgent:
		return models.PriorityUrgent
	case duplicateCount >= s.cfg.TierHigh:
		return models.PriorityHigh
	case duplicateCount >= s.cfg.TierMedium:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}
