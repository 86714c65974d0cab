package dupdetect

import (
	"time"

	"github.com/fixcity/report-server/internal/models"
)

// Outcome is the engine's full decision for one submission: what to do,
// which canonical report is involved, and the canonical report's new
// duplicate count and priority if the action links the reports. The caller
// persists the outcome; merging must happen under an atomic conditional
// update so concurrent submissions cannot lose an increment.
type Outcome struct {
	Action Action
	Match  *Match

	// NewDuplicateCount and NewPriority apply to the canonical report on
	// merge and reopen actions.
	NewDuplicateCount int
	NewPriority       models.Priority
}

// Evaluate runs the complete duplicate decision for a new report against
// the same-category canonical candidates handed in by the caller: score,
// pick the best match, resolve the merge action, and recompute the
// canonical report's escalated priority. It never fails — when no candidate
// qualifies the outcome is ActionNew.
func (s *Scorer) Evaluate(input ReportInput, candidates []Candidate, now time.Time) Outcome {
	best := s.Best(input, candidates)
	action := s.Resolve(best, now)

	out := Outcome{Action: action, Match: best}
	if action == ActionMerge || action == ActionReopen {
		out.NewDuplicateCount = best.Candidate.DuplicateCount + 1
		out.NewPriority = s.EscalatePriority(out.NewDuplicateCount)
	}
	return out
}
