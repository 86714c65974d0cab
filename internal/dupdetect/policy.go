package dupdetect

import (
	"time"

	"github.com/fixcity/report-server/internal/models"
)

// Action is the merge decision for a new report against its best candidate.
type Action string

const (
	// ActionNew files the report as an independent canonical report.
	ActionNew Action = "new"
	// ActionMerge links the report as a duplicate child of the candidate.
	ActionMerge Action = "merge"
	// ActionReopen merges the report and additionally reopens the resolved
	// candidate, resetting it to pending.
	ActionReopen Action = "reopen"
)

// Resolve decides how a new report relates to its best-match candidate.
// A nil match always yields ActionNew: submission is never blocked by an
// uncertain duplicate decision.
//
// Decision table over (candidate status, candidate age, text similarity):
//
//	no candidate                                  -> new
//	pending / in_progress                         -> merge
//	rejected                                      -> new (a rejected report
//	                                                 carries no claim on
//	                                                 future reports)
//	resolved, age <= window, sim >= reopen cutoff -> reopen
//	resolved, age <= window, weaker evidence      -> merge
//	resolved, age >  window                       -> new
func (s *Scorer) Resolve(match *Match, now time.Time) Action {
	if match == nil {
		return ActionNew
	}

	c := match.Candidate
	switch c.Status {
	case models.StatusRejected:
		return ActionNew
	case models.StatusResolved:
		// Age from the explicit resolution timestamp when tracked,
		// falling back to the last-reported time.
		resolvedAt := c.LastReportedAt
		if c.ResolvedAt != nil {
			resolvedAt = *c.ResolvedAt
		}
		if now.Sub(resolvedAt) > s.cfg.ReopenWindow {
			return ActionNew
		}
		// Reopening is a stronger claim than merging: it needs real
		// textual re-identification, not just proximity.
		if !match.ProximityOnly && match.Similarity >= s.cfg.ReopenSimilarity {
			return ActionReopen
		}
		return ActionMerge
	default:
		return ActionMerge
	}
}
