// Package lifecycle implements the report status state machine: the legal
// transition table, the guard conditions gating each transition, and the
// notification events a successful transition should fire. It is pure —
// callers hand in a report snapshot and persist the returned copy.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/fixcity/report-server/internal/models"
)

// Event names a notification that should fire after a successful
// transition. Dispatch is entirely the caller's concern; a failed dispatch
// never fails the transition.
type Event string

const (
	// EventAssigned tells the reporting citizen their issue is being
	// worked on.
	EventAssigned Event = "assigned"
	// EventTechAssigned tells the technician they have a new task.
	EventTechAssigned Event = "tech_assigned"
	// EventResolved tells the citizen the issue was fixed.
	EventResolved Event = "resolved"
	// EventRejected tells the citizen the report was declined.
	EventRejected Event = "rejected"
)

// Reason classifies why a transition was refused.
type Reason string

const (
	ReasonInvalidTransition      Reason = "invalid_transition"
	ReasonMissingAssignment      Reason = "missing_assignment"
	ReasonMissingResolutionNotes Reason = "missing_resolution_notes"
	ReasonMissingRejectionReason Reason = "missing_rejection_reason"
)

// TransitionError is a structured refusal of a status change.
type TransitionError struct {
	From    models.Status
	To      models.Status
	Reason  Reason
	Allowed []models.Status
}

func (e *TransitionError) Error() string {
	switch e.Reason {
	case ReasonMissingAssignment:
		return fmt.Sprintf("cannot move report to %s: a technician must be assigned", e.To)
	case ReasonMissingResolutionNotes:
		return fmt.Sprintf("cannot move report to %s: resolution notes are required", e.To)
	case ReasonMissingRejectionReason:
		return fmt.Sprintf("cannot move report to %s: a rejection reason is required", e.To)
	default:
		allowed := make([]string, len(e.Allowed))
		for i, s := range e.Allowed {
			allowed[i] = string(s)
		}
		if len(allowed) == 0 {
			return fmt.Sprintf("invalid transition %s -> %s: %s is terminal", e.From, e.To, e.From)
		}
		return fmt.Sprintf("invalid transition %s -> %s (allowed from %s: %s)",
			e.From, e.To, e.From, strings.Join(allowed, ", "))
	}
}

// transitions is the legal status graph. The duplicate-engine reopen path
// (resolved -> pending) is deliberately absent: it goes through Reopen,
// never through Apply.
var transitions = map[models.Status][]models.Status{
	models.StatusPending:    {models.StatusInProgress, models.StatusRejected},
	models.StatusInProgress: {models.StatusResolved, models.StatusRejected},
	models.StatusResolved:   {},
	models.StatusRejected:   {},
}

// AllowedFrom returns the statuses reachable from the given state.
func AllowedFrom(s models.Status) []models.Status {
	return transitions[s]
}

func canTransition(from, to models.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Apply validates the requested update against the current report snapshot
// and returns the updated record plus the notification events to dispatch.
// The input snapshot is never mutated. On refusal the snapshot is returned
// unchanged alongside a *TransitionError or *models.ValidationError.
//
// An update that assigns a technician without naming a status is treated as
// a request for in_progress.
func Apply(current models.Report, update models.ReportUpdate, now time.Time) (models.Report, []Event, error) {
	next := current
	var events []Event

	// Assignment and note fields land on the copy first so guards can see
	// values supplied in the same update.
	techAssignedNow := false
	if update.AssignedTechnicianID != nil && *update.AssignedTechnicianID != "" {
		next.AssignedTechnicianID = update.AssignedTechnicianID
		techAssignedNow = true
	}
	if update.AssignedOfficerID != nil && *update.AssignedOfficerID != "" {
		next.AssignedOfficerID = update.AssignedOfficerID
	}
	if update.ResolutionNotes != nil {
		next.ResolutionNotes = update.ResolutionNotes
	}
	if update.ResolutionImageURL != nil && *update.ResolutionImageURL != "" {
		next.ResolutionImageURL = update.ResolutionImageURL
	}

	target := update.Status
	if target == nil && techAssignedNow {
		inProgress := models.StatusInProgress
		target = &inProgress
	}
	if target == nil {
		next.UpdatedAt = now
		return next, nil, nil
	}

	if !target.Valid() {
		return current, nil, &models.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *target)}
	}
	if !canTransition(current.Status, *target) {
		return current, nil, &TransitionError{
			From:    current.Status,
			To:      *target,
			Reason:  ReasonInvalidTransition,
			Allowed: AllowedFrom(current.Status),
		}
	}

	// Guards, in order; the first failure is the one reported.
	switch *target {
	case models.StatusInProgress:
		if next.AssignedTechnicianID == nil || *next.AssignedTechnicianID == "" {
			return current, nil, &TransitionError{From: current.Status, To: *target, Reason: ReasonMissingAssignment}
		}
	case models.StatusResolved:
		if next.ResolutionNotes == nil || strings.TrimSpace(*next.ResolutionNotes) == "" {
			return current, nil, &TransitionError{From: current.Status, To: *target, Reason: ReasonMissingResolutionNotes}
		}
	case models.StatusRejected:
		if update.RejectionReason == nil || strings.TrimSpace(*update.RejectionReason) == "" {
			return current, nil, &TransitionError{From: current.Status, To: *target, Reason: ReasonMissingRejectionReason}
		}
		next.RejectionReason = update.RejectionReason
	}

	next.Status = *target
	next.UpdatedAt = now

	switch *target {
	case models.StatusInProgress:
		events = append(events, EventAssigned)
		if techAssignedNow {
			events = append(events, EventTechAssigned)
		}
	case models.StatusResolved:
		resolvedAt := now
		next.ResolvedAt = &resolvedAt
		events = append(events, EventResolved)
	case models.StatusRejected:
		resolvedAt := now
		next.ResolvedAt = &resolvedAt
		events = append(events, EventRejected)
	}

	return next, events, nil
}

// Reopen resets a resolved report back to pending. This is the one
// sanctioned exit from a terminal state, reserved for the duplicate
// engine's reopen action; officer updates cannot reach it.
func Reopen(current models.Report, now time.Time) (models.Report, error) {
	if current.Status != models.StatusResolved {
		return current, &TransitionError{
			From:    current.Status,
			To:      models.StatusPending,
			Reason:  ReasonInvalidTransition,
			Allowed: AllowedFrom(current.Status),
		}
	}

	next := current
	next.Status = models.StatusPending
	next.ResolutionNotes = nil
	next.ResolutionImageURL = nil
	next.ResolvedAt = nil
	next.UpdatedAt = now
	return next, nil
}
