// Package models defines the data structures used across the application.
// These map to the PostgreSQL reports schema.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is the closed set of issue categories a citizen can report.
type Category string

const (
	CategoryPothole     Category = "pothole"
	CategorySanitation  Category = "sanitation"
	CategoryStreetDogs  Category = "street_dogs"
	CategoryEWaste      Category = "e_waste"
	CategoryGraffiti    Category = "graffiti"
	CategoryStreetlight Category = "streetlight"
	CategoryOther       Category = "other"
)

// Categories returns all known categories.
func Categories() []Category {
	return []Category{
		CategoryPothole, CategorySanitation, CategoryStreetDogs,
		CategoryEWaste, CategoryGraffiti, CategoryStreetlight, CategoryOther,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryPothole, CategorySanitation, CategoryStreetDogs,
		CategoryEWaste, CategoryGraffiti, CategoryStreetlight, CategoryOther:
		return true
	}
	return false
}

// Status is the report lifecycle state. Transitions are governed by the
// lifecycle package; nothing else should write this field directly.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions (outside the
// sanctioned duplicate-engine reopen path).
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Priority is the urgency tier of a report. Once a report has duplicates,
// the escalation function in dupdetect is the sole authority for this field.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank returns the ordinal position of p (low=0 .. urgent=3), used to
// compare tiers. Unknown priorities rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	}
	return -1
}

// Report is a citizen-submitted civic issue. A report with a nil
// ParentReportID is canonical; a non-nil ParentReportID marks a duplicate
// child merged into that canonical report. Only canonical reports are
// candidates for duplicate detection.
type Report struct {
	ID                   string     `json:"id" db:"id"`
	UserID               string     `json:"user_id" db:"user_id"`
	UserName             string     `json:"user_name" db:"user_name"`
	Category             Category   `json:"category" db:"category"`
	Description          string     `json:"description" db:"description"`
	Address              string     `json:"address" db:"address"`
	Latitude             float64    `json:"latitude" db:"latitude"`
	Longitude            float64    `json:"longitude" db:"longitude"`
	ImageURL             *string    `json:"image_url,omitempty" db:"image_url"`
	Status               Status     `json:"status" db:"status"`
	Priority             Priority   `json:"priority" db:"priority"`
	ParentReportID       *string    `json:"parent_report_id,omitempty" db:"parent_report_id"`
	DuplicateCount       int        `json:"duplicate_count" db:"duplicate_count"`
	LastReportedAt       time.Time  `json:"last_reported_at" db:"last_reported_at"`
	AssignedTechnicianID *string    `json:"assigned_technician_id,omitempty" db:"assigned_technician_id"`
	AssignedOfficerID    *string    `json:"assigned_officer_id,omitempty" db:"assigned_officer_id"`
	ResolutionNotes      *string    `json:"resolution_notes,omitempty" db:"resolution_notes"`
	ResolutionImageURL   *string    `json:"resolution_image_url,omitempty" db:"resolution_image_url"`
	RejectionReason      *string    `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ResolvedAt           *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	Version              int64      `json:"-" db:"version"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// Canonical reports whether r is a canonical (non-child) report.
func (r *Report) Canonical() bool {
	return r.ParentReportID == nil
}

// ReportSubmission is the request body for filing a new report.
type ReportSubmission struct {
	UserID      string   `json:"user_id"`
	UserName    string   `json:"user_name"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Address     string   `json:"location"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	ImageURL    string   `json:"image_url,omitempty"`
}

// Validate checks the submission against the report contract. Validation
// happens here, before any scoring or policy logic runs.
func (s *ReportSubmission) Validate() error {
	if s.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "required"}
	}
	if !s.Category.Valid() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", s.Category)}
	}
	desc := strings.TrimSpace(s.Description)
	if len(desc) < 10 {
		return &ValidationError{Field: "description", Reason: "must be at least 10 characters"}
	}
	if len(desc) > 1000 {
		return &ValidationError{Field: "description", Reason: "must be at most 1000 characters"}
	}
	if strings.ContainsAny(desc, "<>") {
		return &ValidationError{Field: "description", Reason: "markup is not allowed"}
	}
	if s.Address == "" {
		return &ValidationError{Field: "location", Reason: "required"}
	}
	if len(s.Address) > 200 {
		return &ValidationError{Field: "location", Reason: "address is too long"}
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return &ValidationError{Field: "latitude", Reason: "must be between -90 and 90"}
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return &ValidationError{Field: "longitude", Reason: "must be between -180 and 180"}
	}
	return nil
}

// ReportUpdate is the request body for mutating an existing report. Only
// status-relevant fields are understood by the lifecycle state machine;
// nil means "not supplied in this update".
type ReportUpdate struct {
	Status               *Status `json:"status,omitempty"`
	AssignedTechnicianID *string `json:"assigned_technician_id,omitempty"`
	AssignedOfficerID    *string `json:"assigned_officer_id,omitempty"`
	ResolutionNotes      *string `json:"resolution_notes,omitempty"`
	ResolutionImageURL   *string `json:"resolution_image_url,omitempty"`
	RejectionReason      *string `json:"rejection_reason,omitempty"`
}

// SubmitResult describes the outcome of a submission, including whether the
// report was merged into an existing canonical report.
type SubmitResult struct {
	Report           *Report `json:"report"`
	IsDuplicate      bool    `json:"is_duplicate"`
	DuplicateMessage string  `json:"duplicate_message,omitempty"`
	ParentReportID   *string `json:"parent_report_id,omitempty"`
	Reopened         bool    `json:"reopened,omitempty"`
}

// ValidationError reports malformed input to a core function. The engine
// never coerces bad input; it is rejected before any decision logic runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Technician is a field worker who can be assigned to reports.
type Technician struct {
	ID             string   `json:"id" db:"id"`
	Name           string   `json:"name" db:"name"`
	Specialization Category `json:"specialization" db:"specialization"`
	Phone          string   `json:"phone" db:"phone"`
	Active         bool     `json:"active" db:"active"`
}

// ActivityLog records a report event for the audit trail.
type ActivityLog struct {
	ID          int64     `json:"id" db:"id"`
	ReportID    string    `json:"report_id" db:"report_id"`
	Actor       string    `json:"actor" db:"actor"`
	EventType   string    `json:"event_type" db:"event_type"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// HealthStatus represents the server health check response.
type HealthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database,omitempty"`
}
