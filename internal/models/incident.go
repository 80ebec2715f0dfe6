package models

import "time"

// IncidentStatus enumerates the incident lifecycle states.
type IncidentStatus string

const (
	StatusInProgress IncidentStatus = "in_progress"
	StatusAssigned   IncidentStatus = "assigned"
	StatusResolved   IncidentStatus = "resolved"
)

// ValidStatus reports whether the value is one of the known states.
func ValidStatus(s IncidentStatus) bool {
	switch s {
	case StatusInProgress, StatusAssigned, StatusResolved:
		return true
	}
	return false
}

// statusTransitions is the legal forward-transition table consulted by the
// assignment workflow. Direct case status updates bypass it.
var statusTransitions = map[IncidentStatus][]IncidentStatus{
	StatusInProgress: {StatusAssigned},
	StatusAssigned:   {StatusAssigned, StatusResolved},
	StatusResolved:   {},
}

// CanTransition reports whether the workflow may move an incident from one
// state to another.
func CanTransition(from, to IncidentStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Location is an optional geographic reference for an incident.
type Location struct {
	ID      int64   `db:"id" json:"id"`
	Address string  `db:"address" json:"address"`
	City    string  `db:"city" json:"city"`
	State   string  `db:"state" json:"state"`
	Country string  `db:"country" json:"country"`
	ZipCode *string `db:"zip_code" json:"zip_code,omitempty"`
}

// CrimeType categorises incidents and awareness solutions.
type CrimeType struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Solution holds recommended actions for a crime category.
type Solution struct {
	ID                 int64  `db:"id" json:"id"`
	CrimeTypeID        int64  `db:"crime_type_id" json:"crime_type_id"`
	RecommendedActions string `db:"recommended_actions" json:"recommended_actions"`
	AwarenessLevel     string `db:"awareness_level" json:"awareness_level"`
}

// Incident is a reported case of cybercrime.
type Incident struct {
	ID          int64          `db:"id" json:"id"`
	UserID      int64          `db:"user_id" json:"user_id"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description"`
	Status      IncidentStatus `db:"status" json:"status"`
	ReportedAt  time.Time      `db:"reported_at" json:"reported_at"`
	LocationID  *int64         `db:"location_id" json:"location_id,omitempty"`
	CrimeTypeID *int64         `db:"crime_type_id" json:"crime_type_id,omitempty"`
}

// IncidentDetail is an incident row joined with its reporter, location and
// crime type for list and detail responses.
type IncidentDetail struct {
	Incident
	ReporterEmail string  `db:"reporter_email" json:"user"`
	ReporterName  string  `db:"reporter_name" json:"reported_by"`
	CrimeTypeName *string `db:"crime_type_name" json:"crime_type,omitempty"`
	LocationLabel *string `db:"location_label" json:"location,omitempty"`
}

// AssignmentPriority enumerates case priorities.
type AssignmentPriority string

const (
	PriorityLow    AssignmentPriority = "low"
	PriorityMedium AssignmentPriority = "medium"
	PriorityHigh   AssignmentPriority = "high"
)

// ValidPriority reports whether the value is a known priority.
func ValidPriority(p AssignmentPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// IncidentAssignment binds one investigator to one incident. At most one
// assignment row exists per open incident.
type IncidentAssignment struct {
	ID               int64              `db:"id" json:"assignment_id"`
	IncidentID       int64              `db:"incident_id" json:"incident_id"`
	AssignedTo       int64              `db:"assigned_to" json:"assigned_to"`
	AssignedAt       time.Time          `db:"assigned_at" json:"assigned_at"`
	AssignedDeadline *time.Time         `db:"assigned_deadline" json:"assigned_deadline,omitempty"`
	Priority         AssignmentPriority `db:"priority" json:"priority"`
	Status           string             `db:"status" json:"status"`
	ResolvedAt       *time.Time         `db:"resolved_at" json:"resolved_at,omitempty"`
}

// AssignedCase is an assignment joined with its incident for the
// investigator's caseload listing.
type AssignedCase struct {
	IncidentID       int64              `db:"incident_id" json:"id"`
	Title            string             `db:"title" json:"title"`
	Description      string             `db:"description" json:"description"`
	Status           IncidentStatus     `db:"status" json:"status"`
	Priority         AssignmentPriority `db:"priority" json:"priority"`
	AssignedAt       time.Time          `db:"assigned_at" json:"assigned_date"`
	AssignedDeadline *time.Time         `db:"assigned_deadline" json:"deadline,omitempty"`
	CrimeTypeName    *string            `db:"crime_type_name" json:"crime_type,omitempty"`
	ReporterName     string             `db:"reporter_name" json:"reported_by"`
	LocationLabel    *string            `db:"location_label" json:"location,omitempty"`
	EvidenceCount    int                `db:"evidence_count" json:"evidence_count"`
}

// UnassignedCase is the shape of the unassigned-case queue entries.
type UnassignedCase struct {
	IncidentID  int64     `db:"incident_id" json:"case_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"case_description"`
	ReportedAt  time.Time `db:"reported_at" json:"reported_at"`
}
