package models

import "time"

// WeeklyTrendPoint is one ISO-week bucket of the created-vs-resolved series.
type WeeklyTrendPoint struct {
	Week     string `db:"week" json:"week"`
	Created  int    `db:"created" json:"created"`
	Resolved int    `db:"resolved" json:"resolved"`
}

// CategoryCount is one slice of the crime-category breakdown.
type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Count    int    `db:"count" json:"count"`
}

// HotspotCount is a location-based incident rollup keyed by city.
type HotspotCount struct {
	City  string `db:"city" json:"city"`
	Count int    `db:"count" json:"count"`
}

// AdminSummary is the admin dashboard rollup.
type AdminSummary struct {
	TotalIncidents    int                `json:"total_incidents"`
	CriticalIncidents int                `json:"critical_incidents"`
	SolvedIncidents   int                `json:"solved_incidents"`
	InProgressCases   int                `json:"in_progress_cases"`
	ResolvedCases     int                `json:"resolved_cases"`
	WeeklyTrends      []WeeklyTrendPoint `json:"weekly_trends"`
	Categories        []CategoryCount    `json:"categories"`
	Hotspots          []HotspotCount     `json:"hotspots"`
}

// UpcomingDeadline is one of the investigator's soonest case deadlines.
type UpcomingDeadline struct {
	Title      string             `db:"title" json:"title"`
	Priority   AssignmentPriority `db:"priority" json:"priority"`
	Deadline   time.Time          `db:"deadline" json:"deadline"`
	AssignedAt time.Time          `db:"assigned_at" json:"assigned_at"`
}

// InvestigatorSummary is the investigator dashboard rollup. SuccessRate is
// always 0 when no cases are assigned.
type InvestigatorSummary struct {
	TotalAssignedCases int                `json:"total_assigned_cases"`
	InProgressCases    int                `json:"in_progress_cases"`
	ResolvedCases      int                `json:"resolved_cases"`
	SuccessRate        float64            `json:"success_rate"`
	CasesThisMonth     int                `json:"cases_this_month"`
	UpcomingDeadlines  []UpcomingDeadline `json:"upcoming_deadlines"`
}

// ActiveIncident is one of the victim's most recent open incidents with a
// synthesized progress percentage.
type ActiveIncident struct {
	ID         int64          `db:"id" json:"id"`
	Title      string         `db:"title" json:"title"`
	Status     IncidentStatus `db:"status" json:"status"`
	ReportedAt time.Time      `db:"reported_at" json:"reported_at"`
	Progress   int            `json:"progress"`
}

// ProgressFor maps an incident status to its fixed progress bucket.
func ProgressFor(status IncidentStatus) int {
	switch status {
	case StatusInProgress:
		return 50
	case StatusAssigned:
		return 75
	}
	return 0
}

// VictimSummary is the victim dashboard rollup.
type VictimSummary struct {
	TotalIncidents    int              `json:"total_incidents"`
	InProgressCases   int              `json:"in_progress_cases"`
	ResolvedCases     int              `json:"resolved_cases"`
	EvidenceSubmitted int              `json:"evidence_submitted"`
	ActiveIncidents   []ActiveIncident `json:"active_incidents"`
}
