package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cimas-project/cimas-api/internal/models"
)

// AnalyticsRepository runs the aggregate queries behind the dashboards.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository creates a new instance of AnalyticsRepository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// CountIncidents returns the total number of incidents.
func (r *AnalyticsRepository) CountIncidents(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM incidents`)
}

// CountIncidentsByStatus returns the number of incidents in a status.
func (r *AnalyticsRepository) CountIncidentsByStatus(ctx context.Context, status models.IncidentStatus) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM incidents WHERE status = $1`, status)
}

// CountHighPriorityOpen returns open assignments flagged high priority.
func (r *AnalyticsRepository) CountHighPriorityOpen(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM incident_assignments a
		JOIN incidents i ON i.id = a.incident_id
		WHERE a.priority = 'high' AND i.status <> 'resolved'`)
}

// WeeklyTrends returns created and resolved counts bucketed by ISO week for
// the given number of trailing weeks.
func (r *AnalyticsRepository) WeeklyTrends(ctx context.Context, weeks int) ([]models.WeeklyTrendPoint, error) {
	const query = `SELECT to_char(date_trunc('week', i.reported_at), 'IYYY-"W"IW') AS week,
			COUNT(*) AS created,
			COUNT(*) FILTER (WHERE i.status = 'resolved') AS resolved
		FROM incidents i
		WHERE i.reported_at >= $1
		GROUP BY date_trunc('week', i.reported_at)
		ORDER BY date_trunc('week', i.reported_at) ASC`
	since := time.Now().UTC().AddDate(0, 0, -7*weeks)
	var points []models.WeeklyTrendPoint
	if err := r.db.SelectContext(ctx, &points, query, since); err != nil {
		return nil, fmt.Errorf("weekly trends: %w", err)
	}
	return points, nil
}

// CategoryBreakdown returns incident counts per crime type, largest first.
func (r *AnalyticsRepository) CategoryBreakdown(ctx context.Context) ([]models.CategoryCount, error) {
	const query = `SELECT COALESCE(ct.name, 'uncategorised') AS category, COUNT(*) AS count
		FROM incidents i
		LEFT JOIN crime_types ct ON ct.id = i.crime_type_id
		GROUP BY ct.name
		ORDER BY count DESC`
	var counts []models.CategoryCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	return counts, nil
}

// Hotspots returns incident counts per city, largest first, up to limit.
func (r *AnalyticsRepository) Hotspots(ctx context.Context, limit int) ([]models.HotspotCount, error) {
	const query = `SELECT l.city, COUNT(*) AS count
		FROM incidents i
		JOIN locations l ON l.id = i.location_id
		GROUP BY l.city
		ORDER BY count DESC
		LIMIT $1`
	var counts []models.HotspotCount
	if err := r.db.SelectContext(ctx, &counts, query, limit); err != nil {
		return nil, fmt.Errorf("hotspots: %w", err)
	}
	return counts, nil
}

// CountAssignments returns the total cases assigned to an investigator.
func (r *AnalyticsRepository) CountAssignments(ctx context.Context, investigatorID int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM incident_assignments WHERE assigned_to = $1`, investigatorID)
}

// CountAssignmentsByStatus returns assigned cases whose incidents are in the
// given status.
func (r *AnalyticsRepository) CountAssignmentsByStatus(ctx context.Context, investigatorID int64, status models.IncidentStatus) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM incident_assignments a
		JOIN incidents i ON i.id = a.incident_id
		WHERE a.assigned_to = $1 AND i.status = $2`, investigatorID, status)
}

// CountAssignmentsSince returns cases assigned to the investigator at or
// after the given time.
func (r *AnalyticsRepository) CountAssignmentsSince(ctx context.Context, investigatorID int64, since time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM incident_assignments
		WHERE assigned_to = $1 AND assigned_at >= $2`, investigatorID, since)
}

// UpcomingDeadlines returns the soonest unresolved case deadlines for an
// investigator, up to limit.
func (r *AnalyticsRepository) UpcomingDeadlines(ctx context.Context, investigatorID int64, limit int) ([]models.UpcomingDeadline, error) {
	const query = `SELECT i.title, a.priority, a.assigned_deadline AS deadline, a.assigned_at
		FROM incident_assignments a
		JOIN incidents i ON i.id = a.incident_id
		WHERE a.assigned_to = $1 AND a.assigned_deadline IS NOT NULL AND i.status <> 'resolved'
		ORDER BY a.assigned_deadline ASC
		LIMIT $2`
	var deadlines []models.UpcomingDeadline
	if err := r.db.SelectContext(ctx, &deadlines, query, investigatorID, limit); err != nil {
		return nil, fmt.Errorf("upcoming deadlines: %w", err)
	}
	return deadlines, nil
}

// CountIncidentsByReporter returns the victim's total reported incidents.
func (r *AnalyticsRepository) CountIncidentsByReporter(ctx context.Context, userID int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM incidents WHERE user_id = $1`, userID)
}

// CountIncidentsByReporterAndStatus returns the victim's incidents in the
// given status.
func (r *AnalyticsRepository) CountIncidentsByReporterAndStatus(ctx context.Context, userID int64, status models.IncidentStatus) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM incidents WHERE user_id = $1 AND status = $2`, userID, status)
}

// CountBySubmitter returns how many evidence rows the user has submitted.
func (r *AnalyticsRepository) CountBySubmitter(ctx context.Context, userID int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM evidence WHERE submitted_by = $1`, userID)
}

// ActiveIncidents returns the victim's most recent unresolved incidents, up
// to limit.
func (r *AnalyticsRepository) ActiveIncidents(ctx context.Context, userID int64, limit int) ([]models.ActiveIncident, error) {
	const query = `SELECT id, title, status, reported_at
		FROM incidents
		WHERE user_id = $1 AND status <> 'resolved'
		ORDER BY reported_at DESC
		LIMIT $2`
	var incidents []models.ActiveIncident
	if err := r.db.SelectContext(ctx, &incidents, query, userID, limit); err != nil {
		return nil, fmt.Errorf("active incidents: %w", err)
	}
	return incidents, nil
}

func (r *AnalyticsRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("analytics count: %w", err)
	}
	return count, nil
}
