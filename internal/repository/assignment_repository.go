package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cimas-project/cimas-api/internal/models"
)

// AssignmentRepository provides database access for case assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new instance of AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByIncident returns the assignment for an incident, sql.ErrNoRows when
// the incident is unassigned.
func (r *AssignmentRepository) FindByIncident(ctx context.Context, incidentID int64) (*models.IncidentAssignment, error) {
	const query = `SELECT id, incident_id, assigned_to, assigned_at, assigned_deadline, priority, status, resolved_at
		FROM incident_assignments WHERE incident_id = $1 LIMIT 1`
	var assignment models.IncidentAssignment
	if err := r.db.GetContext(ctx, &assignment, query, incidentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment by incident: %w", err)
	}
	return &assignment, nil
}

// ExistsForIncident reports whether the incident already has an assignment.
func (r *AssignmentRepository) ExistsForIncident(ctx context.Context, incidentID int64) (bool, error) {
	const query = `SELECT COUNT(*) FROM incident_assignments WHERE incident_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, incidentID); err != nil {
		return false, fmt.Errorf("check assignment exists: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new assignment and populates the generated ID.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.IncidentAssignment) error {
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO incident_assignments (incident_id, assigned_to, assigned_at, assigned_deadline, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		assignment.IncidentID, assignment.AssignedTo, assignment.AssignedAt,
		assignment.AssignedDeadline, assignment.Priority, assignment.Status,
	).Scan(&assignment.ID); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update persists assignee, deadline, priority and status changes.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.IncidentAssignment) error {
	const query = `UPDATE incident_assignments SET assigned_to = :assigned_to, assigned_at = :assigned_at,
		assigned_deadline = :assigned_deadline, priority = :priority, status = :status, resolved_at = :resolved_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// LinkExists reports whether the investigator is assigned to any incident
// reported by the victim. This relation gates direct chat between them.
func (r *AssignmentRepository) LinkExists(ctx context.Context, investigatorID, victimID int64) (bool, error) {
	const query = `SELECT COUNT(*) FROM incident_assignments a
		JOIN incidents i ON i.id = a.incident_id
		WHERE a.assigned_to = $1 AND i.user_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, investigatorID, victimID); err != nil {
		return false, fmt.Errorf("check assignment link: %w", err)
	}
	return count > 0, nil
}

// ListByAssignee returns the cases assigned to an investigator with reporter
// details and evidence counts, newest assignment first.
func (r *AssignmentRepository) ListByAssignee(ctx context.Context, investigatorID int64) ([]models.AssignedCase, error) {
	const query = `SELECT i.id AS incident_id, i.title, i.description, i.status, a.priority,
			a.assigned_at, a.assigned_deadline, ct.name AS crime_type_name,
			u.first_name || ' ' || u.last_name AS reporter_name,
			l.city || ', ' || l.country AS location_label,
			(SELECT COUNT(*) FROM evidence e WHERE e.incident_id = i.id) AS evidence_count
		FROM incident_assignments a
		JOIN incidents i ON i.id = a.incident_id
		JOIN users u ON u.id = i.user_id
		LEFT JOIN crime_types ct ON ct.id = i.crime_type_id
		LEFT JOIN locations l ON l.id = i.location_id
		WHERE a.assigned_to = $1
		ORDER BY a.assigned_at DESC`
	var cases []models.AssignedCase
	if err := r.db.SelectContext(ctx, &cases, query, investigatorID); err != nil {
		return nil, fmt.Errorf("list assigned cases: %w", err)
	}
	return cases, nil
}

// ListUnassigned returns incidents that are not resolved and have no
// assignment row, oldest report first.
func (r *AssignmentRepository) ListUnassigned(ctx context.Context) ([]models.UnassignedCase, error) {
	const query = `SELECT i.id AS incident_id, i.title, i.description, i.reported_at
		FROM incidents i
		WHERE i.status <> 'resolved'
		  AND NOT EXISTS (SELECT 1 FROM incident_assignments a WHERE a.incident_id = i.id)
		ORDER BY i.reported_at ASC`
	var cases []models.UnassignedCase
	if err := r.db.SelectContext(ctx, &cases, query); err != nil {
		return nil, fmt.Errorf("list unassigned cases: %w", err)
	}
	return cases, nil
}
