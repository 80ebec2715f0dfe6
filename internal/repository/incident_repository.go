package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cimas-project/cimas-api/internal/models"
)

const incidentDetailColumns = `i.id, i.user_id, i.title, i.description, i.status, i.reported_at, i.location_id, i.crime_type_id,
	u.email AS reporter_email, u.first_name || ' ' || u.last_name AS reporter_name,
	ct.name AS crime_type_name, l.city || ', ' || l.country AS location_label`

const incidentDetailJoins = `FROM incidents i
	JOIN users u ON u.id = i.user_id
	LEFT JOIN crime_types ct ON ct.id = i.crime_type_id
	LEFT JOIN locations l ON l.id = i.location_id`

// IncidentRepository provides database access for incident reports and
// their lookup tables.
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository creates a new instance of IncidentRepository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// FindByID returns an incident with reporter and lookup fields resolved.
func (r *IncidentRepository) FindByID(ctx context.Context, id int64) (*models.IncidentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE i.id = $1 LIMIT 1", incidentDetailColumns, incidentDetailJoins)
	var incident models.IncidentDetail
	if err := r.db.GetContext(ctx, &incident, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find incident by id: %w", err)
	}
	return &incident, nil
}

// List returns all incidents newest first.
func (r *IncidentRepository) List(ctx context.Context) ([]models.IncidentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s ORDER BY i.reported_at DESC", incidentDetailColumns, incidentDetailJoins)
	var incidents []models.IncidentDetail
	if err := r.db.SelectContext(ctx, &incidents, query); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return incidents, nil
}

// ListByReporter returns incidents reported by the given user newest first.
func (r *IncidentRepository) ListByReporter(ctx context.Context, userID int64) ([]models.IncidentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE i.user_id = $1 ORDER BY i.reported_at DESC", incidentDetailColumns, incidentDetailJoins)
	var incidents []models.IncidentDetail
	if err := r.db.SelectContext(ctx, &incidents, query, userID); err != nil {
		return nil, fmt.Errorf("list incidents by reporter: %w", err)
	}
	return incidents, nil
}

// Create inserts a new incident and populates the generated ID.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	if incident.ReportedAt.IsZero() {
		incident.ReportedAt = time.Now().UTC()
	}
	const query = `INSERT INTO incidents (user_id, title, description, status, reported_at, location_id, crime_type_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		incident.UserID, incident.Title, incident.Description, incident.Status,
		incident.ReportedAt, incident.LocationID, incident.CrimeTypeID,
	).Scan(&incident.ID); err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// Update persists incident fields.
func (r *IncidentRepository) Update(ctx context.Context, incident *models.Incident) error {
	const query = `UPDATE incidents SET title = :title, description = :description, status = :status,
		location_id = :location_id, crime_type_id = :crime_type_id WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// UpdateStatus changes only the status column.
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id int64, status models.IncidentStatus) error {
	const query = `UPDATE incidents SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update incident status: %w", err)
	}
	return nil
}

// Delete removes an incident and its dependent rows via cascading keys.
func (r *IncidentRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM incidents WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	return nil
}

// FindOrCreateLocation resolves a location row, creating it when absent.
func (r *IncidentRepository) FindOrCreateLocation(ctx context.Context, loc models.Location) (int64, error) {
	const find = `SELECT id FROM locations WHERE address = $1 AND city = $2 AND state = $3 AND country = $4 LIMIT 1`
	var id int64
	err := r.db.GetContext(ctx, &id, find, loc.Address, loc.City, loc.State, loc.Country)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("find location: %w", err)
	}

	const insert = `INSERT INTO locations (address, city, state, country, zip_code) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, insert, loc.Address, loc.City, loc.State, loc.Country, loc.ZipCode).Scan(&id); err != nil {
		return 0, fmt.Errorf("create location: %w", err)
	}
	return id, nil
}

// FindOrCreateCrimeType resolves a crime type by name, creating it when absent.
func (r *IncidentRepository) FindOrCreateCrimeType(ctx context.Context, name string) (int64, error) {
	const find = `SELECT id FROM crime_types WHERE LOWER(name) = LOWER($1) LIMIT 1`
	var id int64
	err := r.db.GetContext(ctx, &id, find, name)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("find crime type: %w", err)
	}

	const insert = `INSERT INTO crime_types (name) VALUES ($1) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, insert, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("create crime type: %w", err)
	}
	return id, nil
}

// ListCrimeTypes returns the crime type catalogue alphabetically.
func (r *IncidentRepository) ListCrimeTypes(ctx context.Context) ([]models.CrimeType, error) {
	const query = `SELECT id, name FROM crime_types ORDER BY name ASC`
	var types []models.CrimeType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list crime types: %w", err)
	}
	return types, nil
}

// ListSolutionsByCrimeType returns prevention guidance for a crime category.
func (r *IncidentRepository) ListSolutionsByCrimeType(ctx context.Context, crimeTypeID int64) ([]models.Solution, error) {
	const query = `SELECT id, crime_type_id, recommended_actions, awareness_level FROM solutions WHERE crime_type_id = $1 ORDER BY id ASC`
	var solutions []models.Solution
	if err := r.db.SelectContext(ctx, &solutions, query, crimeTypeID); err != nil {
		return nil, fmt.Errorf("list solutions: %w", err)
	}
	return solutions, nil
}
