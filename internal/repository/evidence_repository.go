package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cimas-project/cimas-api/internal/models"
)

const evidenceColumns = `e.id, e.incident_id, e.submitted_by, e.file_path, e.description, e.tags, e.submitted_at,
	u.email AS submitter_email`

const evidenceJoins = `FROM evidence e JOIN users u ON u.id = e.submitted_by`

// EvidenceRepository provides database access for evidence attachments.
type EvidenceRepository struct {
	db *sqlx.DB
}

// NewEvidenceRepository creates a new instance of EvidenceRepository.
func NewEvidenceRepository(db *sqlx.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

// FindByID returns an evidence row with the submitter resolved.
func (r *EvidenceRepository) FindByID(ctx context.Context, id int64) (*models.Evidence, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.id = $1 LIMIT 1", evidenceColumns, evidenceJoins)
	var ev models.Evidence
	if err := r.db.GetContext(ctx, &ev, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find evidence by id: %w", err)
	}
	return &ev, nil
}

// List returns all evidence, newest first.
func (r *EvidenceRepository) List(ctx context.Context) ([]models.Evidence, error) {
	query := fmt.Sprintf("SELECT %s %s ORDER BY e.submitted_at DESC", evidenceColumns, evidenceJoins)
	var evidence []models.Evidence
	if err := r.db.SelectContext(ctx, &evidence, query); err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	return evidence, nil
}

// ListByIncident returns the evidence attached to an incident, oldest first.
func (r *EvidenceRepository) ListByIncident(ctx context.Context, incidentID int64) ([]models.Evidence, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.incident_id = $1 ORDER BY e.submitted_at ASC", evidenceColumns, evidenceJoins)
	var evidence []models.Evidence
	if err := r.db.SelectContext(ctx, &evidence, query, incidentID); err != nil {
		return nil, fmt.Errorf("list evidence by incident: %w", err)
	}
	return evidence, nil
}

// Create inserts an evidence row and populates the generated ID.
func (r *EvidenceRepository) Create(ctx context.Context, ev *models.Evidence) error {
	if ev.SubmittedAt.IsZero() {
		ev.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO evidence (incident_id, submitted_by, file_path, description, tags, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		ev.IncidentID, ev.SubmittedBy, ev.FilePath, ev.Description, ev.Tags, ev.SubmittedAt,
	).Scan(&ev.ID); err != nil {
		return fmt.Errorf("create evidence: %w", err)
	}
	return nil
}

// Update persists the mutable evidence fields.
func (r *EvidenceRepository) Update(ctx context.Context, ev *models.Evidence) error {
	const query = `UPDATE evidence SET file_path = :file_path, description = :description, tags = :tags WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, ev); err != nil {
		return fmt.Errorf("update evidence: %w", err)
	}
	return nil
}

// Delete removes an evidence row.
func (r *EvidenceRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM evidence WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete evidence: %w", err)
	}
	return nil
}
