package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cimas-project/cimas-api/internal/models"
)

// ActivityRepository provides database access for the audit trail.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends an audit entry.
func (r *ActivityRepository) Create(ctx context.Context, log *models.ActivityLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO activity_logs (user_id, action, timestamp, target_table, target_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		log.UserID, log.Action, log.Timestamp, log.TargetTable, log.TargetID,
	).Scan(&log.ID); err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// FindByID returns a single audit entry.
func (r *ActivityRepository) FindByID(ctx context.Context, id int64) (*models.ActivityLog, error) {
	const query = `SELECT a.id, a.user_id, a.action, a.timestamp, a.target_table, a.target_id,
			u.email AS user_email
		FROM activity_logs a
		JOIN users u ON u.id = a.user_id
		WHERE a.id = $1 LIMIT 1`
	var log models.ActivityLog
	if err := r.db.GetContext(ctx, &log, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find activity log: %w", err)
	}
	return &log, nil
}

// ListByTable returns the newest audit entries touching one table. The
// limit applies after the table filter.
func (r *ActivityRepository) ListByTable(ctx context.Context, table string, limit int) ([]models.ActivityLog, error) {
	const query = `SELECT a.id, a.user_id, a.action, a.timestamp, a.target_table, a.target_id,
			u.email AS user_email
		FROM activity_logs a
		JOIN users u ON u.id = a.user_id
		WHERE a.target_table = $1
		ORDER BY a.timestamp DESC
		LIMIT $2`
	var logs []models.ActivityLog
	if err := r.db.SelectContext(ctx, &logs, query, table, limit); err != nil {
		return nil, fmt.Errorf("list activity logs by table: %w", err)
	}
	return logs, nil
}

// ListByTarget returns audit entries for one target row, newest first.
func (r *ActivityRepository) ListByTarget(ctx context.Context, table string, targetID int64, limit int) ([]models.ActivityLog, error) {
	const query = `SELECT a.id, a.user_id, a.action, a.timestamp, a.target_table, a.target_id,
			u.email AS user_email
		FROM activity_logs a
		JOIN users u ON u.id = a.user_id
		WHERE a.target_table = $1 AND a.target_id = $2
		ORDER BY a.timestamp DESC
		LIMIT $3`
	var logs []models.ActivityLog
	if err := r.db.SelectContext(ctx, &logs, query, table, targetID, limit); err != nil {
		return nil, fmt.Errorf("list activity logs by target: %w", err)
	}
	return logs, nil
}

// List returns the newest audit entries up to limit.
func (r *ActivityRepository) List(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	const query = `SELECT a.id, a.user_id, a.action, a.timestamp, a.target_table, a.target_id,
			u.email AS user_email
		FROM activity_logs a
		JOIN users u ON u.id = a.user_id
		ORDER BY a.timestamp DESC
		LIMIT $1`
	var logs []models.ActivityLog
	if err := r.db.SelectContext(ctx, &logs, query, limit); err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	return logs, nil
}

// ListByUser returns the newest audit entries for one user up to limit.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.ActivityLog, error) {
	const query = `SELECT a.id, a.user_id, a.action, a.timestamp, a.target_table, a.target_id,
			u.email AS user_email
		FROM activity_logs a
		JOIN users u ON u.id = a.user_id
		WHERE a.user_id = $1
		ORDER BY a.timestamp DESC
		LIMIT $2`
	var logs []models.ActivityLog
	if err := r.db.SelectContext(ctx, &logs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list activity logs by user: %w", err)
	}
	return logs, nil
}
