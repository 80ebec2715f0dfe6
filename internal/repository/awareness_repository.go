package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cimas-project/cimas-api/internal/models"
)

const resourceColumns = `r.id, r.title, r.synopsis, r.content, r.image, r.author_id, r.created_at, r.updated_at,
	u.email AS author_email`

const resourceJoins = `FROM awareness_resources r JOIN users u ON u.id = r.author_id`

// AwarenessRepository provides database access for awareness articles and
// their flairs.
type AwarenessRepository struct {
	db *sqlx.DB
}

// NewAwarenessRepository creates a new instance of AwarenessRepository.
func NewAwarenessRepository(db *sqlx.DB) *AwarenessRepository {
	return &AwarenessRepository{db: db}
}

// FindByID returns an article with its author and flairs resolved.
func (r *AwarenessRepository) FindByID(ctx context.Context, id int64) (*models.AwarenessResource, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE r.id = $1 LIMIT 1", resourceColumns, resourceJoins)
	var res models.AwarenessResource
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find resource by id: %w", err)
	}

	flairs, err := r.flairsFor(ctx, []int64{res.ID})
	if err != nil {
		return nil, err
	}
	res.Flairs = flairs[res.ID]
	if res.Flairs == nil {
		res.Flairs = []models.Flair{}
	}
	return &res, nil
}

// List returns all articles newest first with flairs attached.
func (r *AwarenessRepository) List(ctx context.Context) ([]models.AwarenessResource, error) {
	query := fmt.Sprintf("SELECT %s %s ORDER BY r.created_at DESC", resourceColumns, resourceJoins)
	var resources []models.AwarenessResource
	if err := r.db.SelectContext(ctx, &resources, query); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	if len(resources) == 0 {
		return resources, nil
	}

	ids := make([]int64, len(resources))
	for i, res := range resources {
		ids[i] = res.ID
	}
	flairs, err := r.flairsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range resources {
		resources[i].Flairs = flairs[resources[i].ID]
		if resources[i].Flairs == nil {
			resources[i].Flairs = []models.Flair{}
		}
	}
	return resources, nil
}

// Create inserts an article and replaces its flair set.
func (r *AwarenessRepository) Create(ctx context.Context, res *models.AwarenessResource, flairIDs []int64) error {
	now := time.Now().UTC()
	res.CreatedAt = now
	res.UpdatedAt = now

	const query = `INSERT INTO awareness_resources (title, synopsis, content, image, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		res.Title, res.Synopsis, res.Content, res.Image, res.AuthorID, res.CreatedAt, res.UpdatedAt,
	).Scan(&res.ID); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return r.replaceFlairs(ctx, res.ID, flairIDs)
}

// Update persists article fields and replaces its flair set.
func (r *AwarenessRepository) Update(ctx context.Context, res *models.AwarenessResource, flairIDs []int64) error {
	res.UpdatedAt = time.Now().UTC()
	const query = `UPDATE awareness_resources SET title = :title, synopsis = :synopsis, content = :content,
		image = :image, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, res); err != nil {
		return fmt.Errorf("update resource: %w", err)
	}
	return r.replaceFlairs(ctx, res.ID, flairIDs)
}

// Delete removes an article and its flair links.
func (r *AwarenessRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM awareness_resources WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return nil
}

// ListFlairs returns the flair catalogue alphabetically.
func (r *AwarenessRepository) ListFlairs(ctx context.Context) ([]models.Flair, error) {
	const query = `SELECT id, name FROM flairs ORDER BY name ASC`
	var flairs []models.Flair
	if err := r.db.SelectContext(ctx, &flairs, query); err != nil {
		return nil, fmt.Errorf("list flairs: %w", err)
	}
	return flairs, nil
}

func (r *AwarenessRepository) replaceFlairs(ctx context.Context, resourceID int64, flairIDs []int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM resource_flairs WHERE resource_id = $1`, resourceID); err != nil {
		return fmt.Errorf("clear resource flairs: %w", err)
	}
	for _, flairID := range flairIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO resource_flairs (resource_id, flair_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			resourceID, flairID,
		); err != nil {
			return fmt.Errorf("link resource flair: %w", err)
		}
	}
	return nil
}

func (r *AwarenessRepository) flairsFor(ctx context.Context, resourceIDs []int64) (map[int64][]models.Flair, error) {
	const query = `SELECT rf.resource_id, f.id, f.name
		FROM resource_flairs rf
		JOIN flairs f ON f.id = rf.flair_id
		WHERE rf.resource_id = ANY($1)
		ORDER BY f.name ASC`
	rows, err := r.db.QueryxContext(ctx, query, pq.Array(resourceIDs))
	if err != nil {
		return nil, fmt.Errorf("load resource flairs: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]models.Flair)
	for rows.Next() {
		var resourceID int64
		var flair models.Flair
		if err := rows.Scan(&resourceID, &flair.ID, &flair.Name); err != nil {
			return nil, fmt.Errorf("scan resource flair: %w", err)
		}
		result[resourceID] = append(result[resourceID], flair)
	}
	return result, rows.Err()
}
