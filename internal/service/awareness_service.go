package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cimas-project/cimas-api/internal/models"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
)

type awarenessRepository interface {
	FindByID(ctx context.Context, id int64) (*models.AwarenessResource, error)
	List(ctx context.Context) ([]models.AwarenessResource, error)
	Create(ctx context.Context, res *models.AwarenessResource, flairIDs []int64) error
	Update(ctx context.Context, res *models.AwarenessResource, flairIDs []int64) error
	Delete(ctx context.Context, id int64) error
	ListFlairs(ctx context.Context) ([]models.Flair, error)
}

// AwarenessService provides the educational-article use cases. Reads are
// public; writes require authentication.
type AwarenessService struct {
	repo      awarenessRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAwarenessService constructs an AwarenessService instance.
func NewAwarenessService(repo awarenessRepository, validate *validator.Validate, logger *zap.Logger) *AwarenessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AwarenessService{repo: repo, validator: validate, logger: logger}
}

// List returns all articles.
func (s *AwarenessService) List(ctx context.Context) ([]models.AwarenessResource, error) {
	resources, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}
	return resources, nil
}

// Get returns a single article.
func (s *AwarenessService) Get(ctx context.Context, id int64) (*models.AwarenessResource, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	return res, nil
}

// Create authors a new article. The author is the caller and immutable.
func (s *AwarenessService) Create(ctx context.Context, caller *models.JWTClaims, req models.AwarenessResourceRequest) (*models.AwarenessResource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}

	res := &models.AwarenessResource{
		Title:    req.Title,
		Synopsis: req.Synopsis,
		Content:  req.Content,
		Image:    req.Image,
		AuthorID: caller.UserID,
	}
	if err := s.repo.Create(ctx, res, req.FlairIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resource")
	}
	return s.Get(ctx, res.ID)
}

// Update edits an article. Only the author or an admin may modify.
func (s *AwarenessService) Update(ctx context.Context, caller *models.JWTClaims, id int64, req models.AwarenessResourceRequest) (*models.AwarenessResource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}

	res, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.AuthorID != caller.UserID && !CapabilitiesFor(caller.Role).CanManageUsers() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author or an admin may modify this resource")
	}

	res.Title = req.Title
	res.Synopsis = req.Synopsis
	res.Content = req.Content
	res.Image = req.Image

	if err := s.repo.Update(ctx, res, req.FlairIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update resource")
	}
	return s.Get(ctx, id)
}

// Delete removes an article. Only the author or an admin may delete.
func (s *AwarenessService) Delete(ctx context.Context, caller *models.JWTClaims, id int64) error {
	res, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if res.AuthorID != caller.UserID && !CapabilitiesFor(caller.Role).CanManageUsers() {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author or an admin may delete this resource")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete resource")
	}
	return nil
}

// Flairs returns the flair catalogue.
func (s *AwarenessService) Flairs(ctx context.Context) ([]models.Flair, error) {
	flairs, err := s.repo.ListFlairs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list flairs")
	}
	return flairs, nil
}
