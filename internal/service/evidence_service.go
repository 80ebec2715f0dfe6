package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/cimas-project/cimas-api/internal/models"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
)

type evidenceRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Evidence, error)
	ListByIncident(ctx context.Context, incidentID int64) ([]models.Evidence, error)
	Create(ctx context.Context, ev *models.Evidence) error
	Update(ctx context.Context, ev *models.Evidence) error
	Delete(ctx context.Context, id int64) error
}

type evidenceIncidentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.IncidentDetail, error)
}

type evidenceStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (io.ReadCloser, error)
	Delete(filename string) error
}

// CreateEvidenceRequest is the JSON create payload when the file is
// referenced rather than uploaded.
type CreateEvidenceRequest struct {
	FilePath    string   `json:"file_path" validate:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// EvidenceService provides the evidence attachment use cases.
type EvidenceService struct {
	repo      evidenceRepository
	incidents evidenceIncidentRepository
	storage   evidenceStorage
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger

	maxFileSize int64
}

// NewEvidenceService constructs an EvidenceService instance.
func NewEvidenceService(repo evidenceRepository, incidents evidenceIncidentRepository, storage evidenceStorage, activity activityRecorder, validate *validator.Validate, logger *zap.Logger, maxFileSize int64) *EvidenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EvidenceService{
		repo:        repo,
		incidents:   incidents,
		storage:     storage,
		activity:    activity,
		validator:   validate,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

// ListByIncident returns the evidence attached to an incident. Any
// authenticated caller may read.
func (s *EvidenceService) ListByIncident(ctx context.Context, incidentID int64) ([]models.Evidence, error) {
	if _, err := s.getIncident(ctx, incidentID); err != nil {
		return nil, err
	}
	evidence, err := s.repo.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evidence")
	}
	return evidence, nil
}

// Get returns a single evidence row.
func (s *EvidenceService) Get(ctx context.Context, id int64) (*models.Evidence, error) {
	ev, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evidence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evidence")
	}
	return ev, nil
}

// Download returns the evidence row together with a reader over its stored
// file. The caller owns closing the reader.
func (s *EvidenceService) Download(ctx context.Context, id int64) (*models.Evidence, io.ReadCloser, error) {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if s.storage == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "file storage is not configured")
	}
	file, err := s.storage.Open(ev.FilePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "evidence file not found")
	}
	return ev, file, nil
}

// Create attaches evidence by file reference. Open to any authenticated
// caller, not just the incident's reporter.
func (s *EvidenceService) Create(ctx context.Context, caller *models.JWTClaims, incidentID int64, req CreateEvidenceRequest) (*models.Evidence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evidence payload")
	}
	if _, err := s.getIncident(ctx, incidentID); err != nil {
		return nil, err
	}

	ev := &models.Evidence{
		IncidentID:  incidentID,
		SubmittedBy: caller.UserID,
		FilePath:    req.FilePath,
		Description: req.Description,
		Tags:        pq.StringArray(req.Tags),
	}
	if err := s.repo.Create(ctx, ev); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create evidence")
	}

	s.record(ctx, caller.UserID, models.ActionEvidenceAdd, &ev.ID)
	return s.Get(ctx, ev.ID)
}

// Upload stores a multipart file and attaches it as evidence. Stored names
// are uuid-prefixed to avoid collisions.
func (s *EvidenceService) Upload(ctx context.Context, caller *models.JWTClaims, incidentID int64, filename string, size int64, file io.Reader, description string, tags []string) (*models.Evidence, error) {
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size")
	}
	if _, err := s.getIncident(ctx, incidentID); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "file storage is not configured")
	}

	storedName := fmt.Sprintf("%s_%s", uuid.NewString(), filepath.Base(filename))
	path, err := s.storage.SaveStream(storedName, file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	ev := &models.Evidence{
		IncidentID:  incidentID,
		SubmittedBy: caller.UserID,
		FilePath:    path,
		Description: description,
		Tags:        pq.StringArray(tags),
	}
	if err := s.repo.Create(ctx, ev); err != nil {
		if delErr := s.storage.Delete(storedName); delErr != nil {
			s.logger.Warn("failed to remove orphaned file", zap.String("file", storedName), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create evidence")
	}

	s.record(ctx, caller.UserID, models.ActionEvidenceAdd, &ev.ID)
	return s.Get(ctx, ev.ID)
}

// Update edits evidence. Only the submitter or an admin may modify.
func (s *EvidenceService) Update(ctx context.Context, caller *models.JWTClaims, id int64, req models.EvidenceUpdateRequest) (*models.Evidence, error) {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.SubmittedBy != caller.UserID && !CapabilitiesFor(caller.Role).CanDeleteEvidence() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the submitter or an admin may modify evidence")
	}

	if req.FilePath != nil {
		ev.FilePath = *req.FilePath
	}
	if req.Description != nil {
		ev.Description = *req.Description
	}
	if req.Tags != nil {
		ev.Tags = pq.StringArray(req.Tags)
	}

	if err := s.repo.Update(ctx, ev); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update evidence")
	}

	s.record(ctx, caller.UserID, models.ActionEvidenceUpdate, &id)
	return ev, nil
}

// Delete removes evidence. Admin only.
func (s *EvidenceService) Delete(ctx context.Context, caller *models.JWTClaims, id int64) error {
	if !CapabilitiesFor(caller.Role).CanDeleteEvidence() {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins may delete evidence")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete evidence")
	}

	s.record(ctx, caller.UserID, models.ActionEvidenceDelete, &id)
	return nil
}

func (s *EvidenceService) getIncident(ctx context.Context, id int64) (*models.IncidentDetail, error) {
	incident, err := s.incidents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}
	return incident, nil
}

func (s *EvidenceService) record(ctx context.Context, userID int64, action string, targetID *int64) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Create(ctx, &models.ActivityLog{
		UserID:      userID,
		Action:      action,
		TargetTable: models.TargetEvidence,
		TargetID:    targetID,
	}); err != nil {
		s.logger.Warn("failed to record activity", zap.String("action", action), zap.Error(err))
	}
}
