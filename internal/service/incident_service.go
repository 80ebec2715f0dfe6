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

type incidentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.IncidentDetail, error)
	List(ctx context.Context) ([]models.IncidentDetail, error)
	ListByReporter(ctx context.Context, userID int64) ([]models.IncidentDetail, error)
	Create(ctx context.Context, incident *models.Incident) error
	Update(ctx context.Context, incident *models.Incident) error
	Delete(ctx context.Context, id int64) error
	FindOrCreateLocation(ctx context.Context, loc models.Location) (int64, error)
	FindOrCreateCrimeType(ctx context.Context, name string) (int64, error)
	ListCrimeTypes(ctx context.Context) ([]models.CrimeType, error)
	ListSolutionsByCrimeType(ctx context.Context, crimeTypeID int64) ([]models.Solution, error)
}

// CreateIncidentRequest is the report-incident payload.
type CreateIncidentRequest struct {
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description" validate:"required"`
	CrimeType   string           `json:"crime_type"`
	Location    *models.Location `json:"location"`
}

// UpdateIncidentRequest carries mutable incident fields.
type UpdateIncidentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	CrimeType   *string `json:"crime_type"`
}

// IncidentService provides incident reporting use cases.
type IncidentService struct {
	repo      incidentRepository
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewIncidentService constructs an IncidentService instance.
func NewIncidentService(repo incidentRepository, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *IncidentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &IncidentService{repo: repo, activity: activity, validator: validate, logger: logger}
}

// Create files a new incident report on behalf of the caller. New reports
// always start in in_progress.
func (s *IncidentService) Create(ctx context.Context, caller *models.JWTClaims, req CreateIncidentRequest) (*models.IncidentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid incident payload")
	}

	incident := &models.Incident{
		UserID:      caller.UserID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.StatusInProgress,
	}

	if req.CrimeType != "" {
		crimeTypeID, err := s.repo.FindOrCreateCrimeType(ctx, req.CrimeType)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve crime type")
		}
		incident.CrimeTypeID = &crimeTypeID
	}
	if req.Location != nil {
		locationID, err := s.repo.FindOrCreateLocation(ctx, *req.Location)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve location")
		}
		incident.LocationID = &locationID
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create incident")
	}

	s.record(ctx, caller.UserID, models.ActionIncidentCreate, &incident.ID)

	return s.get(ctx, incident.ID)
}

// List returns the incidents visible to the caller: victims see their own
// reports, investigators and admins see everything.
func (s *IncidentService) List(ctx context.Context, caller *models.JWTClaims) ([]models.IncidentDetail, error) {
	var (
		incidents []models.IncidentDetail
		err       error
	)
	if caller.Role == models.RoleVictim || !models.ValidRole(caller.Role) {
		incidents, err = s.repo.ListByReporter(ctx, caller.UserID)
	} else {
		incidents, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incidents")
	}
	return incidents, nil
}

// Get returns a single incident, enforcing per-role visibility.
func (s *IncidentService) Get(ctx context.Context, caller *models.JWTClaims, id int64) (*models.IncidentDetail, error) {
	incident, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CapabilitiesFor(caller.Role).CanViewIncident(caller.UserID, &incident.Incident) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return incident, nil
}

// Update edits an incident. Victims may only edit their own reports.
func (s *IncidentService) Update(ctx context.Context, caller *models.JWTClaims, id int64, req UpdateIncidentRequest) (*models.IncidentDetail, error) {
	incident, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CapabilitiesFor(caller.Role).CanManageIncident(caller.UserID, &incident.Incident) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	if req.Title != nil {
		incident.Title = *req.Title
	}
	if req.Description != nil {
		incident.Description = *req.Description
	}
	if req.CrimeType != nil {
		crimeTypeID, err := s.repo.FindOrCreateCrimeType(ctx, *req.CrimeType)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve crime type")
		}
		incident.CrimeTypeID = &crimeTypeID
	}

	if err := s.repo.Update(ctx, &incident.Incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update incident")
	}

	s.record(ctx, caller.UserID, models.ActionIncidentUpdate, &incident.ID)

	return s.get(ctx, id)
}

// Delete removes an incident. Victims may only delete their own reports.
func (s *IncidentService) Delete(ctx context.Context, caller *models.JWTClaims, id int64) error {
	incident, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !CapabilitiesFor(caller.Role).CanManageIncident(caller.UserID, &incident.Incident) {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete incident")
	}

	s.record(ctx, caller.UserID, models.ActionIncidentDelete, &id)
	return nil
}

// CrimeTypes returns the crime type catalogue.
func (s *IncidentService) CrimeTypes(ctx context.Context) ([]models.CrimeType, error) {
	types, err := s.repo.ListCrimeTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list crime types")
	}
	return types, nil
}

// Solutions returns the prevention guidance recorded for a crime category.
func (s *IncidentService) Solutions(ctx context.Context, crimeTypeID int64) ([]models.Solution, error) {
	solutions, err := s.repo.ListSolutionsByCrimeType(ctx, crimeTypeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list solutions")
	}
	return solutions, nil
}

func (s *IncidentService) get(ctx context.Context, id int64) (*models.IncidentDetail, error) {
	incident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}
	return incident, nil
}

func (s *IncidentService) record(ctx context.Context, userID int64, action string, targetID *int64) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Create(ctx, &models.ActivityLog{
		UserID:      userID,
		Action:      action,
		TargetTable: models.TargetIncidents,
		TargetID:    targetID,
	}); err != nil {
		s.logger.Warn("failed to record activity", zap.String("action", action), zap.Error(err))
	}
}
