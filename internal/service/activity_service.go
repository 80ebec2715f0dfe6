package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/cimas-project/cimas-api/internal/models"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
)

const activityListLimit = 200

type activityRepository interface {
	Create(ctx context.Context, log *models.ActivityLog) error
	FindByID(ctx context.Context, id int64) (*models.ActivityLog, error)
	List(ctx context.Context, limit int) ([]models.ActivityLog, error)
	ListByTable(ctx context.Context, table string, limit int) ([]models.ActivityLog, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.ActivityLog, error)
	ListByTarget(ctx context.Context, table string, targetID int64, limit int) ([]models.ActivityLog, error)
}

// ActivityService provides role-scoped audit trail reads. Admins see every
// entry, investigators see incident-table entries, everyone else their own.
type ActivityService struct {
	repo   activityRepository
	logger *zap.Logger
}

// NewActivityService constructs an ActivityService instance.
func NewActivityService(repo activityRepository, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, logger: logger}
}

// List returns the audit entries visible to the caller.
func (s *ActivityService) List(ctx context.Context, caller *models.JWTClaims) ([]models.ActivityLog, error) {
	switch caller.Role {
	case models.RoleAdmin, models.RoleSuperAdmin:
		logs, err := s.repo.List(ctx, activityListLimit)
		if err != nil {
			return nil, s.wrap(err)
		}
		return logs, nil
	case models.RoleInvestigator:
		logs, err := s.repo.ListByTable(ctx, models.TargetIncidents, activityListLimit)
		if err != nil {
			return nil, s.wrap(err)
		}
		return logs, nil
	}
	logs, err := s.repo.ListByUser(ctx, caller.UserID, activityListLimit)
	if err != nil {
		return nil, s.wrap(err)
	}
	return logs, nil
}

// ListByUser returns one user's audit entries. Admins may inspect anyone;
// other callers only themselves.
func (s *ActivityService) ListByUser(ctx context.Context, caller *models.JWTClaims, userID int64) ([]models.ActivityLog, error) {
	if userID != caller.UserID && !CapabilitiesFor(caller.Role).CanManageUsers() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	logs, err := s.repo.ListByUser(ctx, userID, activityListLimit)
	if err != nil {
		return nil, s.wrap(err)
	}
	return logs, nil
}

// Get returns a single audit entry. Admins only, apart from one's own rows.
func (s *ActivityService) Get(ctx context.Context, caller *models.JWTClaims, id int64) (*models.ActivityLog, error) {
	log, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity log not found")
		}
		return nil, s.wrap(err)
	}
	if log.UserID != caller.UserID && !CapabilitiesFor(caller.Role).CanManageUsers() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return log, nil
}

// ListByIncident returns the audit entries touching one incident.
// Investigators and admins only.
func (s *ActivityService) ListByIncident(ctx context.Context, caller *models.JWTClaims, incidentID int64) ([]models.ActivityLog, error) {
	if caller.Role != models.RoleInvestigator && !CapabilitiesFor(caller.Role).CanManageUsers() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	logs, err := s.repo.ListByTarget(ctx, models.TargetIncidents, incidentID, activityListLimit)
	if err != nil {
		return nil, s.wrap(err)
	}
	return logs, nil
}

func (s *ActivityService) wrap(err error) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity logs")
}
