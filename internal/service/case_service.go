package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cimas-project/cimas-api/internal/models"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
)

type caseIncidentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.IncidentDetail, error)
	Update(ctx context.Context, incident *models.Incident) error
	UpdateStatus(ctx context.Context, id int64, status models.IncidentStatus) error
}

type caseAssignmentRepository interface {
	FindByIncident(ctx context.Context, incidentID int64) (*models.IncidentAssignment, error)
	ExistsForIncident(ctx context.Context, incidentID int64) (bool, error)
	Create(ctx context.Context, assignment *models.IncidentAssignment) error
	Update(ctx context.Context, assignment *models.IncidentAssignment) error
	ListByAssignee(ctx context.Context, investigatorID int64) ([]models.AssignedCase, error)
	ListUnassigned(ctx context.Context) ([]models.UnassignedCase, error)
}

type caseUserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// AssignCaseRequest carries the optional assignment parameters.
type AssignCaseRequest struct {
	Priority models.AssignmentPriority `json:"priority"`
	Deadline *time.Time                `json:"deadline"`
}

// UpdateCaseRequest carries case-level edits. Status accepts arbitrary
// values on purpose, matching the workflow's permissive update path.
type UpdateCaseRequest struct {
	Title       *string                    `json:"title"`
	Description *string                    `json:"description"`
	Status      *models.IncidentStatus     `json:"status"`
	Priority    *models.AssignmentPriority `json:"priority"`
}

// CaseDetail is the assignment-centric incident view.
type CaseDetail struct {
	Incident   *models.IncidentDetail     `json:"incident"`
	Assignment *models.IncidentAssignment `json:"assignment,omitempty"`
	Assignee   *models.UserInfo           `json:"assigned_to,omitempty"`
}

// CaseService provides the assignment workflow use cases.
type CaseService struct {
	incidents   caseIncidentRepository
	assignments caseAssignmentRepository
	users       caseUserRepository
	activity    activityRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCaseService constructs a CaseService instance.
func NewCaseService(incidents caseIncidentRepository, assignments caseAssignmentRepository, users caseUserRepository, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *CaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CaseService{
		incidents:   incidents,
		assignments: assignments,
		users:       users,
		activity:    activity,
		validator:   validate,
		logger:      logger,
	}
}

// Assign binds an investigator to an open incident and flips its status to
// assigned. Resolved incidents and incidents that already carry an
// assignment row are rejected with 400s.
func (s *CaseService) Assign(ctx context.Context, caller *models.JWTClaims, incidentID, investigatorID int64, req AssignCaseRequest) (*models.IncidentAssignment, error) {
	if !CapabilitiesFor(caller.Role).CanAssignCases() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	incident, err := s.getIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(incident.Status, models.StatusAssigned) {
		return nil, appErrors.ErrNotOpenForAssignment
	}

	exists, err := s.assignments.ExistsForIncident(ctx, incidentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if exists {
		return nil, appErrors.ErrAlreadyAssigned
	}

	assignee, err := s.getInvestigator(ctx, investigatorID)
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown priority")
	}

	assignment := &models.IncidentAssignment{
		IncidentID:       incidentID,
		AssignedTo:       assignee.ID,
		AssignedAt:       time.Now().UTC(),
		AssignedDeadline: req.Deadline,
		Priority:         priority,
		Status:           string(models.StatusAssigned),
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	// Incident and assignment rows are written as two sequential
	// statements; a failed status flip leaves the assignment in place.
	if err := s.incidents.UpdateStatus(ctx, incidentID, models.StatusAssigned); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update incident status")
	}

	s.record(ctx, caller.UserID, models.ActionCaseAssign, &incidentID)
	s.logger.Info("case assigned",
		zap.Int64("incident_id", incidentID),
		zap.Int64("assigned_to", assignee.ID),
		zap.Int64("assigned_by", caller.UserID))

	return assignment, nil
}

// Reassign moves an assigned case to a different investigator, or creates
// the assignment when none exists. Resolved incidents are refused.
func (s *CaseService) Reassign(ctx context.Context, caller *models.JWTClaims, incidentID, investigatorID int64, req AssignCaseRequest) (*models.IncidentAssignment, error) {
	if !CapabilitiesFor(caller.Role).CanAssignCases() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	incident, err := s.getIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(incident.Status, models.StatusAssigned) {
		return nil, appErrors.ErrNotOpenForAssignment
	}

	assignee, err := s.getInvestigator(ctx, investigatorID)
	if err != nil {
		return nil, err
	}

	assignment, err := s.assignments.FindByIncident(ctx, incidentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
		}
		assignment = &models.IncidentAssignment{
			IncidentID: incidentID,
			AssignedTo: assignee.ID,
			AssignedAt: time.Now().UTC(),
			Priority:   models.PriorityMedium,
			Status:     string(models.StatusAssigned),
		}
		if req.Priority != "" {
			assignment.Priority = req.Priority
		}
		assignment.AssignedDeadline = req.Deadline
		if err := s.assignments.Create(ctx, assignment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
		}
	} else {
		assignment.AssignedTo = assignee.ID
		assignment.AssignedAt = time.Now().UTC()
		if req.Priority != "" {
			if !models.ValidPriority(req.Priority) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown priority")
			}
			assignment.Priority = req.Priority
		}
		if req.Deadline != nil {
			assignment.AssignedDeadline = req.Deadline
		}
		if err := s.assignments.Update(ctx, assignment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
		}
	}

	if incident.Status != models.StatusAssigned {
		if err := s.incidents.UpdateStatus(ctx, incidentID, models.StatusAssigned); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update incident status")
		}
	}

	s.record(ctx, caller.UserID, models.ActionCaseReassign, &incidentID)
	return assignment, nil
}

// Update edits a case. The reporter or an admin may edit; status values are
// written as given without transition validation, keeping the workflow's
// historical permissiveness. Resolving stamps the assignment's resolved_at.
func (s *CaseService) Update(ctx context.Context, caller *models.JWTClaims, incidentID int64, req UpdateCaseRequest) (*CaseDetail, error) {
	incident, err := s.getIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	caps := CapabilitiesFor(caller.Role)
	assignment, assignErr := s.assignments.FindByIncident(ctx, incidentID)
	if assignErr != nil && !errors.Is(assignErr, sql.ErrNoRows) {
		return nil, appErrors.Wrap(assignErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	allowed := caps.CanManageIncident(caller.UserID, &incident.Incident)
	if !allowed && assignment != nil && assignment.AssignedTo == caller.UserID {
		allowed = true
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	if req.Title != nil {
		incident.Title = *req.Title
	}
	if req.Description != nil {
		incident.Description = *req.Description
	}
	if req.Status != nil {
		if !models.ValidStatus(*req.Status) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status")
		}
		incident.Status = *req.Status
	}

	if err := s.incidents.Update(ctx, &incident.Incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update case")
	}

	if assignment != nil {
		changed := false
		if req.Priority != nil {
			if !models.ValidPriority(*req.Priority) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown priority")
			}
			assignment.Priority = *req.Priority
			changed = true
		}
		if req.Status != nil {
			assignment.Status = string(*req.Status)
			if *req.Status == models.StatusResolved && assignment.ResolvedAt == nil {
				now := time.Now().UTC()
				assignment.ResolvedAt = &now
			}
			changed = true
		}
		if changed {
			if err := s.assignments.Update(ctx, assignment); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
			}
		}
	}

	s.record(ctx, caller.UserID, models.ActionCaseUpdate, &incidentID)
	return s.Detail(ctx, caller, incidentID)
}

// Detail returns the assignment-centric case view.
func (s *CaseService) Detail(ctx context.Context, caller *models.JWTClaims, incidentID int64) (*CaseDetail, error) {
	incident, err := s.getIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if !CapabilitiesFor(caller.Role).CanViewIncident(caller.UserID, &incident.Incident) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	detail := &CaseDetail{Incident: incident}

	assignment, err := s.assignments.FindByIncident(ctx, incidentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return detail, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	detail.Assignment = assignment

	assignee, err := s.users.FindByID(ctx, assignment.AssignedTo)
	if err == nil {
		detail.Assignee = &models.UserInfo{
			ID:        assignee.ID,
			Email:     assignee.Email,
			FirstName: assignee.FirstName,
			LastName:  assignee.LastName,
			Role:      assignee.EffectiveRole(),
		}
	}
	return detail, nil
}

// AssignedCases returns the caller's caseload. Admins may pass a target
// investigator ID; investigators always get their own.
func (s *CaseService) AssignedCases(ctx context.Context, caller *models.JWTClaims, investigatorID int64) ([]models.AssignedCase, error) {
	target := caller.UserID
	if investigatorID != 0 && CapabilitiesFor(caller.Role).CanAssignCases() {
		target = investigatorID
	}
	cases, err := s.assignments.ListByAssignee(ctx, target)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assigned cases")
	}
	return cases, nil
}

// UnassignedCases returns incidents awaiting assignment.
func (s *CaseService) UnassignedCases(ctx context.Context, caller *models.JWTClaims) ([]models.UnassignedCase, error) {
	if caller.Role != models.RoleInvestigator && !CapabilitiesFor(caller.Role).CanAssignCases() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	cases, err := s.assignments.ListUnassigned(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unassigned cases")
	}
	return cases, nil
}

func (s *CaseService) getIncident(ctx context.Context, id int64) (*models.IncidentDetail, error) {
	incident, err := s.incidents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}
	return incident, nil
}

func (s *CaseService) getInvestigator(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "investigator not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load investigator")
	}
	if user.EffectiveRole() != models.RoleInvestigator {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignee is not an investigator")
	}
	return user, nil
}

func (s *CaseService) record(ctx context.Context, userID int64, action string, targetID *int64) {
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
