package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cimas-project/cimas-api/internal/models"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
	EnsureInvestigatorProfile(ctx context.Context, userID int64, department *string) error
	RevokeUserRefreshTokens(ctx context.Context, userID int64) error
}

// UpdateProfileRequest carries self-service profile changes.
type UpdateProfileRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Bio       *string `json:"bio"`
}

// AdminUpdateUserRequest carries admin-side account changes.
type AdminUpdateUserRequest struct {
	Role     *models.UserRole `json:"role"`
	IsActive *bool            `json:"is_active"`
}

// UserService provides account directory and profile use cases.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// GetByID returns a single user.
func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns users matching the filter. Admin only, enforced by the caller.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, nil
}

// UpdateProfile applies self-service changes to the caller's own account.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == models.AdminPanelEmail {
			return nil, appErrors.Clone(appErrors.ErrValidation, "email is reserved")
		}
		taken, err := s.repo.EmailTaken(ctx, email, userID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		}
		if taken {
			return nil, appErrors.New("EMAIL_TAKEN", appErrors.ErrValidation.Status, "Email already registered")
		}
		user.Email = email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// AdminUpdate applies role and activation changes to another account.
func (s *UserService) AdminUpdate(ctx context.Context, caller *models.JWTClaims, targetID int64, req AdminUpdateUserRequest) (*models.User, error) {
	if !CapabilitiesFor(caller.Role).CanManageUsers() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	user, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if user.Email == models.AdminPanelEmail {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "system account cannot be modified")
	}

	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
		}
		user.Role = *req.Role
		if *req.Role == models.RoleInvestigator {
			if err := s.repo.EnsureInvestigatorProfile(ctx, user.ID, nil); err != nil {
				s.logger.Warn("failed to ensure investigator profile", zap.Int64("user_id", user.ID), zap.Error(err))
			}
		}
	}
	if req.IsActive != nil {
		user.Active = *req.IsActive
		if !user.Active {
			if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
				s.logger.Warn("failed to revoke sessions of deactivated user", zap.Int64("user_id", user.ID), zap.Error(err))
			}
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// Delete removes an account. Admin only; self-deletion and the system
// identity are refused.
func (s *UserService) Delete(ctx context.Context, caller *models.JWTClaims, targetID int64) error {
	if !CapabilitiesFor(caller.Role).CanManageUsers() {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if caller.UserID == targetID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot delete your own account")
	}

	user, err := s.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if user.Email == models.AdminPanelEmail {
		return appErrors.Clone(appErrors.ErrForbidden, "system account cannot be deleted")
	}

	if err := s.repo.Delete(ctx, targetID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.logger.Info("user deleted", zap.Int64("user_id", targetID), zap.Int64("deleted_by", caller.UserID))
	return nil
}
