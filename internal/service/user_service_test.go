package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cimas-project/cimas-api/internal/models"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
)

type mockUserRepo struct {
	users    map[int64]*models.User
	taken    map[string]bool
	deleted  []int64
	revoked  []int64
	profiled []int64
	updated  bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[int64]*models.User{}, taken: map[string]bool{}}
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	for _, u := range m.users {
		if u.ID != excludeID && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return m.taken[email], nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	var out []models.User
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	m.updated = true
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockUserRepo) EnsureInvestigatorProfile(ctx context.Context, userID int64, department *string) error {
	m.profiled = append(m.profiled, userID)
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func newUserFixture() (*UserService, *mockUserRepo) {
	repo := newMockUserRepo()
	repo.users[1] = &models.User{ID: 1, Email: "admin@example.com", Role: models.RoleAdmin, Active: true}
	repo.users[20] = &models.User{ID: 20, Email: "victim@example.com", Role: models.RoleVictim, Active: true}
	repo.users[99] = &models.User{ID: 99, Email: models.AdminPanelEmail, Role: models.RoleAdmin, Active: true}
	return NewUserService(repo, nil, zap.NewNop()), repo
}

func TestUpdateProfileChangesEmail(t *testing.T) {
	svc, repo := newUserFixture()

	email := "New.Address@Example.com"
	user, err := svc.UpdateProfile(context.Background(), 20, UpdateProfileRequest{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "new.address@example.com", user.Email)
	assert.True(t, repo.updated)
}

func TestUpdateProfileRejectsTakenEmail(t *testing.T) {
	svc, _ := newUserFixture()

	email := "admin@example.com"
	_, err := svc.UpdateProfile(context.Background(), 20, UpdateProfileRequest{Email: &email})
	require.Error(t, err)
	assert.Equal(t, "EMAIL_TAKEN", appErrors.FromError(err).Code)
}

func TestUpdateProfileRejectsReservedEmail(t *testing.T) {
	svc, _ := newUserFixture()

	email := models.AdminPanelEmail
	_, err := svc.UpdateProfile(context.Background(), 20, UpdateProfileRequest{Email: &email})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "reserved")
}

func TestAdminUpdatePromotesToInvestigator(t *testing.T) {
	svc, repo := newUserFixture()

	role := models.RoleInvestigator
	user, err := svc.AdminUpdate(context.Background(), adminClaims(), 20, AdminUpdateUserRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleInvestigator, user.Role)
	assert.Contains(t, repo.profiled, int64(20))
}

func TestAdminUpdateRejectsUnknownRole(t *testing.T) {
	svc, _ := newUserFixture()

	role := models.UserRole("auditor")
	_, err := svc.AdminUpdate(context.Background(), adminClaims(), 20, AdminUpdateUserRequest{Role: &role})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAdminUpdateDeactivationRevokesSessions(t *testing.T) {
	svc, repo := newUserFixture()

	active := false
	user, err := svc.AdminUpdate(context.Background(), adminClaims(), 20, AdminUpdateUserRequest{IsActive: &active})
	require.NoError(t, err)
	assert.False(t, user.Active)
	assert.Contains(t, repo.revoked, int64(20))
}

func TestAdminUpdateSystemAccountRefused(t *testing.T) {
	svc, _ := newUserFixture()

	active := false
	_, err := svc.AdminUpdate(context.Background(), adminClaims(), 99, AdminUpdateUserRequest{IsActive: &active})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAdminUpdateForbiddenForNonAdmin(t *testing.T) {
	svc, _ := newUserFixture()

	caller := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}
	active := false
	_, err := svc.AdminUpdate(context.Background(), caller, 20, AdminUpdateUserRequest{IsActive: &active})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDeleteUser(t *testing.T) {
	svc, repo := newUserFixture()

	err := svc.Delete(context.Background(), adminClaims(), 20)
	require.NoError(t, err)
	assert.Contains(t, repo.deleted, int64(20))
}

func TestDeleteOwnAccountRefused(t *testing.T) {
	svc, _ := newUserFixture()

	err := svc.Delete(context.Background(), adminClaims(), 1)
	require.Error(t, err)
	assert.Equal(t, "cannot delete your own account", appErrors.FromError(err).Message)
}

func TestDeleteSystemAccountRefused(t *testing.T) {
	svc, repo := newUserFixture()

	err := svc.Delete(context.Background(), adminClaims(), 99)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestListFiltersByRole(t *testing.T) {
	svc, _ := newUserFixture()

	role := models.RoleVictim
	users, err := svc.List(context.Background(), models.UserFilter{Role: &role})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(20), users[0].ID)
}
