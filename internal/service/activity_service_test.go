package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cimas-project/cimas-api/internal/models"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
)

type mockActivityRepo struct {
	logs []models.ActivityLog
}

func (m *mockActivityRepo) Create(ctx context.Context, log *models.ActivityLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockActivityRepo) FindByID(ctx context.Context, id int64) (*models.ActivityLog, error) {
	for i := range m.logs {
		if m.logs[i].ID == id {
			return &m.logs[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockActivityRepo) List(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	out := make([]models.ActivityLog, len(m.logs))
	copy(out, m.logs)
	return out, nil
}

func (m *mockActivityRepo) ListByTable(ctx context.Context, table string, limit int) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	for _, l := range m.logs {
		if l.TargetTable == table {
			out = append(out, l)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockActivityRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	for _, l := range m.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockActivityRepo) ListByTarget(ctx context.Context, table string, targetID int64, limit int) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	for _, l := range m.logs {
		if l.TargetTable == table && l.TargetID != nil && *l.TargetID == targetID {
			out = append(out, l)
		}
	}
	return out, nil
}

func newActivityFixture() (*ActivityService, *mockActivityRepo) {
	incident := int64(5)
	repo := &mockActivityRepo{logs: []models.ActivityLog{
		{ID: 1, UserID: 20, Action: models.ActionIncidentCreate, TargetTable: models.TargetIncidents, TargetID: &incident},
		{ID: 2, UserID: 1, Action: models.ActionCaseAssign, TargetTable: models.TargetIncidents, TargetID: &incident},
		{ID: 3, UserID: 10, Action: models.ActionMessageSend, TargetTable: models.TargetMessages},
		{ID: 4, UserID: 20, Action: models.ActionLogin, TargetTable: models.TargetUsers},
	}}
	return NewActivityService(repo, zap.NewNop()), repo
}

func TestActivityListAdminSeesAll(t *testing.T) {
	svc, _ := newActivityFixture()

	logs, err := svc.List(context.Background(), adminClaims())
	require.NoError(t, err)
	assert.Len(t, logs, 4)
}

func TestActivityListInvestigatorSeesIncidentEntries(t *testing.T) {
	svc, _ := newActivityFixture()

	caller := &models.JWTClaims{UserID: 10, Role: models.RoleInvestigator}
	logs, err := svc.List(context.Background(), caller)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, models.TargetIncidents, l.TargetTable)
	}
}

func TestActivityListVictimSeesOwnEntries(t *testing.T) {
	svc, _ := newActivityFixture()

	caller := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}
	logs, err := svc.List(context.Background(), caller)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, int64(20), l.UserID)
	}
}

func TestActivityListByUserSelfOrAdmin(t *testing.T) {
	svc, _ := newActivityFixture()

	caller := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}
	logs, err := svc.ListByUser(context.Background(), caller, 20)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	_, err = svc.ListByUser(context.Background(), caller, 10)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	logs, err = svc.ListByUser(context.Background(), adminClaims(), 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestActivityGetOwnRowOnly(t *testing.T) {
	svc, _ := newActivityFixture()

	caller := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}
	log, err := svc.Get(context.Background(), caller, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ActionIncidentCreate, log.Action)

	_, err = svc.Get(context.Background(), caller, 3)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestActivityGetUnknownID(t *testing.T) {
	svc, _ := newActivityFixture()

	_, err := svc.Get(context.Background(), adminClaims(), 77)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestActivityListByIncident(t *testing.T) {
	svc, _ := newActivityFixture()

	caller := &models.JWTClaims{UserID: 10, Role: models.RoleInvestigator}
	logs, err := svc.ListByIncident(context.Background(), caller, 5)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	victim := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}
	_, err = svc.ListByIncident(context.Background(), victim, 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
