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

type mockIncidentRepo struct {
	incidents  map[int64]*models.IncidentDetail
	nextID     int64
	crimeTypes map[string]int64
	solutions  []models.Solution
	locations  []models.Location
	listAll    int
	listOwn    int
	deleted    []int64
}

func newMockIncidentRepo() *mockIncidentRepo {
	return &mockIncidentRepo{
		incidents:  make(map[int64]*models.IncidentDetail),
		nextID:     1,
		crimeTypes: make(map[string]int64),
	}
}

func (m *mockIncidentRepo) FindByID(ctx context.Context, id int64) (*models.IncidentDetail, error) {
	inc, ok := m.incidents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return inc, nil
}

func (m *mockIncidentRepo) List(ctx context.Context) ([]models.IncidentDetail, error) {
	m.listAll++
	var out []models.IncidentDetail
	for _, inc := range m.incidents {
		out = append(out, *inc)
	}
	return out, nil
}

func (m *mockIncidentRepo) ListByReporter(ctx context.Context, userID int64) ([]models.IncidentDetail, error) {
	m.listOwn++
	var out []models.IncidentDetail
	for _, inc := range m.incidents {
		if inc.UserID == userID {
			out = append(out, *inc)
		}
	}
	return out, nil
}

func (m *mockIncidentRepo) Create(ctx context.Context, incident *models.Incident) error {
	incident.ID = m.nextID
	m.nextID++
	m.incidents[incident.ID] = &models.IncidentDetail{Incident: *incident}
	return nil
}

func (m *mockIncidentRepo) Update(ctx context.Context, incident *models.Incident) error {
	if detail, ok := m.incidents[incident.ID]; ok {
		detail.Incident = *incident
	}
	return nil
}

func (m *mockIncidentRepo) Delete(ctx context.Context, id int64) error {
	delete(m.incidents, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockIncidentRepo) FindOrCreateLocation(ctx context.Context, loc models.Location) (int64, error) {
	m.locations = append(m.locations, loc)
	return int64(len(m.locations)), nil
}

func (m *mockIncidentRepo) FindOrCreateCrimeType(ctx context.Context, name string) (int64, error) {
	key := strings.ToLower(name)
	if id, ok := m.crimeTypes[key]; ok {
		return id, nil
	}
	id := int64(len(m.crimeTypes) + 1)
	m.crimeTypes[key] = id
	return id, nil
}

func (m *mockIncidentRepo) ListCrimeTypes(ctx context.Context) ([]models.CrimeType, error) {
	var out []models.CrimeType
	for name, id := range m.crimeTypes {
		out = append(out, models.CrimeType{ID: id, Name: name})
	}
	return out, nil
}

func (m *mockIncidentRepo) ListSolutionsByCrimeType(ctx context.Context, crimeTypeID int64) ([]models.Solution, error) {
	var out []models.Solution
	for _, s := range m.solutions {
		if s.CrimeTypeID == crimeTypeID {
			out = append(out, s)
		}
	}
	return out, nil
}

func newIncidentFixture() (*IncidentService, *mockIncidentRepo) {
	repo := newMockIncidentRepo()
	svc := NewIncidentService(repo, &mockActivityRecorder{}, nil, zap.NewNop())
	return svc, repo
}

func TestCreateIncidentStartsInProgress(t *testing.T) {
	svc, repo := newIncidentFixture()
	caller := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}

	incident, err := svc.Create(context.Background(), caller, CreateIncidentRequest{
		Title:       "Phishing email",
		Description: "Suspicious invoice attachment",
		CrimeType:   "Phishing",
		Location:    &models.Location{Address: "1 Main St", City: "Nairobi", Country: "Kenya"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, incident.Status)
	assert.Equal(t, int64(20), incident.UserID)
	require.NotNil(t, incident.CrimeTypeID)
	require.NotNil(t, incident.LocationID)
	assert.Len(t, repo.locations, 1)
}

func TestCreateIncidentMissingFields(t *testing.T) {
	svc, _ := newIncidentFixture()
	caller := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}

	_, err := svc.Create(context.Background(), caller, CreateIncidentRequest{Title: "no description"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestListScopesVictimsToOwnReports(t *testing.T) {
	svc, repo := newIncidentFixture()
	repo.incidents[1] = &models.IncidentDetail{Incident: models.Incident{ID: 1, UserID: 20}}
	repo.incidents[2] = &models.IncidentDetail{Incident: models.Incident{ID: 2, UserID: 21}}

	victim := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}
	incidents, err := svc.List(context.Background(), victim)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, 1, repo.listOwn)

	incidents, err = svc.List(context.Background(), adminClaims())
	require.NoError(t, err)
	assert.Len(t, incidents, 2)

	investigator := &models.JWTClaims{UserID: 10, Role: models.RoleInvestigator}
	incidents, err = svc.List(context.Background(), investigator)
	require.NoError(t, err)
	assert.Len(t, incidents, 2)
}

func TestGetEnforcesVisibility(t *testing.T) {
	svc, repo := newIncidentFixture()
	repo.incidents[1] = &models.IncidentDetail{Incident: models.Incident{ID: 1, UserID: 20}}

	stranger := &models.JWTClaims{UserID: 21, Role: models.RoleVictim}
	_, err := svc.Get(context.Background(), stranger, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	investigator := &models.JWTClaims{UserID: 10, Role: models.RoleInvestigator}
	_, err = svc.Get(context.Background(), investigator, 1)
	require.NoError(t, err)
}

func TestUpdateIncidentOwnershipRules(t *testing.T) {
	svc, repo := newIncidentFixture()
	repo.incidents[1] = &models.IncidentDetail{Incident: models.Incident{ID: 1, UserID: 20, Title: "orig"}}

	title := "edited"
	investigator := &models.JWTClaims{UserID: 10, Role: models.RoleInvestigator}
	_, err := svc.Update(context.Background(), investigator, 1, UpdateIncidentRequest{Title: &title})
	require.Error(t, err)

	owner := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}
	incident, err := svc.Update(context.Background(), owner, 1, UpdateIncidentRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "edited", incident.Title)
}

func TestDeleteIncidentOwnerOrAdmin(t *testing.T) {
	svc, repo := newIncidentFixture()
	repo.incidents[1] = &models.IncidentDetail{Incident: models.Incident{ID: 1, UserID: 20}}
	repo.incidents[2] = &models.IncidentDetail{Incident: models.Incident{ID: 2, UserID: 21}}

	owner := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}
	require.Error(t, svc.Delete(context.Background(), owner, 2))
	require.NoError(t, svc.Delete(context.Background(), owner, 1))
	require.NoError(t, svc.Delete(context.Background(), adminClaims(), 2))
	assert.Equal(t, []int64{1, 2}, repo.deleted)
}

func TestCrimeTypesCatalogue(t *testing.T) {
	svc, repo := newIncidentFixture()
	repo.crimeTypes["phishing"] = 1

	types, err := svc.CrimeTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "phishing", types[0].Name)
}

func TestSolutionsFilteredByCrimeType(t *testing.T) {
	svc, repo := newIncidentFixture()
	repo.solutions = []models.Solution{
		{ID: 1, CrimeTypeID: 3, RecommendedActions: "Report the sender domain", AwarenessLevel: "high"},
		{ID: 2, CrimeTypeID: 4, RecommendedActions: "Freeze the card", AwarenessLevel: "medium"},
	}

	solutions, err := svc.Solutions(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, solutions, 1)
	assert.Equal(t, "Report the sender domain", solutions[0].RecommendedActions)
}
