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

type mockAwarenessRepo struct {
	resources map[int64]*models.AwarenessResource
	flairs    []models.Flair
	nextID    int64
	lastFlair []int64
	deleted   []int64
}

func newMockAwarenessRepo() *mockAwarenessRepo {
	return &mockAwarenessRepo{resources: map[int64]*models.AwarenessResource{}, nextID: 1}
}

func (m *mockAwarenessRepo) FindByID(ctx context.Context, id int64) (*models.AwarenessResource, error) {
	if r, ok := m.resources[id]; ok {
		out := *r
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAwarenessRepo) List(ctx context.Context) ([]models.AwarenessResource, error) {
	var out []models.AwarenessResource
	for _, r := range m.resources {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockAwarenessRepo) Create(ctx context.Context, res *models.AwarenessResource, flairIDs []int64) error {
	res.ID = m.nextID
	m.nextID++
	m.resources[res.ID] = res
	m.lastFlair = flairIDs
	return nil
}

func (m *mockAwarenessRepo) Update(ctx context.Context, res *models.AwarenessResource, flairIDs []int64) error {
	m.resources[res.ID] = res
	m.lastFlair = flairIDs
	return nil
}

func (m *mockAwarenessRepo) Delete(ctx context.Context, id int64) error {
	delete(m.resources, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockAwarenessRepo) ListFlairs(ctx context.Context) ([]models.Flair, error) {
	return m.flairs, nil
}

func newAwarenessFixture() (*AwarenessService, *mockAwarenessRepo) {
	repo := newMockAwarenessRepo()
	repo.flairs = []models.Flair{{ID: 1, Name: "phishing"}, {ID: 2, Name: "ransomware"}}
	svc := NewAwarenessService(repo, nil, zap.NewNop())
	return svc, repo
}

func articleRequest() models.AwarenessResourceRequest {
	return models.AwarenessResourceRequest{
		Title:    "Spotting phishing mail",
		Synopsis: "How to recognise a credential-harvesting message",
		Content:  "Check the sender domain before clicking anything.",
		FlairIDs: []int64{1},
	}
}

func TestCreateResourceSetsAuthor(t *testing.T) {
	svc, repo := newAwarenessFixture()

	caller := &models.JWTClaims{UserID: 10, Role: models.RoleInvestigator}
	res, err := svc.Create(context.Background(), caller, articleRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.AuthorID)
	assert.Equal(t, []int64{1}, repo.lastFlair)
}

func TestCreateResourceRequiresContent(t *testing.T) {
	svc, _ := newAwarenessFixture()

	req := articleRequest()
	req.Content = ""
	caller := &models.JWTClaims{UserID: 10, Role: models.RoleInvestigator}
	_, err := svc.Create(context.Background(), caller, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateResourceAuthorOrAdmin(t *testing.T) {
	svc, _ := newAwarenessFixture()

	author := &models.JWTClaims{UserID: 10, Role: models.RoleInvestigator}
	res, err := svc.Create(context.Background(), author, articleRequest())
	require.NoError(t, err)

	req := articleRequest()
	req.Title = "Spotting phishing mail, revised"

	stranger := &models.JWTClaims{UserID: 11, Role: models.RoleInvestigator}
	_, err = svc.Update(context.Background(), stranger, res.ID, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), adminClaims(), res.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Spotting phishing mail, revised", updated.Title)
	assert.Equal(t, int64(10), updated.AuthorID)
}

func TestDeleteResourceAuthorOrAdmin(t *testing.T) {
	svc, repo := newAwarenessFixture()

	author := &models.JWTClaims{UserID: 10, Role: models.RoleInvestigator}
	res, err := svc.Create(context.Background(), author, articleRequest())
	require.NoError(t, err)

	stranger := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}
	err = svc.Delete(context.Background(), stranger, res.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), author, res.ID))
	assert.Contains(t, repo.deleted, res.ID)
}

func TestGetUnknownResource(t *testing.T) {
	svc, _ := newAwarenessFixture()

	_, err := svc.Get(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFlairCatalogue(t *testing.T) {
	svc, _ := newAwarenessFixture()

	flairs, err := svc.Flairs(context.Background())
	require.NoError(t, err)
	assert.Len(t, flairs, 2)
}
