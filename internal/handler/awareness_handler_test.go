package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cimas-project/cimas-api/internal/middleware"
	"github.com/cimas-project/cimas-api/internal/models"
	"github.com/cimas-project/cimas-api/internal/service"
)

type awarenessRepoMock struct {
	resources map[int64]*models.AwarenessResource
	nextID    int64
}

func newAwarenessRepoMock() *awarenessRepoMock {
	return &awarenessRepoMock{resources: map[int64]*models.AwarenessResource{}, nextID: 1}
}

func (m *awarenessRepoMock) FindByID(ctx context.Context, id int64) (*models.AwarenessResource, error) {
	if r, ok := m.resources[id]; ok {
		out := *r
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (m *awarenessRepoMock) List(ctx context.Context) ([]models.AwarenessResource, error) {
	var out []models.AwarenessResource
	for _, r := range m.resources {
		out = append(out, *r)
	}
	return out, nil
}

func (m *awarenessRepoMock) Create(ctx context.Context, res *models.AwarenessResource, flairIDs []int64) error {
	res.ID = m.nextID
	m.nextID++
	m.resources[res.ID] = res
	return nil
}

func (m *awarenessRepoMock) Update(ctx context.Context, res *models.AwarenessResource, flairIDs []int64) error {
	m.resources[res.ID] = res
	return nil
}

func (m *awarenessRepoMock) Delete(ctx context.Context, id int64) error {
	delete(m.resources, id)
	return nil
}

func (m *awarenessRepoMock) ListFlairs(ctx context.Context) ([]models.Flair, error) {
	return []models.Flair{{ID: 1, Name: "phishing"}}, nil
}

func newAwarenessHandler(repo *awarenessRepoMock) *AwarenessHandler {
	svc := service.NewAwarenessService(repo, nil, zap.NewNop())
	return NewAwarenessHandler(svc)
}

func TestAwarenessHandlerListPublic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newAwarenessRepoMock()
	repo.resources[1] = &models.AwarenessResource{ID: 1, Title: "Spotting phishing mail", AuthorID: 10}
	handler := newAwarenessHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/awareness/resources", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []models.AwarenessResource
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Spotting phishing mail", resp[0].Title)
}

func TestAwarenessHandlerCreateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAwarenessHandler(newAwarenessRepoMock())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/awareness/resources", bytes.NewBufferString(`{}`))
	c.Request = req

	handler.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAwarenessHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAwarenessHandler(newAwarenessRepoMock())

	body := `{"title":"Spotting phishing mail","synopsis":"Recognising credential harvesting","content":"Check the sender domain.","flair_id":[1]}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/awareness/resources", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 10, Role: models.RoleInvestigator})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.AwarenessResource
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Spotting phishing mail", resp.Title)
}

func TestAwarenessHandlerUpdateForbiddenForStranger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newAwarenessRepoMock()
	repo.resources[1] = &models.AwarenessResource{ID: 1, Title: "Spotting phishing mail", Synopsis: "s", Content: "c", AuthorID: 10}
	handler := newAwarenessHandler(repo)

	body := `{"title":"Edited","synopsis":"s","content":"c"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/awareness/resources/1", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 11, Role: models.RoleInvestigator})

	handler.Update(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAwarenessHandlerDeleteByAuthor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newAwarenessRepoMock()
	repo.resources[1] = &models.AwarenessResource{ID: 1, Title: "Spotting phishing mail", AuthorID: 10}
	handler := newAwarenessHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/awareness/resources/1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 10, Role: models.RoleInvestigator})

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, repo.resources)
}
