package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cimas-project/cimas-api/internal/models"
	appErrors "github.com/cimas-project/cimas-api/pkg/errors"
)

type mockEvidenceRepo struct {
	evidence  map[int64]*models.Evidence
	nextID    int64
	createErr error
	deleted   []int64
}

func newMockEvidenceRepo() *mockEvidenceRepo {
	return &mockEvidenceRepo{evidence: make(map[int64]*models.Evidence), nextID: 1}
}

func (m *mockEvidenceRepo) FindByID(ctx context.Context, id int64) (*models.Evidence, error) {
	ev, ok := m.evidence[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return ev, nil
}

func (m *mockEvidenceRepo) ListByIncident(ctx context.Context, incidentID int64) ([]models.Evidence, error) {
	var out []models.Evidence
	for _, ev := range m.evidence {
		if ev.IncidentID == incidentID {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *mockEvidenceRepo) Create(ctx context.Context, ev *models.Evidence) error {
	if m.createErr != nil {
		return m.createErr
	}
	ev.ID = m.nextID
	m.nextID++
	m.evidence[ev.ID] = ev
	return nil
}

func (m *mockEvidenceRepo) Update(ctx context.Context, ev *models.Evidence) error {
	m.evidence[ev.ID] = ev
	return nil
}

func (m *mockEvidenceRepo) Delete(ctx context.Context, id int64) error {
	delete(m.evidence, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockEvidenceStorage struct {
	saved   []string
	removed []string
	files   map[string]string
	opened  []string
}

func (m *mockEvidenceStorage) SaveStream(filename string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	m.saved = append(m.saved, filename)
	return "/evidence/" + filename, nil
}

func (m *mockEvidenceStorage) Open(filename string) (io.ReadCloser, error) {
	content, ok := m.files[filename]
	if !ok {
		return nil, errors.New("no such file")
	}
	m.opened = append(m.opened, filename)
	return io.NopCloser(strings.NewReader(content)), nil
}

func (m *mockEvidenceStorage) Delete(filename string) error {
	m.removed = append(m.removed, filename)
	return nil
}

func newEvidenceFixture() (*EvidenceService, *mockEvidenceRepo, *mockCaseIncidentRepo, *mockEvidenceStorage) {
	repo := newMockEvidenceRepo()
	incidents := newMockCaseIncidentRepo()
	incidents.incidents[5] = &models.IncidentDetail{Incident: models.Incident{ID: 5, UserID: 20, Status: models.StatusInProgress}}
	storage := &mockEvidenceStorage{}
	svc := NewEvidenceService(repo, incidents, storage, &mockActivityRecorder{}, nil, zap.NewNop(), 1024)
	return svc, repo, incidents, storage
}

func TestCreateEvidenceByReference(t *testing.T) {
	svc, repo, _, _ := newEvidenceFixture()
	caller := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}

	ev, err := svc.Create(context.Background(), caller, 5, CreateEvidenceRequest{
		FilePath:    "/uploads/screenshot.png",
		Description: "phishing email screenshot",
		Tags:        []string{"email", "screenshot"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), ev.IncidentID)
	assert.Equal(t, int64(20), ev.SubmittedBy)
	assert.Len(t, repo.evidence, 1)
}

func TestCreateEvidenceUnknownIncident(t *testing.T) {
	svc, _, _, _ := newEvidenceFixture()
	caller := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}

	_, err := svc.Create(context.Background(), caller, 404, CreateEvidenceRequest{FilePath: "/f"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc, repo, _, storage := newEvidenceFixture()
	caller := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}

	_, err := svc.Upload(context.Background(), caller, 5, "dump.bin", 2048, strings.NewReader("x"), "", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, storage.saved)
	assert.Empty(t, repo.evidence)
}

func TestUploadStoresUUIDPrefixedName(t *testing.T) {
	svc, _, _, storage := newEvidenceFixture()
	caller := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}

	ev, err := svc.Upload(context.Background(), caller, 5, "../../etc/report.pdf", 10, strings.NewReader("0123456789"), "scan", []string{"pdf"})
	require.NoError(t, err)
	require.Len(t, storage.saved, 1)
	assert.True(t, strings.HasSuffix(storage.saved[0], "_report.pdf"))
	assert.NotEqual(t, "report.pdf", storage.saved[0])
	assert.Equal(t, "/evidence/"+storage.saved[0], ev.FilePath)
}

func TestUploadCleansUpOrphanOnCreateFailure(t *testing.T) {
	svc, repo, _, storage := newEvidenceFixture()
	repo.createErr = errors.New("insert failed")
	caller := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}

	_, err := svc.Upload(context.Background(), caller, 5, "report.pdf", 10, strings.NewReader("0123456789"), "", nil)
	require.Error(t, err)
	require.Len(t, storage.saved, 1)
	require.Len(t, storage.removed, 1)
	assert.Equal(t, storage.saved[0], storage.removed[0])
}

func TestUpdateEvidenceSubmitterOrAdmin(t *testing.T) {
	svc, repo, _, _ := newEvidenceFixture()
	repo.evidence[1] = &models.Evidence{ID: 1, IncidentID: 5, SubmittedBy: 20, Description: "old"}
	repo.nextID = 2

	desc := "updated"
	stranger := &models.JWTClaims{UserID: 10, Role: models.RoleInvestigator}
	_, err := svc.Update(context.Background(), stranger, 1, models.EvidenceUpdateRequest{Description: &desc})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	submitter := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}
	ev, err := svc.Update(context.Background(), submitter, 1, models.EvidenceUpdateRequest{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "updated", ev.Description)

	desc2 := "admin edit"
	ev, err = svc.Update(context.Background(), adminClaims(), 1, models.EvidenceUpdateRequest{Description: &desc2})
	require.NoError(t, err)
	assert.Equal(t, "admin edit", ev.Description)
}

func TestDeleteEvidenceAdminOnly(t *testing.T) {
	svc, repo, _, _ := newEvidenceFixture()
	repo.evidence[1] = &models.Evidence{ID: 1, IncidentID: 5, SubmittedBy: 20}

	submitter := &models.JWTClaims{UserID: 20, Role: models.RoleVictim}
	err := svc.Delete(context.Background(), submitter, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), adminClaims(), 1))
	assert.Equal(t, []int64{1}, repo.deleted)
}

func TestDownloadStreamsStoredFile(t *testing.T) {
	svc, repo, _, storage := newEvidenceFixture()
	repo.evidence[1] = &models.Evidence{ID: 1, IncidentID: 5, SubmittedBy: 20, FilePath: "abc_screenshot.png"}
	storage.files = map[string]string{"abc_screenshot.png": "png-bytes"}

	ev, file, err := svc.Download(context.Background(), 1)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(content))
	assert.Equal(t, "abc_screenshot.png", ev.FilePath)
	assert.Equal(t, []string{"abc_screenshot.png"}, storage.opened)
}

func TestDownloadMissingFile(t *testing.T) {
	svc, repo, _, _ := newEvidenceFixture()
	repo.evidence[1] = &models.Evidence{ID: 1, IncidentID: 5, SubmittedBy: 20, FilePath: "gone.png"}

	_, _, err := svc.Download(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDownloadUnknownEvidence(t *testing.T) {
	svc, _, _, _ := newEvidenceFixture()

	_, _, err := svc.Download(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
