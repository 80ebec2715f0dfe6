package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimas-project/cimas-api/internal/models"
)

func incidentRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "title", "description", "status", "reported_at", "location_id", "crime_type_id",
		"reporter_email", "reporter_name", "crime_type_name", "location_label",
	}).AddRow(int64(5), int64(20), "Phishing campaign", "Spoofed bank portal",
		string(models.StatusInProgress), now, nil, int64(3),
		"victim@example.com", "Vera Okafor", "phishing", nil)
}

func TestIncidentFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT .+ FROM incidents i .+ WHERE i.id = .+ LIMIT 1").
		WithArgs(int64(5)).
		WillReturnRows(incidentRows(now))

	incident, err := repo.FindByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Phishing campaign", incident.Title)
	assert.Equal(t, "Vera Okafor", incident.ReporterName)
	require.NotNil(t, incident.CrimeTypeName)
	assert.Equal(t, "phishing", *incident.CrimeTypeName)
	assert.Nil(t, incident.LocationLabel)
}

func TestIncidentListByReporter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT .+ FROM incidents i .+ WHERE i.user_id = .+ ORDER BY i.reported_at DESC").
		WithArgs(int64(20)).
		WillReturnRows(incidentRows(now))

	incidents, err := repo.ListByReporter(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, int64(5), incidents[0].ID)
}

func TestIncidentCreateStampsReportedAt(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	mock.ExpectQuery(`INSERT INTO incidents .+ RETURNING id`).
		WithArgs(int64(20), "Phishing campaign", "Spoofed bank portal",
			string(models.StatusInProgress), sqlmock.AnyArg(), nil, int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	crimeType := int64(3)
	incident := &models.Incident{
		UserID:      20,
		Title:       "Phishing campaign",
		Description: "Spoofed bank portal",
		Status:      models.StatusInProgress,
		CrimeTypeID: &crimeType,
	}
	require.NoError(t, repo.Create(context.Background(), incident))
	assert.Equal(t, int64(5), incident.ID)
	assert.False(t, incident.ReportedAt.IsZero())
}

func TestIncidentUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE incidents SET status = $2 WHERE id = $1")).
		WithArgs(int64(5), string(models.StatusResolved)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), 5, models.StatusResolved))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreateCrimeTypeReusesExisting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM crime_types WHERE LOWER(name) = LOWER($1) LIMIT 1")).
		WithArgs("Phishing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	id, err := repo.FindOrCreateCrimeType(context.Background(), "Phishing")
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrCreateCrimeTypeInsertsWhenMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	mock.ExpectQuery("SELECT id FROM crime_types").
		WithArgs("carding").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO crime_types (name) VALUES ($1) RETURNING id")).
		WithArgs("carding").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

	id, err := repo.FindOrCreateCrimeType(context.Background(), "carding")
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
}

func TestFindOrCreateLocationInsertsWhenMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	loc := models.Location{Address: "1 Main St", City: "Lagos", State: "LA", Country: "NG"}
	mock.ExpectQuery("SELECT id FROM locations").
		WithArgs(loc.Address, loc.City, loc.State, loc.Country).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO locations .+ RETURNING id`).
		WithArgs(loc.Address, loc.City, loc.State, loc.Country, loc.ZipCode).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))

	id, err := repo.FindOrCreateLocation(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
}

func TestListCrimeTypes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	mock.ExpectQuery("SELECT id, name FROM crime_types ORDER BY name ASC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "carding").
			AddRow(int64(3), "phishing"))

	types, err := repo.ListCrimeTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "carding", types[0].Name)
}

func TestListSolutionsByCrimeType(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "crime_type_id", "recommended_actions", "awareness_level"}).
		AddRow(int64(1), int64(3), "Report the sender domain", "high")
	mock.ExpectQuery("SELECT id, crime_type_id, recommended_actions, awareness_level FROM solutions").
		WithArgs(int64(3)).
		WillReturnRows(rows)

	solutions, err := repo.ListSolutionsByCrimeType(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, solutions, 1)
	assert.Equal(t, "high", solutions[0].AwarenessLevel)
}
