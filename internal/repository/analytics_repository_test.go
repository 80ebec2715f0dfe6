package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimas-project/cimas-api/internal/models"
)

func TestCountIncidentsByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM incidents WHERE status = $1")).
		WithArgs(string(models.StatusResolved)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := repo.CountIncidentsByStatus(context.Background(), models.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, 12, count)
}

func TestCountHighPriorityOpen(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.priority = 'high' AND i.status <> 'resolved'")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountHighPriorityOpen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestWeeklyTrends(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	rows := sqlmock.NewRows([]string{"week", "created", "resolved"}).
		AddRow("2025-W18", 4, 1).
		AddRow("2025-W19", 6, 3)
	mock.ExpectQuery("GROUP BY date_trunc\\('week', i.reported_at\\)").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	points, err := repo.WeeklyTrends(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2025-W19", points[1].Week)
	assert.Equal(t, 6, points[1].Created)
	assert.Equal(t, 3, points[1].Resolved)
}

func TestCategoryBreakdown(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	rows := sqlmock.NewRows([]string{"category", "count"}).
		AddRow("phishing", 9).
		AddRow("uncategorised", 2)
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(ct.name, 'uncategorised')")).
		WillReturnRows(rows)

	counts, err := repo.CategoryBreakdown(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "phishing", counts[0].Category)
	assert.Equal(t, 9, counts[0].Count)
}

func TestHotspots(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	rows := sqlmock.NewRows([]string{"city", "count"}).AddRow("Lagos", 5)
	mock.ExpectQuery("GROUP BY l.city").
		WithArgs(5).
		WillReturnRows(rows)

	counts, err := repo.Hotspots(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "Lagos", counts[0].City)
}

func TestCountAssignmentsByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.assigned_to = $1 AND i.status = $2")).
		WithArgs(int64(10), string(models.StatusResolved)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountAssignmentsByStatus(context.Background(), 10, models.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestUpcomingDeadlines(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	deadline := time.Now().Add(48 * time.Hour)
	rows := sqlmock.NewRows([]string{"title", "priority", "deadline", "assigned_at"}).
		AddRow("Phishing campaign", string(models.PriorityHigh), deadline, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("a.assigned_deadline IS NOT NULL")).
		WithArgs(int64(10), 5).
		WillReturnRows(rows)

	deadlines, err := repo.UpcomingDeadlines(context.Background(), 10, 5)
	require.NoError(t, err)
	require.Len(t, deadlines, 1)
	assert.Equal(t, "Phishing campaign", deadlines[0].Title)
}

func TestActiveIncidents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	rows := sqlmock.NewRows([]string{"id", "title", "status", "reported_at"}).
		AddRow(int64(5), "Phishing campaign", string(models.StatusAssigned), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND status <> 'resolved'")).
		WithArgs(int64(20), 5).
		WillReturnRows(rows)

	incidents, err := repo.ActiveIncidents(context.Background(), 20, 5)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, models.StatusAssigned, incidents[0].Status)
}
