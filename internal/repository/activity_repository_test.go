package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimas-project/cimas-api/internal/models"
)

func activityRowColumns() []string {
	return []string{"id", "user_id", "action", "timestamp", "target_table", "target_id", "user_email"}
}

func TestActivityCreateStampsTimestamp(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	target := int64(5)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO activity_logs (user_id, action, timestamp, target_table, target_id)")).
		WithArgs(int64(20), models.ActionIncidentCreate, sqlmock.AnyArg(), models.TargetIncidents, &target).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	log := &models.ActivityLog{UserID: 20, Action: models.ActionIncidentCreate, TargetTable: models.TargetIncidents, TargetID: &target}
	require.NoError(t, repo.Create(context.Background(), log))
	assert.Equal(t, int64(1), log.ID)
	assert.False(t, log.Timestamp.IsZero())
}

func TestActivityListByTable(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	now := time.Now()
	target := int64(5)
	rows := sqlmock.NewRows(activityRowColumns()).
		AddRow(int64(2), int64(1), models.ActionCaseAssign, now, models.TargetIncidents, &target, "admin@example.com").
		AddRow(int64(1), int64(20), models.ActionIncidentCreate, now.Add(-time.Hour), models.TargetIncidents, &target, "victim@example.com")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.target_table = $1")).
		WithArgs(models.TargetIncidents, 200).
		WillReturnRows(rows)

	logs, err := repo.ListByTable(context.Background(), models.TargetIncidents, 200)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, models.TargetIncidents, l.TargetTable)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}
