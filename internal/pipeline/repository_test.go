package pipeline

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_CreateRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	configID := int64(7)
	run := &RecomputeRun{Name: "recompute", Status: StatusProcessing, ConfigID: &configID, TotalItems: 10, StartedAt: started}

	mock.ExpectQuery("INSERT INTO recompute_runs").
		WithArgs("recompute", StatusProcessing, &configID, false, 10, 0, 0, started).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	require.NoError(t, NewRepository(db).CreateRun(context.Background(), run))
	assert.Equal(t, int64(11), run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetRunNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM recompute_runs WHERE id").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err = NewRepository(db).GetRun(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_ListRuns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	cols := []string{"id", "name", "status", "config_id", "degraded", "total_items",
		"succeeded_items", "failed_items", "started_at", "completed_at", "error_message"}
	mock.ExpectQuery("SELECT (.+) FROM recompute_runs WHERE (.+) ORDER BY started_at DESC").
		WithArgs("recompute", 20).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(2, "recompute", "completed", nil, true, 5, 4, 1, started, started, "").
			AddRow(1, "recompute", "failed", 3, false, 5, 0, 5, started, nil, "context canceled"))

	runs, err := NewRepository(db).ListRuns(context.Background(), "recompute", 0)

	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].Degraded)
	assert.Nil(t, runs[0].ConfigID)
	assert.Equal(t, StatusFailed, runs[1].Status)
	assert.Equal(t, int64(3), *runs[1].ConfigID)
	assert.Nil(t, runs[1].CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
